// Package kafka publishes the service's domain events and consumes
// on-demand sweep requests over Apache Kafka using segmentio/kafka-go.
package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// SecurityConfig is shared by producers and consumers.
type SecurityConfig struct {
	SASLEnabled   bool   `mapstructure:"sasl_enabled"`
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCAPath     string `mapstructure:"tls_ca_path"`
}

// Validate checks that enabled mechanisms carry their credentials.
func (s SecurityConfig) Validate() error {
	if s.SASLEnabled {
		switch s.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return errors.NewValidationOp("kafka", "sasl_mechanism", "must be PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512")
		}
		if s.SASLUsername == "" || s.SASLPassword == "" {
			return errors.NewValidationOp("kafka", "sasl_username", "SASL credentials required")
		}
	}
	if s.TLSEnabled && s.TLSCAPath == "" {
		return errors.NewValidationOp("kafka", "tls_ca_path", "required when TLS is enabled")
	}
	return nil
}

func (s SecurityConfig) saslMechanism() (sasl.Mechanism, error) {
	if !s.SASLEnabled {
		return nil, nil
	}
	var (
		mech sasl.Mechanism
		err  error
	)
	switch s.SASLMechanism {
	case "PLAIN":
		mech = plain.Mechanism{Username: s.SASLUsername, Password: s.SASLPassword}
	case "SCRAM-SHA-256":
		mech, err = scram.Mechanism(scram.SHA256, s.SASLUsername, s.SASLPassword)
	case "SCRAM-SHA-512":
		mech, err = scram.Mechanism(scram.SHA512, s.SASLUsername, s.SASLPassword)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create SASL mechanism")
	}
	return mech, nil
}

func (s SecurityConfig) tlsConfig() (*tls.Config, error) {
	if !s.TLSEnabled {
		return nil, nil
	}
	caCert, err := os.ReadFile(s.TLSCAPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read kafka CA certificate")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New(errors.ErrCodeInternal, "no certificates found in kafka CA file").WithDetail(s.TLSCAPath)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

//Personal.AI order the ending
