// Package email delivers reminder mails over SMTP.
package email

import (
	"context"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type Config struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	From      string        `mapstructure:"from"`
	FromName  string        `mapstructure:"from_name"`
	TLSPolicy string        `mapstructure:"tls_policy"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether an SMTP relay is configured.
func (c Config) Enabled() bool {
	return c.Host != ""
}

// Validate checks the fields needed to build a client.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.From == "" {
		return errors.NewValidationOp("smtp", "from", "required when host is set")
	}
	switch c.TLSPolicy {
	case "", "mandatory", "opportunistic", "none", "ssl":
	default:
		return errors.NewValidationOp("smtp", "tls_policy", "must be mandatory, opportunistic, none or ssl")
	}
	return nil
}

// sender is the part of *mail.Client used here.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer implements reminder.EmailTransport.
type Mailer struct {
	config Config
	client sender
	logger logging.Logger
}

var _ reminder.EmailTransport = (*Mailer)(nil)

// NewMailer builds an SMTP client from cfg.  No connection is made until
// the first Send.
func NewMailer(cfg Config, logger logging.Logger) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	switch cfg.TLSPolicy {
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	case "ssl":
		opts = append(opts, mail.WithSSL())
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create smtp client")
	}
	return newMailerWithSender(cfg, client, logger), nil
}

func newMailerWithSender(cfg Config, s sender, logger logging.Logger) *Mailer {
	return &Mailer{config: cfg, client: s, logger: logger.Named("smtp")}
}

// Send delivers a multipart/alternative mail with plain and HTML parts.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	msg, err := m.buildMessage(to, subject, htmlBody, plainBody)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("Failed to send reminder email", logging.String("to", to), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeTransportFailure, "smtp delivery failed").WithDetail(to)
	}
	m.logger.Info("Reminder email sent", logging.String("to", to))
	return nil
}

func (m *Mailer) buildMessage(to, subject, htmlBody, plainBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	var err error
	if m.config.FromName != "" {
		err = msg.FromFormat(m.config.FromName, m.config.From)
	} else {
		err = msg.From(m.config.From)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid sender address").WithDetail(m.config.From)
	}
	if err := msg.To(to); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecipientUnknown, "invalid recipient address").WithDetail(to)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, plainBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

//Personal.AI order the ending
