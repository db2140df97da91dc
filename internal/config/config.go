package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/redis"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/notification/email"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/notification/talk"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Section types
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds the HTTP listener settings shared by apiserver and the
// worker's health endpoint.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	HealthPort      int           `mapstructure:"health_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig groups the relational store and the lock store.
type DatabaseConfig struct {
	Postgres postgres.PostgresConfig `mapstructure:"postgres"`
	Redis    redis.RedisConfig       `mapstructure:"redis"`
}

// KafkaConfig holds event bus settings.  Brokers is copied into the
// producer and consumer sections when they leave it empty.
type KafkaConfig struct {
	Enabled          bool                 `mapstructure:"enabled"`
	Brokers          []string             `mapstructure:"brokers"`
	TopicReplication int                  `mapstructure:"topic_replication"`
	Producer         kafka.ProducerConfig `mapstructure:"producer"`
	Consumer         kafka.ConsumerConfig `mapstructure:"consumer"`
}

// MessagingConfig wraps the event bus.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// AuthConfig wraps the identity provider.
type AuthConfig struct {
	Keycloak keycloak.KeycloakConfig `mapstructure:"keycloak"`
}

// StorageConfig wraps document storage.
type StorageConfig struct {
	MinIO minio.MinIOConfig `mapstructure:"minio"`
}

// NotificationConfig holds both reminder transports.  Either may be left
// unconfigured.
type NotificationConfig struct {
	Talk talk.Config  `mapstructure:"talk"`
	SMTP email.Config `mapstructure:"smtp"`
}

// ReminderConfig tunes the reminder sweep.
type ReminderConfig struct {
	AppURL               string        `mapstructure:"app_url"`
	RecordOnTotalFailure *bool         `mapstructure:"record_on_total_failure"`
	Interval             time.Duration `mapstructure:"interval"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
}

// RecordsOnTotalFailure resolves the unset case to true.
func (r ReminderConfig) RecordsOnTotalFailure() bool {
	return r.RecordOnTotalFailure == nil || *r.RecordOnTotalFailure
}

// TrashConfig tunes trash retention.
type TrashConfig struct {
	RetentionDays int           `mapstructure:"retention_days"`
	Interval      time.Duration `mapstructure:"interval"`
}

// Retention returns RetentionDays as a duration.
func (t TrashConfig) Retention() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// PrometheusConfig controls the /metrics endpoint.
type PrometheusConfig struct {
	Enabled   bool                       `mapstructure:"enabled"`
	Path      string                     `mapstructure:"path"`
	Collector prometheus.CollectorConfig `mapstructure:",squash"`
}

// MonitoringConfig groups logging and metrics.
type MonitoringConfig struct {
	Log        logging.LogConfig `mapstructure:"log"`
	Prometheus PrometheusConfig  `mapstructure:"prometheus"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the complete ContractKeeper configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Messaging    MessagingConfig    `mapstructure:"messaging"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Reminder     ReminderConfig     `mapstructure:"reminder"`
	Trash        TrashConfig        `mapstructure:"trash"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// Validate checks the fields that cannot be defaulted.  Optional
// integrations are only checked when enabled.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewValidationOp("config", "server.port", "must be between 1 and 65535")
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		return errors.NewValidationOp("config", "server.health_port", "must be between 0 and 65535")
	}

	pg := c.Database.Postgres
	if pg.Host == "" {
		return errors.NewValidationOp("config", "database.postgres.host", "is required")
	}
	if pg.Database == "" {
		return errors.NewValidationOp("config", "database.postgres.database", "is required")
	}
	if pg.MaxIdleConns > pg.MaxOpenConns {
		return errors.NewValidationOp("config", "database.postgres.max_idle_conns", "must not exceed max_open_conns")
	}

	switch c.Database.Redis.Mode {
	case "standalone", "sentinel", "cluster":
	default:
		return errors.NewValidationOp("config", "database.redis.mode", "must be standalone, sentinel or cluster")
	}

	if k := c.Messaging.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return errors.NewValidationOp("config", "messaging.kafka.brokers", "at least one broker is required")
		}
		if err := k.Producer.Security.Validate(); err != nil {
			return err
		}
	}

	if err := c.Auth.Keycloak.Validate(); err != nil {
		return err
	}

	if c.Notification.SMTP.Enabled() {
		if err := c.Notification.SMTP.Validate(); err != nil {
			return err
		}
	}
	if c.Notification.Talk.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Notification.Talk.BaseURL); err != nil {
			return errors.NewValidationOp("config", "notification.talk.base_url", "must be an absolute URL")
		}
	}
	if c.Reminder.AppURL != "" && !strings.HasPrefix(c.Reminder.AppURL, "http") {
		return errors.NewValidationOp("config", "reminder.app_url", "must be an http(s) URL")
	}

	if c.Reminder.Interval < time.Minute {
		return errors.NewValidationOp("config", "reminder.interval", "must be at least 1m")
	}
	if c.Trash.Interval < time.Minute {
		return errors.NewValidationOp("config", "trash.interval", "must be at least 1m")
	}
	if c.Trash.RetentionDays < 1 {
		return errors.NewValidationOp("config", "trash.retention_days", "must be at least 1")
	}

	switch strings.ToLower(c.Monitoring.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationOp("config", "monitoring.log.level", "must be debug, info, warn or error")
	}
	if c.Monitoring.Prometheus.Enabled && c.Monitoring.Prometheus.Collector.Namespace == "" {
		return errors.NewValidationOp("config", "monitoring.prometheus.namespace", "is required when metrics are enabled")
	}
	return nil
}

//Personal.AI order the ending
