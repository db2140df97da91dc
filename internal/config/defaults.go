// Package config provides configuration loading, defaults, and validation for
// ContractKeeper.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort       = 8080
	DefaultHealthPort       = 8081
	DefaultReadTimeout      = 15 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultShutdownTimeout  = 20 * time.Second
	DefaultDBHost           = "localhost"
	DefaultDBPort           = 5432
	DefaultDBName           = "contractkeeper"
	DefaultDBMaxOpenConns   = 25
	DefaultDBMaxIdleConns   = 5
	DefaultDBConnLifetime   = 30 * time.Minute
	DefaultRedisMode        = "standalone"
	DefaultRedisAddr        = "localhost:6379"
	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "contractkeeper-worker"
	DefaultKeycloakRealm    = "contractkeeper"
	DefaultKeycloakClientID = "contractkeeper"
	DefaultAdminGroup       = "admin"
	DefaultReminderInterval = 6 * time.Hour
	DefaultReminderLockTTL  = 10 * time.Minute
	DefaultTrashInterval    = 24 * time.Hour
	DefaultRetentionDays    = 30
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "contractkeeper"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields that have already been set are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.HealthPort == 0 {
		cfg.Server.HealthPort = DefaultHealthPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	pg := &cfg.Database.Postgres
	if pg.Host == "" {
		pg.Host = DefaultDBHost
	}
	if pg.Port == 0 {
		pg.Port = DefaultDBPort
	}
	if pg.Database == "" {
		pg.Database = DefaultDBName
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}
	if pg.MaxOpenConns == 0 {
		pg.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if pg.MaxIdleConns == 0 {
		pg.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if pg.ConnMaxLifetime == 0 {
		pg.ConnMaxLifetime = DefaultDBConnLifetime
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	rd := &cfg.Database.Redis
	if rd.Mode == "" {
		rd.Mode = DefaultRedisMode
	}
	if rd.Addr == "" {
		rd.Addr = DefaultRedisAddr
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	k := &cfg.Messaging.Kafka
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	if k.TopicReplication == 0 {
		k.TopicReplication = 1
	}
	if len(k.Producer.Brokers) == 0 {
		k.Producer.Brokers = k.Brokers
	}
	if len(k.Consumer.Brokers) == 0 {
		k.Consumer.Brokers = k.Brokers
	}
	if k.Consumer.GroupID == "" {
		k.Consumer.GroupID = DefaultKafkaGroupID
	}

	// ── Keycloak ──────────────────────────────────────────────────────────────
	kc := &cfg.Auth.Keycloak
	if kc.Realm == "" {
		kc.Realm = DefaultKeycloakRealm
	}
	if kc.ClientID == "" {
		kc.ClientID = DefaultKeycloakClientID
	}
	if kc.AdminGroup == "" {
		kc.AdminGroup = DefaultAdminGroup
	}

	// ── Reminder / Trash ──────────────────────────────────────────────────────
	if cfg.Reminder.Interval == 0 {
		cfg.Reminder.Interval = DefaultReminderInterval
	}
	if cfg.Reminder.LockTTL == 0 {
		cfg.Reminder.LockTTL = DefaultReminderLockTTL
	}
	if cfg.Reminder.RecordOnTotalFailure == nil {
		record := true
		cfg.Reminder.RecordOnTotalFailure = &record
	}
	if cfg.Trash.Interval == 0 {
		cfg.Trash.Interval = DefaultTrashInterval
	}
	if cfg.Trash.RetentionDays == 0 {
		cfg.Trash.RetentionDays = DefaultRetentionDays
	}

	// ── Monitoring ────────────────────────────────────────────────────────────
	if cfg.Monitoring.Log.Level == "" {
		cfg.Monitoring.Log.Level = DefaultLogLevel
	}
	if cfg.Monitoring.Log.Format == "" {
		cfg.Monitoring.Log.Format = DefaultLogFormat
	}
	if cfg.Monitoring.Prometheus.Path == "" {
		cfg.Monitoring.Prometheus.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Prometheus.Collector.Namespace == "" {
		cfg.Monitoring.Prometheus.Collector.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
