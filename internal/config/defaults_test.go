package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultHealthPort, cfg.Server.HealthPort)
	assert.Equal(t, DefaultDBName, cfg.Database.Postgres.Database)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, DefaultRedisMode, cfg.Database.Redis.Mode)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Messaging.Kafka.Producer.Brokers)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Messaging.Kafka.Consumer.Brokers)
	assert.Equal(t, DefaultKafkaGroupID, cfg.Messaging.Kafka.Consumer.GroupID)
	assert.Equal(t, DefaultAdminGroup, cfg.Auth.Keycloak.AdminGroup)
	assert.Equal(t, 6*time.Hour, cfg.Reminder.Interval)
	assert.True(t, cfg.Reminder.RecordsOnTotalFailure())
	assert.Equal(t, 24*time.Hour, cfg.Trash.Interval)
	assert.Equal(t, 30*24*time.Hour, cfg.Trash.Retention())
	assert.Equal(t, DefaultLogLevel, cfg.Monitoring.Log.Level)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Monitoring.Prometheus.Collector.Namespace)
}

func TestApplyDefaults_ExplicitValuesWin(t *testing.T) {
	record := false
	cfg := &Config{}
	cfg.Server.Port = 9000
	cfg.Messaging.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	cfg.Messaging.Kafka.Consumer.Brokers = []string{"other:9092"}
	cfg.Reminder.RecordOnTotalFailure = &record
	cfg.Trash.RetentionDays = 7

	ApplyDefaults(cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Messaging.Kafka.Producer.Brokers)
	assert.Equal(t, []string{"other:9092"}, cfg.Messaging.Kafka.Consumer.Brokers)
	assert.False(t, cfg.Reminder.RecordsOnTotalFailure())
	assert.Equal(t, 7*24*time.Hour, cfg.Trash.Retention())
}

//Personal.AI order the ending
