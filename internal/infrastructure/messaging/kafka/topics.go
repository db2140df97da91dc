package kafka

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

const adminDialTimeout = 10 * time.Second

// adminConn is the part of *kafka.Conn topic administration needs.
type adminConn interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the service's topics through the cluster controller.
type TopicManager struct {
	conn   adminConn
	logger logging.Logger
}

// NewTopicManager asks the first reachable broker for the controller and
// connects to it.  Topic creation is rejected by any other broker.
func NewTopicManager(ctx context.Context, brokers []string, sec SecurityConfig, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.NewValidationOp("kafka", "brokers", "at least one broker required")
	}
	dialer, err := adminDialer(sec)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		controller, err := conn.Controller()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
		ctrl, err := dialer.DialContext(ctx, "tcp", ctrlAddr)
		if err != nil {
			lastErr = err
			continue
		}
		return &TopicManager{conn: ctrl, logger: logger.Named("kafka-admin").With(logging.String("controller", ctrlAddr))}, nil
	}
	return nil, errors.Wrap(lastErr, errors.CodeMessageQueueError, "no kafka controller reachable")
}

func adminDialer(sec SecurityConfig) (*kafka.Dialer, error) {
	tlsCfg, err := sec.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := sec.saslMechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{Timeout: adminDialTimeout, DualStack: true, TLS: tlsCfg, SASLMechanism: mech}, nil
}

// TopicExists reports whether name has at least one partition.
func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	switch {
	case stderrors.Is(err, kafka.UnknownTopicOrPartition):
		return false, nil
	case err != nil:
		return false, errors.Wrap(err, errors.CodeMessageQueueError, "failed to read partitions").WithDetail(name)
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates the topics that are missing and returns their
// names.  Existing topics are left as they are, even when their settings
// differ from topics.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) ([]string, error) {
	var (
		missing []kafka.TopicConfig
		created []string
	)
	for _, t := range topics {
		if err := validateTopic(t); err != nil {
			return nil, err
		}
		exists, err := m.TopicExists(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, toTopicConfig(t))
			created = append(created, t.Name)
		}
	}
	if len(missing) == 0 {
		m.logger.Debug("All topics present", logging.Int("count", len(topics)))
		return nil, nil
	}

	// Another replica may create the same topics between the check and here.
	if err := m.conn.CreateTopics(missing...); err != nil && !stderrors.Is(err, kafka.TopicAlreadyExists) {
		return nil, errors.Wrap(err, errors.CodeMessageQueueError, "failed to create topics")
	}
	m.logger.Info("Created topics", logging.Any("topics", created))
	return created, nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

func validateTopic(t common.TopicConfig) error {
	switch {
	case t.Name == "":
		return errors.NewValidationOp("topic", "name", "required")
	case t.Partitions <= 0:
		return errors.NewValidationOp("topic", "partitions", "must be > 0")
	case t.ReplicationFactor <= 0:
		return errors.NewValidationOp("topic", "replication_factor", "must be > 0")
	}
	return nil
}

func toTopicConfig(t common.TopicConfig) kafka.TopicConfig {
	kc := kafka.TopicConfig{
		Topic:             t.Name,
		NumPartitions:     t.Partitions,
		ReplicationFactor: t.ReplicationFactor,
	}
	for name, value := range t.Configs {
		kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{ConfigName: name, ConfigValue: value})
	}
	return kc
}

// DefaultTopics lists every topic the service touches.  The audit topics
// keep events long enough to reconcile a year of reminders.
func DefaultTopics(replication int) []common.TopicConfig {
	if replication <= 0 {
		replication = 1
	}
	topic := func(name string, partitions, retentionDays int) common.TopicConfig {
		ms := (time.Duration(retentionDays) * 24 * time.Hour).Milliseconds()
		return common.TopicConfig{
			Name:              name,
			Partitions:        partitions,
			ReplicationFactor: replication,
			Configs:           map[string]string{"retention.ms": strconv.FormatInt(ms, 10)},
		}
	}
	return []common.TopicConfig{
		topic(common.TopicReminderDispatched, 3, 90),
		topic(common.TopicTrashPurged, 3, 365),
		topic(common.TopicSweepRequested, 1, 1),
		topic(common.TopicDeadLetter, 1, 30),
	}
}

//Personal.AI order the ending
