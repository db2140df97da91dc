package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// RetryConfig controls handler retries.  The backoff doubles from
// RetryBackoff up to MaxRetryBackoff.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
	// DeadLetterTopic receives messages whose handler kept failing.  Empty
	// drops them after logging.
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
}

type ConsumerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  []string `mapstructure:"topics"`
	// AutoOffsetReset applies when the group has no committed offset:
	// "earliest" (default) or "latest".
	AutoOffsetReset   string         `mapstructure:"auto_offset_reset"`
	SessionTimeout    time.Duration  `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration  `mapstructure:"heartbeat_interval"`
	MaxWait           time.Duration  `mapstructure:"max_wait"`
	Retry             RetryConfig    `mapstructure:"retry"`
	Security          SecurityConfig `mapstructure:",squash"`
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.NewValidationOp("kafka", "brokers", "at least one broker required")
	case cfg.GroupID == "":
		return errors.NewValidationOp("kafka", "group_id", "required")
	case len(cfg.Topics) == 0:
		return errors.NewValidationOp("kafka", "topics", "at least one topic required")
	case cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest":
		return errors.NewValidationOp("kafka", "auto_offset_reset", "must be earliest or latest")
	case cfg.Retry.MaxRetries < 0:
		return errors.NewValidationOp("kafka", "retry.max_retries", "must be >= 0")
	}
	return cfg.Security.Validate()
}

func (cfg *ConsumerConfig) setDefaults() {
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	setDurationDefault(&cfg.SessionTimeout, 30*time.Second)
	setDurationDefault(&cfg.HeartbeatInterval, 3*time.Second)
	setDurationDefault(&cfg.MaxWait, 10*time.Second)
	setIntDefault(&cfg.Retry.MaxRetries, 3)
	setDurationDefault(&cfg.Retry.RetryBackoff, time.Second)
	setDurationDefault(&cfg.Retry.MaxRetryBackoff, 30*time.Second)
}

type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
}

// ReaderInterface is the part of *kafka.Reader the consumer uses.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publisher sends dead letters.
type publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
	Close() error
}

// Consumer hands group messages to per-topic handlers.  An offset is
// committed only once its message was handled or dead-lettered, so a
// crash replays at most the message in flight.
type Consumer struct {
	reader     ReaderInterface
	deadLetter publisher
	config     ConsumerConfig
	logger     logging.Logger
	metrics    *ConsumerMetrics

	mu       sync.RWMutex
	handlers map[string]common.MessageHandler

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	dialer, err := adminDialer(cfg.Security)
	if err != nil {
		return nil, err
	}
	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		StartOffset:       start,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Dialer:            dialer,
	})

	var dl publisher
	if cfg.Retry.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{Brokers: cfg.Brokers, Security: cfg.Security}, logger)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
		dl = p
	}
	return newConsumerWithReader(reader, dl, cfg, logger), nil
}

func newConsumerWithReader(r ReaderInterface, dl publisher, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	cfg.setDefaults()
	return &Consumer{
		reader:     r,
		deadLetter: dl,
		config:     cfg,
		logger:     logger.Named("kafka-consumer"),
		metrics:    &ConsumerMetrics{},
		handlers:   map[string]common.MessageHandler{},
	}
}

func (c *Consumer) Metrics() *ConsumerMetrics { return c.metrics }

// Subscribe sets the handler of topic, replacing any earlier one.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	c.logger.Info("Subscribed", logging.String("topic", topic))
}

func (c *Consumer) handlerFor(topic string) (common.MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[topic]
	return h, ok
}

// Start runs the fetch loop in the background until ctx ends or Close.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	c.logger.Info("Consumer started", logging.String("group", c.config.GroupID), logging.Any("topics", c.config.Topics))
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("Fetch failed", logging.Err(err))
				sleep(ctx, time.Second)
			}
			continue
		}
		c.metrics.MessagesConsumed.Add(1)

		if handler, ok := c.handlerFor(m.Topic); !ok {
			c.logger.Warn("No handler, skipping", logging.String("topic", m.Topic), logging.Int64("offset", m.Offset))
		} else if err := c.processMessage(ctx, decode(m), handler); err != nil {
			// Cancelled while retrying.  The offset stays uncommitted.
			return
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("Commit failed", logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

// processMessage calls handler until it succeeds or the retries run out,
// then dead-letters msg.  Validation and serialization failures are not
// retried.  Only cancellation is returned.
func (c *Consumer) processMessage(ctx context.Context, msg *common.Message, handler common.MessageHandler) error {
	attempt := func() error {
		err := handler(ctx, msg)
		if err != nil && (errors.IsValidation(err) || errors.IsCode(err, errors.ErrCodeSerialization)) {
			return backoff.Permanent(err)
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		c.metrics.MessagesRetried.Add(1)
		c.logger.Debug("Retrying", logging.String("topic", msg.Topic), logging.Duration("wait", wait), logging.Err(err))
	}

	err := backoff.RetryNotify(attempt, c.retryPolicy(ctx), onRetry)
	switch {
	case err == nil:
		c.metrics.MessagesProcessed.Add(1)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}

	c.metrics.MessagesFailed.Add(1)
	c.logger.Error("Handler failed, giving up",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))
	c.sendToDeadLetter(ctx, msg, err)
	return nil
}

func (c *Consumer) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.Retry.RetryBackoff
	exp.MaxInterval = c.config.Retry.MaxRetryBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.config.Retry.MaxRetries)), ctx)
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *common.Message, cause error) {
	if c.deadLetter == nil || c.config.Retry.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["error_message"] = cause.Error()

	err := c.deadLetter.Publish(ctx, &common.ProducerMessage{
		Topic:   c.config.Retry.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("Dead-lettering failed", logging.String("topic", msg.Topic), logging.Err(err))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

// Close stops the loop and waits for the message in flight.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	err := c.reader.Close()
	if c.deadLetter != nil {
		_ = c.deadLetter.Close()
	}
	c.logger.Info("Consumer closed",
		logging.Int64("consumed", c.metrics.MessagesConsumed.Load()),
		logging.Int64("dead_lettered", c.metrics.MessagesDeadLettered.Load()))
	return err
}

func decode(m kafka.Message) *common.Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Timestamp: m.Time,
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

//Personal.AI order the ending
