package kafka

import (
	"context"
	stderrors "errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

type ProducerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// Acks is "none", "one" (default) or "all".
	Acks       string `mapstructure:"acks"`
	MaxRetries int    `mapstructure:"max_retries"`
	BatchSize  int    `mapstructure:"batch_size"`
	// BatchTimeout bounds how long a partial batch waits before it is sent.
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	MaxMessageBytes int           `mapstructure:"max_message_bytes"`
	// CompressionCodec is one of gzip, snappy, lz4 or zstd.  Empty disables
	// compression.
	CompressionCodec string         `mapstructure:"compression"`
	WriteTimeout     time.Duration  `mapstructure:"write_timeout"`
	Security         SecurityConfig `mapstructure:",squash"`
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.NewValidationOp("kafka", "brokers", "at least one broker required")
	case cfg.MaxRetries < 0:
		return errors.NewValidationOp("kafka", "max_retries", "must be >= 0")
	}
	return cfg.Security.Validate()
}

func (cfg *ProducerConfig) setDefaults() {
	setIntDefault(&cfg.MaxRetries, 3)
	setIntDefault(&cfg.BatchSize, 100)
	setIntDefault(&cfg.MaxMessageBytes, 1<<20)
	setDurationDefault(&cfg.BatchTimeout, 50*time.Millisecond)
	setDurationDefault(&cfg.WriteTimeout, 10*time.Second)
}

func setIntDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDurationDefault(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}

var ackLevels = map[string]kafka.RequiredAcks{
	"none": kafka.RequireNone,
	"one":  kafka.RequireOne,
	"all":  kafka.RequireAll,
}

var codecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// ProducerMetrics are in-process counters, exposed for tests and the
// shutdown log line.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// WriterInterface is the part of *kafka.Writer the producer uses.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes domain events.  Callers key messages by contract ID
// and the hash balancer keeps each contract's events on one partition.
type Producer struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	metrics *ProducerMetrics
	closed  atomic.Bool
}

// NewProducer builds the writer.  Brokers are first contacted on publish.
func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := cfg.Security.saslMechanism()
	if err != nil {
		return nil, err
	}

	acks, ok := ackLevels[cfg.Acks]
	if !ok {
		acks = kafka.RequireOne
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Compression:  codecs[cfg.CompressionCodec],
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second, TLS: tlsCfg, SASL: mech},
	}
	return newProducerWithWriter(w, cfg, logger), nil
}

func newProducerWithWriter(w WriterInterface, cfg ProducerConfig, logger logging.Logger) *Producer {
	cfg.setDefaults()
	return &Producer{writer: w, config: cfg, logger: logger.Named("kafka-producer"), metrics: &ProducerMetrics{}}
}

func (p *Producer) Metrics() *ProducerMetrics { return p.metrics }

// Publish writes msg and waits for the configured acks.
func (p *Producer) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if err := p.check(msg); err != nil {
		return err
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, encode(msg)); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.CodeMessageQueueError, "publish failed").WithDetail(msg.Topic)
	}
	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))
	p.logger.Debug("Published", logging.String("topic", msg.Topic), logging.Duration("latency", time.Since(start)))
	return nil
}

// PublishBatch writes msgs in one call.  Broker failures are reported per
// item in the result; only invalid input is returned as an error.
func (p *Producer) PublishBatch(ctx context.Context, msgs []*common.ProducerMessage) (*common.BatchPublishResult, error) {
	if p.closed.Load() {
		return nil, ErrProducerClosed
	}
	if len(msgs) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "messages empty")
	}
	batch := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		if err := p.check(m); err != nil {
			return nil, err
		}
		batch = append(batch, encode(m))
	}

	res := batchResult(p.writer.WriteMessages(ctx, batch...), len(msgs))
	p.metrics.MessagesSent.Add(int64(res.Succeeded))
	p.metrics.MessagesFailed.Add(int64(res.Failed))
	p.logger.Info("Published batch", logging.Int("succeeded", res.Succeeded), logging.Int("failed", res.Failed))
	return res, nil
}

// batchResult splits a kafka.WriteErrors into per-item outcomes.  Any
// other error fails the whole batch and is reported at index -1.
func batchResult(err error, n int) *common.BatchPublishResult {
	res := &common.BatchPublishResult{}
	if err == nil {
		res.Succeeded = n
		return res
	}
	var perItem kafka.WriteErrors
	if !stderrors.As(err, &perItem) {
		res.Failed = n
		res.Errors = []common.BatchItemError{{Index: -1, Error: err.Error()}}
		return res
	}
	for i, itemErr := range perItem {
		if itemErr == nil {
			res.Succeeded++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, common.BatchItemError{Index: i, Error: itemErr.Error()})
	}
	return res
}

func (p *Producer) check(msg *common.ProducerMessage) error {
	switch {
	case msg == nil || msg.Topic == "":
		return errors.New(errors.ErrCodeValidation, "topic required")
	case len(msg.Value) == 0:
		return errors.New(errors.ErrCodeValidation, "value required").WithDetail(msg.Topic)
	case len(msg.Value) > p.config.MaxMessageBytes:
		return errors.New(errors.ErrCodeValidation, "message too large").WithDetail(msg.Topic)
	}
	return nil
}

// Close flushes buffered messages.  Only the first call does anything.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Producer closed",
		logging.Int64("sent", p.metrics.MessagesSent.Load()),
		logging.Int64("failed", p.metrics.MessagesFailed.Load()))
	return err
}

// encode converts msg to the wire type.  Headers are sorted by key so
// the encoding is stable.
func encode(msg *common.ProducerMessage) kafka.Message {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafka.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafka.Header{Key: k, Value: []byte(msg.Headers[k])}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Time:      ts,
	}
}

//Personal.AI order the ending
