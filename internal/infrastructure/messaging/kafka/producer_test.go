package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, logging.NewNopLogger())
}

func msg(topic, key, value string) *common.ProducerMessage {
	return &common.ProducerMessage{Topic: topic, Key: []byte(key), Value: []byte(value)}
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b:9092"}}))

	err := ValidateProducerConfig(ProducerConfig{})
	assert.True(t, errors.IsValidation(err))

	err = ValidateProducerConfig(ProducerConfig{
		Brokers:  []string{"b:9092"},
		Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "GSSAPI", SASLUsername: "u", SASLPassword: "p"},
	})
	assert.True(t, errors.IsValidation(err))

	err = ValidateProducerConfig(ProducerConfig{Brokers: []string{"b:9092"}, Security: SecurityConfig{TLSEnabled: true}})
	assert.True(t, errors.IsValidation(err))
}

func TestNewProducer_AppliesDefaults(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Acks: "all", CompressionCodec: "zstd"}, logging.NewNopLogger())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 3, p.config.MaxRetries)
	assert.Equal(t, 1<<20, p.config.MaxMessageBytes)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Zstd, w.Compression)
	assert.Equal(t, 4, w.MaxAttempts)
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	w := &mockKafkaWriter{writeFunc: func(_ context.Context, msgs ...kafka.Message) error {
		captured = append(captured, msgs...)
		return nil
	}}
	p := newTestProducer(w)

	m := msg(common.TopicReminderDispatched, "42", `{"contractId":42}`)
	m.Headers = map[string]string{"event_type": "reminder.dispatched"}
	require.NoError(t, p.Publish(context.Background(), m))

	require.Len(t, captured, 1)
	assert.Equal(t, common.TopicReminderDispatched, captured[0].Topic)
	assert.Equal(t, []byte("42"), captured[0].Key)
	assert.False(t, captured[0].Time.IsZero())
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "event_type", captured[0].Headers[0].Key)
	assert.Equal(t, int64(1), p.Metrics().MessagesSent.Load())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	assert.True(t, errors.IsValidation(p.Publish(ctx, msg("", "k", "v"))))
	assert.True(t, errors.IsValidation(p.Publish(ctx, msg("t", "k", ""))))
	assert.True(t, errors.IsValidation(p.Publish(ctx, msg("t", "k", string(make([]byte, (1<<20)+1))))))
}

func TestPublish_WriteError(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return stderrors.New("broker down")
	}})

	err := p.Publish(context.Background(), msg("t", "k", "v"))
	assert.True(t, errors.IsCode(err, errors.CodeMessageQueueError))
	assert.Equal(t, int64(1), p.Metrics().MessagesFailed.Load())
}

func TestPublishBatch_PartialFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return kafka.WriteErrors{nil, stderrors.New("too large"), nil}
	}})

	res, err := p.PublishBatch(context.Background(), []*common.ProducerMessage{
		msg("t", "1", "a"), msg("t", "2", "b"), msg("t", "3", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "too large", res.Errors[0].Error)
}

func TestPublishBatch_TotalFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return stderrors.New("broker down")
	}})

	res, err := p.PublishBatch(context.Background(), []*common.ProducerMessage{msg("t", "1", "a"), msg("t", "2", "b")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, -1, res.Errors[0].Index)

	_, err = p.PublishBatch(context.Background(), nil)
	assert.True(t, errors.IsValidation(err))
}

func TestEncode_SortsHeaders(t *testing.T) {
	m := msg("t", "k", "v")
	m.Headers = map[string]string{"source": "worker", "event_id": "1", "event_type": "x"}

	got := encode(m)
	require.Len(t, got.Headers, 3)
	assert.Equal(t, "event_id", got.Headers[0].Key)
	assert.Equal(t, "event_type", got.Headers[1].Key)
	assert.Equal(t, "source", got.Headers[2].Key)
}

func TestNewProducer_UnknownAcksFallBackToOne(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Acks: "quorum"}, logging.NewNopLogger())
	require.NoError(t, err)
	defer p.Close()

	w := p.writer.(*kafka.Writer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.Equal(t, kafka.Compression(0), w.Compression)
}

func TestProducer_Close(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.Equal(t, ErrProducerClosed, p.Publish(context.Background(), msg("t", "k", "v")))
}

//Personal.AI order the ending
