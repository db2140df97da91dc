package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mail "github.com/wneessen/go-mail"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (r *recordingSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msgs...)
	return nil
}

func newTestMailer(s sender) *Mailer {
	cfg := Config{Host: "smtp.example.com", From: "contracts@example.com", FromName: "ContractKeeper"}
	return newMailerWithSender(cfg, s, logging.NewNopLogger())
}

func TestSend_BuildsMultipartMessage(t *testing.T) {
	rec := &recordingSender{}
	m := newTestMailer(rec)

	err := m.Send(context.Background(), "alice@example.com", "Cancellation reminder: Hosting",
		"<p>Cancel <b>Hosting</b></p>", "Cancel Hosting")
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	var buf bytes.Buffer
	_, err = rec.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "alice@example.com")
	assert.Contains(t, raw, "Cancellation reminder: Hosting")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestSend_InvalidRecipient(t *testing.T) {
	rec := &recordingSender{}
	err := newTestMailer(rec).Send(context.Background(), "not an address", "s", "h", "p")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRecipientUnknown))
	assert.Empty(t, rec.sent)
}

func TestSend_DeliveryFailure(t *testing.T) {
	rec := &recordingSender{err: assert.AnError}
	err := newTestMailer(rec).Send(context.Background(), "alice@example.com", "s", "h", "p")
	assert.True(t, errors.IsCode(err, errors.ErrCodeTransportFailure))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate(), "disabled config is valid")
	assert.True(t, errors.IsValidation(Config{Host: "smtp"}.Validate()))
	assert.True(t, errors.IsValidation(Config{Host: "smtp", From: "a@b.c", TLSPolicy: "maybe"}.Validate()))
	assert.NoError(t, Config{Host: "smtp", From: "a@b.c", TLSPolicy: "ssl"}.Validate())
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(Config{Host: "smtp.example.com", From: "a@example.com", Username: "u", Password: "p"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 587, m.config.Port)

	_, err = NewMailer(Config{Host: "smtp.example.com"}, logging.NewNopLogger())
	assert.True(t, errors.IsValidation(err))
}

//Personal.AI order the ending
