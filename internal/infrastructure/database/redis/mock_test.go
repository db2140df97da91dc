package redis

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// Server-side failures are hard to provoke in miniredis, so these run
// against a scripted client.
func newMockClient(t *testing.T) (*Client, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return &Client{rdb: db, prefix: DefaultKeyPrefix, logger: logging.NewNopLogger()}, mock
}

func TestMockClient_HealthCheckFails(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectPing().SetErr(stderrors.New("LOADING dataset in memory"))

	err := client.HealthCheck(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestMockClient_TryLockError(t *testing.T) {
	client, mock := newMockClient(t)
	m := NewLocker(client, logging.NewNopLogger()).NewMutex("sweep:trash", WithLockTTL(time.Minute))
	mock.ExpectSetNX("contractkeeper:lock:sweep:trash", m.token, time.Minute).SetErr(stderrors.New("READONLY replica"))

	ok, err := m.TryLock(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestMockClient_UnlockScriptError(t *testing.T) {
	client, mock := newMockClient(t)
	m := NewLocker(client, logging.NewNopLogger()).NewMutex("sweep:reminders")
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"contractkeeper:lock:sweep:reminders"}, m.token).
		SetErr(stderrors.New("connection reset"))

	err := m.Unlock(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
	assert.NotEqual(t, ErrLockNotHeld, err)
}

func TestMockClient_ExtendLost(t *testing.T) {
	client, mock := newMockClient(t)
	m := NewLocker(client, logging.NewNopLogger()).NewMutex("x")
	mock.ExpectEvalSha(extendScript.Hash(), []string{"contractkeeper:lock:x"}, m.token, int64(5000)).SetVal(int64(0))

	ok, err := m.Extend(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

//Personal.AI order the ending
