package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appreminder "github.com/turtacn/ContractKeeper/internal/application/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/redis"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/testutil"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

type mockReminders struct{ mock.Mock }

func (m *mockReminders) RunSweep(ctx context.Context, now time.Time) (*appreminder.SweepResult, error) {
	args := m.Called(ctx, now)
	res, _ := args.Get(0).(*appreminder.SweepResult)
	return res, args.Error(1)
}

type mockTrash struct{ mock.Mock }

func (m *mockTrash) RunExpirySweep(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

var sweepNow = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func newGuard(t *testing.T) (*redis.SweepGuard, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient(context.Background(), &redis.RedisConfig{Mode: redis.ModeStandalone, Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewSweepGuard(redis.NewLocker(client, logging.NewNopLogger()), logging.NewNopLogger(),
		redis.WithGuardTTL(time.Minute)), client
}

func TestSweeps_RemindersUnguarded(t *testing.T) {
	rem := new(mockReminders)
	rem.On("RunSweep", mock.Anything, sweepNow).Return(&appreminder.SweepResult{Candidates: 3, Sent: 1}, nil)

	logger := testutil.NewMockLogger()
	s := NewSweeps(nil, rem, new(mockTrash), logger)

	res, err := s.Reminders(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	msgs := logger.MessagesAt("info")
	require.NotEmpty(t, msgs)
	assert.Equal(t, 3, msgs[len(msgs)-1].Field("candidates"))
	rem.AssertExpectations(t)
}

func TestSweeps_TrashGuarded(t *testing.T) {
	guard, _ := newGuard(t)
	tr := new(mockTrash)
	tr.On("RunExpirySweep", mock.Anything, sweepNow).Return(4, nil)

	s := NewSweeps(guard, new(mockReminders), tr, logging.NewNopLogger())
	n, err := s.Trash(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// The lock is released afterwards, so a second run goes through.
	_, err = s.Trash(context.Background(), sweepNow)
	require.NoError(t, err)
	tr.AssertNumberOfCalls(t, "RunExpirySweep", 2)
}

func TestSweeps_LockedElsewhere(t *testing.T) {
	guard, client := newGuard(t)
	other := redis.NewLocker(client, logging.NewNopLogger()).NewMutex("sweep:"+appreminder.SweepName, redis.WithLockTTL(time.Minute))
	ok, err := other.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	rem := new(mockReminders)
	s := NewSweeps(guard, rem, new(mockTrash), logging.NewNopLogger())

	_, err = s.Reminders(context.Background(), sweepNow)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSweepLocked))

	assert.NoError(t, s.Run(context.Background(), kafka.SweepReminders, sweepNow), "contention is not a failure")
	rem.AssertNotCalled(t, "RunSweep", mock.Anything, mock.Anything)
}

func TestSweeps_RunPropagatesFailure(t *testing.T) {
	tr := new(mockTrash)
	tr.On("RunExpirySweep", mock.Anything, sweepNow).Return(0, errors.New(errors.ErrCodeExternalService, "directory down"))

	s := NewSweeps(nil, new(mockReminders), tr, logging.NewNopLogger())
	err := s.Run(context.Background(), kafka.SweepTrash, sweepNow)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))

	assert.True(t, errors.IsValidation(s.Run(context.Background(), "calendar", sweepNow)))
}

func TestSweeps_SweepRequestHandler(t *testing.T) {
	tr := new(mockTrash)
	tr.On("RunExpirySweep", mock.Anything, sweepNow).Return(2, nil)
	s := NewSweeps(nil, new(mockReminders), tr, logging.NewNopLogger())
	handle := s.SweepRequestHandler(func() time.Time { return sweepNow })

	pm, err := kafka.NewSweepRequest(kafka.SweepTrash, "alice", "contractctl")
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), &common.Message{Topic: pm.Topic, Value: pm.Value}))
	tr.AssertNumberOfCalls(t, "RunExpirySweep", 1)

	// Garbage is acknowledged, not retried.
	assert.NoError(t, handle(context.Background(), &common.Message{Topic: pm.Topic, Value: []byte("{")}))
	tr.AssertNumberOfCalls(t, "RunExpirySweep", 1)
}

//Personal.AI order the ending
