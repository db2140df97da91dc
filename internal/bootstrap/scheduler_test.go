package bootstrap

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/testutil"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

func TestScheduler_RunsAtStartAndOnInterval(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func(context.Context, time.Time) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestScheduler_FailureKeepsSchedule(t *testing.T) {
	logger := testutil.NewMockLogger()
	s := NewScheduler(logger)
	var runs atomic.Int32
	s.Every("flaky", 10*time.Millisecond, func(context.Context, time.Time) error {
		runs.Add(1)
		return errors.New(errors.ErrCodeExternalService, "talk unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	failures := logger.MessagesAt("error")
	require.NotEmpty(t, failures)
	assert.Equal(t, "flaky", failures[0].Field("job"))
}

func TestScheduler_SetInterval(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	var runs atomic.Int32
	s.Every("slow", time.Hour, func(context.Context, time.Time) error {
		runs.Add(1)
		return nil
	})

	assert.False(t, s.SetInterval("missing", time.Second))
	assert.False(t, s.SetInterval("slow", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()
	s.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, s.SetInterval("slow", 10*time.Millisecond))
	require.True(t, s.SetInterval("slow", 10*time.Millisecond))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_IgnoresJobWithoutInterval(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	called := false
	s.Every("never", 0, func(context.Context, time.Time) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait()
	assert.False(t, called)
	assert.False(t, s.SetInterval("never", time.Second))
}

func TestScheduler_PassesClock(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	fixed := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	seen := make(chan time.Time, 1)
	s.Every("clock", time.Hour, func(_ context.Context, now time.Time) error {
		select {
		case seen <- now:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	select {
	case got := <-seen:
		assert.Equal(t, fixed, got)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	cancel()
	s.Wait()
}

//Personal.AI order the ending
