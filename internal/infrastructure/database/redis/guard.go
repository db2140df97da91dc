package redis

import (
	"context"
	"time"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
)

// SweepGuard runs scheduled jobs under a cluster-wide mutex so that only
// one replica executes a given sweep at a time.  A nil *SweepGuard runs the
// job unguarded.
type SweepGuard struct {
	locks   *Locker
	ttl     time.Duration
	metrics *prometheus.AppMetrics
	log     logging.Logger
}

// GuardOption configures a SweepGuard.
type GuardOption func(*SweepGuard)

// WithGuardTTL sets the lock TTL.  The watchdog extends it while the job runs.
func WithGuardTTL(ttl time.Duration) GuardOption {
	return func(g *SweepGuard) { g.ttl = ttl }
}

// WithGuardMetrics counts contention in m.
func WithGuardMetrics(m *prometheus.AppMetrics) GuardOption {
	return func(g *SweepGuard) { g.metrics = m }
}

func NewSweepGuard(locks *Locker, log logging.Logger, opts ...GuardOption) *SweepGuard {
	g := &SweepGuard{locks: locks, ttl: 2 * time.Minute, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes fn while holding the lock "sweep:<name>".  When another
// holder has it, Run returns ErrLockNotAcquired without calling fn.
func (g *SweepGuard) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}

	lock := g.locks.NewMutex("sweep:"+name, WithLockTTL(g.ttl), WithWatchdog(0))
	ok, err := lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		prometheus.RecordLockContention(g.metrics, name)
		g.log.Info("Sweep already running elsewhere, skipping", logging.String("sweep", name))
		return ErrLockNotAcquired.WithDetail(name)
	}

	defer func() {
		// Release with a fresh context so a cancelled run still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if uerr := lock.Unlock(releaseCtx); uerr != nil {
			g.log.Warn("Failed to release sweep lock", logging.String("sweep", name), logging.Err(uerr))
		}
	}()

	return fn(ctx)
}

//Personal.AI order the ending
