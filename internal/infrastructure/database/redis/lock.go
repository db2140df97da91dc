package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

const defaultLockTTL = 30 * time.Second

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeSweepLocked, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeCacheError, "lock not held by this owner")
)

// Both scripts act only when the key still carries our token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker hands out mutexes stored under "<prefix>lock:<name>".
type Locker struct {
	client *Client
	log    logging.Logger
}

func NewLocker(client *Client, log logging.Logger) *Locker {
	return &Locker{client: client, log: log}
}

// LockOption configures a Mutex.
type LockOption func(*Mutex)

// WithLockTTL sets how long the key lives without an extension.
func WithLockTTL(ttl time.Duration) LockOption {
	return func(m *Mutex) { m.ttl = ttl }
}

// WithWatchdog extends the lease every interval while the mutex is held.
// Zero means a third of the TTL.
func WithWatchdog(interval time.Duration) LockOption {
	return func(m *Mutex) {
		m.watch = true
		m.interval = interval
	}
}

// NewMutex returns an unlocked mutex with a fresh owner token.
func (l *Locker) NewMutex(name string, opts ...LockOption) *Mutex {
	m := &Mutex{
		client: l.client,
		key:    l.client.Key("lock:" + name),
		token:  uuid.NewString(),
		ttl:    defaultLockTTL,
		log:    l.log.With(logging.String("lock", name)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.watch && m.interval <= 0 {
		m.interval = m.ttl / 3
	}
	return m
}

// Mutex is a single-owner lease on one key.  It is not reentrant and a
// value must not be shared between goroutines.
type Mutex struct {
	client   *Client
	key      string
	token    string
	ttl      time.Duration
	watch    bool
	interval time.Duration
	log      logging.Logger

	stop context.CancelFunc
	done chan struct{}
}

// TryLock takes the lease if it is free.  It never waits.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.conn()
	if err != nil {
		return false, err
	}
	ok, err := rdb.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if ok && m.watch {
		m.startWatchdog()
	}
	return ok, nil
}

// Unlock releases the lease.  It returns ErrLockNotHeld when the key
// expired or belongs to someone else.
func (m *Mutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	rdb, err := m.client.conn()
	if err != nil {
		return err
	}
	n, err := releaseScript.Run(ctx, rdb, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the lease to ttl.  False means the lease was lost.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	rdb, err := m.client.conn()
	if err != nil {
		return false, err
	}
	n, err := extendScript.Run(ctx, rdb, []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend lock")
	}
	return n == 1, nil
}

func (m *Mutex) startWatchdog() {
	ctx, cancel := context.WithCancel(context.Background())
	m.stop = cancel
	m.done = make(chan struct{})
	go m.keepAlive(ctx)
}

func (m *Mutex) stopWatchdog() {
	if m.stop == nil {
		return
	}
	m.stop()
	<-m.done
	m.stop = nil
}

func (m *Mutex) keepAlive(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := m.Extend(ctx, m.ttl)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					m.log.Error("Watchdog failed to extend lock", logging.Err(err))
				}
				return
			case !ok:
				m.log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}

//Personal.AI order the ending
