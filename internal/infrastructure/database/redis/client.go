// Package redis holds the cluster coordination of the service: a shared
// go-redis client (standalone, sentinel or cluster) and the leased locks
// that keep a reminder or trash sweep from running on two replicas at once.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeInternal, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeCacheError, "redis connection failed")
)

// Supported deployment modes.
const (
	ModeStandalone = "standalone"
	ModeSentinel   = "sentinel"
	ModeCluster    = "cluster"
)

// DefaultKeyPrefix namespaces every key the service writes.
const DefaultKeyPrefix = "contractkeeper:"

const pingTimeout = 5 * time.Second

type RedisConfig struct {
	Mode          string   `mapstructure:"mode"`
	Addr          string   `mapstructure:"addr"`
	MasterName    string   `mapstructure:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string `mapstructure:"cluster_addrs"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	DB            int      `mapstructure:"db"`
	// KeyPrefix lets several installations share one Redis.
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	TLSCAFile    string        `mapstructure:"tls_ca_file"`
	TLSInsecure  bool          `mapstructure:"tls_insecure"`
}

// Client is a closable handle on a go-redis universal client.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects according to cfg.Mode and pings the server.
func NewClient(ctx context.Context, cfg *RedisConfig, log logging.Logger) (*Client, error) {
	opts, err := universalOptions(cfg)
	if err != nil {
		return nil, err
	}

	var rdb redis.UniversalClient
	switch cfg.Mode {
	case ModeCluster:
		rdb = redis.NewClusterClient(opts.Cluster())
	case ModeSentinel:
		rdb = redis.NewFailoverClient(opts.Failover())
	case ModeStandalone, "":
		rdb = redis.NewClient(opts.Simple())
	default:
		return nil, errors.New(errors.ErrCodeConfigError, fmt.Sprintf("unknown redis mode %q", cfg.Mode))
	}

	c := &Client{rdb: rdb, prefix: cfg.KeyPrefix, logger: log.Named("redis")}
	if c.prefix == "" {
		c.prefix = DefaultKeyPrefix
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	c.logger.Info("Connected", logging.String("mode", orDefault(cfg.Mode, ModeStandalone)), logging.Any("addrs", opts.Addrs))
	return c, nil
}

// universalOptions maps cfg onto go-redis.  Addrs is picked by mode.
func universalOptions(cfg *RedisConfig) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MasterName:   cfg.MasterName,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  orDuration(cfg.DialTimeout, 5*time.Second),
		ReadTimeout:  orDuration(cfg.ReadTimeout, 3*time.Second),
		WriteTimeout: orDuration(cfg.WriteTimeout, 3*time.Second),
		MaxRetries:   cfg.MaxRetries,
	}
	switch cfg.Mode {
	case ModeCluster:
		opts.Addrs = cfg.ClusterAddrs
	case ModeSentinel:
		opts.Addrs = cfg.SentinelAddrs
	default:
		opts.Addrs = []string{cfg.Addr}
	}
	if len(opts.Addrs) == 0 {
		return nil, errors.New(errors.ErrCodeConfigError, fmt.Sprintf("redis %s mode needs at least one address", cfg.Mode))
	}

	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigError, "invalid redis tls configuration")
	}
	opts.TLSConfig = tlsCfg
	return opts, nil
}

func tlsConfig(cfg *RedisConfig) (*tls.Config, error) {
	if !cfg.TLSEnabled {
		return nil, nil
	}
	t := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: cfg.TLSInsecure}
	if cfg.TLSCAFile == "" {
		return t, nil
	}
	pem, err := os.ReadFile(cfg.TLSCAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAFile)
	}
	t.RootCAs = pool
	return t, nil
}

// Key prefixes name with the configured namespace.
func (c *Client) Key(name string) string {
	return c.prefix + name
}

// conn returns the live client or ErrClientClosed.
func (c *Client) conn() (redis.UniversalClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.rdb, nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis health check failed")
	}
	return nil
}

// Close releases the pool.  Later calls return nil.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close client", logging.Err(err))
		return err
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

//Personal.AI order the ending
