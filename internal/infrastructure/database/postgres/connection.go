package postgres

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// Pool and session defaults used when the config leaves a value at zero.
const (
	defaultMaxOpen          = 10
	defaultMaxIdle          = 5
	defaultConnLifetime     = 30 * time.Minute
	defaultConnIdleTime     = 5 * time.Minute
	defaultStatementTimeout = 30 * time.Second
	defaultLockTimeout      = 10 * time.Second
	defaultApplicationName  = "contractkeeper"
	connectTimeout          = 5 * time.Second

	// poolPressure is the in-use share of open connections above which
	// HealthCheck warns.
	poolPressure = 0.8
)

// openDB is swapped for a sqlmock pool in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// PostgresConfig holds the database configuration.
type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Database         string        `mapstructure:"database"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ApplicationName  string        `mapstructure:"application_name"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

// DSN returns the connection URL.  Sessions run in UTC so DATE columns and
// deadline arithmetic never shift with the server's zone.
func (cfg PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.Database,
	}
	q := url.Values{}
	q.Set("sslmode", orString(cfg.SSLMode, "disable"))
	q.Set("application_name", orString(cfg.ApplicationName, defaultApplicationName))
	q.Set("timezone", "UTC")
	q.Set("statement_timeout", millis(cfg.StatementTimeout, defaultStatementTimeout))
	q.Set("lock_timeout", millis(cfg.LockTimeout, defaultLockTimeout))
	u.RawQuery = q.Encode()
	return u.String()
}

// Connection is the shared PostgreSQL pool.
type Connection struct {
	db     *sql.DB
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens the pool and pings it within connectTimeout.
func NewConnection(ctx context.Context, cfg PostgresConfig, log logging.Logger) (*Connection, error) {
	db, err := openDB(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}
	db.SetMaxOpenConns(orInt(cfg.MaxOpenConns, defaultMaxOpen))
	db.SetMaxIdleConns(orInt(cfg.MaxIdleConns, defaultMaxIdle))
	db.SetConnMaxLifetime(orDuration(cfg.ConnMaxLifetime, defaultConnLifetime))
	db.SetConnMaxIdleTime(orDuration(cfg.ConnMaxIdleTime, defaultConnIdleTime))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log = log.Named("postgres")
	log.Info("Connected",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database),
	)
	return &Connection{db: db, logger: log}, nil
}

// NewConnectionWithDB wraps an existing pool, typically a sqlmock one.
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	return &Connection{db: db, logger: log}
}

// DB returns the underlying pool.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// WithTransaction runs fn in a transaction, committing when fn returns nil.
func (c *Connection) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("Rollback failed", logging.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// HealthCheck pings the database.  A pool running above poolPressure is
// logged but still healthy.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	stats := c.db.Stats()
	if stats.OpenConnections == 0 {
		return nil
	}
	if usage := float64(stats.InUse) / float64(stats.OpenConnections); usage > poolPressure {
		c.logger.Warn("Connection pool under pressure",
			logging.Int("in_use", stats.InUse),
			logging.Int("open", stats.OpenConnections),
			logging.Float64("usage", usage),
		)
	}
	return nil
}

// Close closes the pool.  Later calls return nil.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		if err = c.db.Close(); err != nil {
			c.logger.Error("Failed to close pool", logging.Err(err))
			return
		}
		c.logger.Info("Pool closed")
	})
	return err
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
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

func millis(v, def time.Duration) string {
	return strconv.FormatInt(orDuration(v, def).Milliseconds(), 10)
}

//Personal.AI order the ending
