// Package repositories implements the domain repository interfaces on top of
// PostgreSQL through database/sql and lib/pq.
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/lib/pq"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// Option configures a repository.
type Option func(*baseRepo)

// WithMetrics records query durations on m.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(r *baseRepo) { r.metrics = m }
}

// WithTx binds the repository to an open transaction.
func WithTx(tx *sql.Tx) Option {
	return func(r *baseRepo) { r.tx = tx }
}

type baseRepo struct {
	conn    *postgres.Connection
	tx      *sql.Tx
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

func newBaseRepo(conn *postgres.Connection, log logging.Logger, opts []Option) baseRepo {
	r := baseRepo{conn: conn, log: log}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r *baseRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

// observe records the duration of operation started at start.  It is
// deferred with a pointer to the named error result.
func (r *baseRepo) observe(operation string, start time.Time, err *error) {
	prometheus.RecordDBQuery(r.metrics, operation, time.Since(start), *err)
}

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

//Personal.AI order the ending
