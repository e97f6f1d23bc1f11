package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retailpulse/retailpulse-go/internal/logging"
)

// TracedPool wraps a DatabasePool and logs per-query durations through the
// structured logger. It satisfies DatabasePool, so repositories can take
// either the raw pool or the traced one.
type TracedPool struct {
	pool   DatabasePool
	logger logging.Logger
}

// NewTracedPool wraps pool with duration logging.
func NewTracedPool(pool DatabasePool, logger logging.Logger) *TracedPool {
	return &TracedPool{pool: pool, logger: logger}
}

func (t *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := t.pool.Query(ctx, sql, args...)
	t.logger.LogDatabaseOperation("query", "sales_records", time.Since(start).Milliseconds(), -1)
	return rows, err
}

func (t *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := t.pool.QueryRow(ctx, sql, args...)
	t.logger.LogDatabaseOperation("query_row", "sales_records", time.Since(start).Milliseconds(), -1)
	return row
}

func (t *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := t.pool.Exec(ctx, sql, args...)
	t.logger.LogDatabaseOperation("exec", "sales_records", time.Since(start).Milliseconds(), tag.RowsAffected())
	return tag, err
}
