package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is an Adapter backed by a pgx connection pool. The pool is
// established lazily on first use; each query runs on its own pooled
// connection, so concurrent pipeline runs never interleave reads on one
// physical connection.
type Postgres struct {
	dsn          string
	queryTimeout time.Duration
	log          *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres adapter. No connection is made until the
// first query.
func NewPostgres(dsn string, queryTimeout time.Duration, log *slog.Logger) *Postgres {
	return &Postgres{
		dsn:          dsn,
		queryTimeout: queryTimeout,
		log:          log,
	}
}

// ensurePool establishes the connection pool on first use, retrying the
// initial dial with exponential backoff.
func (p *Postgres) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		return p.pool, nil
	}

	var pool *pgxpool.Pool
	connect := func() error {
		var err error
		pool, err = pgxpool.New(ctx, p.dsn)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}

	if p.log != nil {
		p.log.Info("database pool established")
	}
	p.pool = pool
	return pool, nil
}

// Execute runs a single statement with the configured timeout.
func (p *Postgres) Execute(ctx context.Context, sql string) (Result, error) {
	start := time.Now()

	pool, err := p.ensurePool(ctx)
	if err != nil {
		return Result{Elapsed: time.Since(start), Error: err.Error()}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, sql)
	if err != nil {
		return Result{Elapsed: time.Since(start), Error: err.Error()}, nil
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	columns := make([]string, len(descs))
	for i, d := range descs {
		columns[i] = d.Name
	}

	var data []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{Columns: columns, Elapsed: time.Since(start), Error: err.Error()}, nil
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return Result{Columns: columns, Elapsed: time.Since(start), Error: err.Error()}, nil
	}

	return Result{
		Success:  true,
		Rows:     data,
		Columns:  columns,
		RowCount: len(data),
		Elapsed:  time.Since(start),
	}, nil
}

// TestConnection reports whether the database answers a trivial query.
func (p *Postgres) TestConnection(ctx context.Context) bool {
	result, err := p.Execute(ctx, "SELECT 1")
	return err == nil && result.Success
}

// DescribeTable returns column and primary-key information from the
// information schema.
func (p *Postgres) DescribeTable(ctx context.Context, name string) (TableInfo, error) {
	colResult, err := p.Execute(ctx, fmt.Sprintf(
		`SELECT column_name FROM information_schema.columns WHERE table_name = '%s' ORDER BY ordinal_position`, name))
	if err != nil {
		return TableInfo{}, err
	}
	if !colResult.Success {
		return TableInfo{}, fmt.Errorf("테이블 정보 조회 실패: %s", colResult.Error)
	}
	if colResult.RowCount == 0 {
		return TableInfo{Exists: false}, nil
	}

	info := TableInfo{Exists: true}
	for _, row := range colResult.Rows {
		if col, ok := row["column_name"].(string); ok {
			info.Columns = append(info.Columns, col)
		}
	}

	pkResult, err := p.Execute(ctx, fmt.Sprintf(
		`SELECT a.attname FROM pg_index i
		 JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		 WHERE i.indrelid = '%s'::regclass AND i.indisprimary`, name))
	if err == nil && pkResult.Success && pkResult.RowCount > 0 {
		if pk, ok := pkResult.Rows[0]["attname"].(string); ok {
			info.PrimaryKey = pk
		}
	}

	return info, nil
}

// Close tears down the pool.
func (p *Postgres) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}
