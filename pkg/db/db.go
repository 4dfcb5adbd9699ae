// Package db defines the database adapter contract, the read-only safety
// gate that fronts it, and the pgx and mock implementations.
package db

import (
	"context"
	"strings"
	"time"
)

// Result is the outcome of one query execution.
type Result struct {
	Success  bool
	Rows     []map[string]any
	Columns  []string
	RowCount int
	Elapsed  time.Duration
	// Error holds the database error text when Success is false.
	Error string
}

// TableInfo describes one table as reported by the database itself.
type TableInfo struct {
	Exists     bool
	Columns    []string
	PrimaryKey string
}

// Adapter is the transport to the relational database. Implementations must
// be safe for concurrent use; the pipeline never shares a Result across
// requests.
type Adapter interface {
	// Execute runs a single statement. Database-level failures are reported
	// through Result.Error, not the returned error; the error return is for
	// transport problems only.
	Execute(ctx context.Context, sql string) (Result, error)

	// TestConnection reports whether the database is reachable.
	TestConnection(ctx context.Context) bool

	// DescribeTable returns column and key information for a table.
	DescribeTable(ctx context.Context, name string) (TableInfo, error)

	// Close releases the underlying connection resources.
	Close()
}

// connectionErrorPatterns identify transport failures that regenerating SQL
// cannot fix. Matching is substring-based on the lowercased message.
var connectionErrorPatterns = []string{
	"connection",
	"tunnel",
	"dial",
	"연결 실패",
	"연결 오류",
}

// IsConnectionError reports whether an execution error message indicates the
// database is unreachable. Such failures are terminal for a pipeline run:
// they are never retried and bypass the result judge.
func IsConnectionError(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	for _, pattern := range connectionErrorPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
