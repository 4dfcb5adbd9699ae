package db

import (
	"context"
	"strings"
	"time"
)

// Mock is an in-memory Adapter for development and tests. It fabricates
// plausible results keyed off the query shape, the way a fixture database
// would answer.
type Mock struct{}

// NewMock creates a Mock adapter.
func NewMock() *Mock {
	return &Mock{}
}

// Execute returns a canned result matching the query shape.
func (m *Mock) Execute(_ context.Context, sql string) (Result, error) {
	start := time.Now()
	upper := strings.ToUpper(sql)
	lower := strings.ToLower(sql)

	switch {
	case strings.Contains(upper, "COUNT"):
		col := "COUNT(*)"
		if strings.Contains(sql, "사용자수") {
			col = "사용자수"
		}
		return Result{
			Success:  true,
			Rows:     []map[string]any{{col: 1247}},
			Columns:  []string{col},
			RowCount: 1,
			Elapsed:  time.Since(start),
		}, nil

	case strings.Contains(lower, "tb_user"):
		rows := []map[string]any{
			{"id": 1001, "name": "홍길동", "email": "hong@test.com"},
			{"id": 1002, "name": "김철수", "email": "kim@test.com"},
			{"id": 1003, "name": "이영희", "email": "lee@test.com"},
		}
		return Result{
			Success:  true,
			Rows:     rows,
			Columns:  []string{"id", "name", "email"},
			RowCount: len(rows),
			Elapsed:  time.Since(start),
		}, nil

	case strings.Contains(lower, "tb_transaction"):
		rows := []map[string]any{
			{"사용자 이름": "홍길동", "총 거래 금액": 1500000},
			{"사용자 이름": "김철수", "총 거래 금액": 1200000},
		}
		return Result{
			Success:  true,
			Rows:     rows,
			Columns:  []string{"사용자 이름", "총 거래 금액"},
			RowCount: len(rows),
			Elapsed:  time.Since(start),
		}, nil

	default:
		return Result{
			Success:  true,
			Rows:     []map[string]any{{"result": "SUCCESS"}},
			Columns:  []string{"result"},
			RowCount: 1,
			Elapsed:  time.Since(start),
		}, nil
	}
}

// TestConnection always succeeds for the mock.
func (m *Mock) TestConnection(context.Context) bool {
	return true
}

// DescribeTable returns a fixed three-column table.
func (m *Mock) DescribeTable(_ context.Context, name string) (TableInfo, error) {
	return TableInfo{
		Exists:     true,
		Columns:    []string{"id", "name", "amount"},
		PrimaryKey: "id",
	}, nil
}

// Close is a no-op.
func (m *Mock) Close() {}
