package faillog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsAttemptNumbers(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	for i := 0; i < 3; i++ {
		err := l.Append("abc123", "활성 사용자 수를 알려줘", Entry{
			GeneratedSQL: "SELECT 1;",
			Execution:    ExecutionSummary{Success: false, Error: "syntax error"},
			RetryNeeded:  true,
		})
		require.NoError(t, err)
	}

	day := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, "sql_failures", day, "session_abc123_failures.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file struct {
		SessionInfo struct {
			SessionID string `json:"session_id"`
			UserQuery string `json:"user_query"`
		} `json:"session_info"`
		Failures []Entry `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(data, &file))

	assert.Equal(t, "abc123", file.SessionInfo.SessionID)
	assert.Equal(t, "활성 사용자 수를 알려줘", file.SessionInfo.UserQuery)
	require.Len(t, file.Failures, 3)
	assert.Equal(t, 1, file.Failures[0].AttemptNumber)
	assert.Equal(t, 3, file.Failures[2].AttemptNumber)
}

func TestAppendDisabled(t *testing.T) {
	// No directory configured: appends are silently dropped.
	l := New("")
	assert.NoError(t, l.Append("abc", "q", Entry{}))

	// No session ID: same.
	l = New(t.TempDir())
	assert.NoError(t, l.Append("", "q", Entry{}))
}
