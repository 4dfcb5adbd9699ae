// Package faillog persists failed SQL attempts per session for offline
// debugging. The pipeline only appends; nothing reads the log back.
package faillog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry records one failed attempt.
type Entry struct {
	Timestamp     time.Time        `json:"timestamp"`
	AttemptNumber int              `json:"attempt_number"`
	GeneratedSQL  string           `json:"generated_sql"`
	Execution     ExecutionSummary `json:"execution_result"`
	Verdict       map[string]any   `json:"analysis,omitempty"`
	RetryNeeded   bool             `json:"retry_needed"`
}

// ExecutionSummary is the condensed execution outcome stored with each entry.
type ExecutionSummary struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	RowCount  int     `json:"row_count"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

type sessionFile struct {
	SessionInfo sessionInfo `json:"session_info"`
	Failures    []Entry     `json:"failures"`
}

type sessionInfo struct {
	SessionID string    `json:"session_id"`
	UserQuery string    `json:"user_query"`
	StartTime time.Time `json:"start_time"`
}

// Logger appends failure entries to one JSON file per session under a dated
// directory. Safe for concurrent use across pipeline runs.
type Logger struct {
	dir string
	mu  sync.Mutex
}

// New creates a Logger rooted at dir. An empty dir disables logging.
func New(dir string) *Logger {
	return &Logger{dir: dir}
}

// Append records a failure for the given session, assigning the next attempt
// number within the session file.
func (l *Logger) Append(sessionID, userQuery string, entry Entry) error {
	if l == nil || l.dir == "" || sessionID == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	dir := filepath.Join(l.dir, "sql_failures", day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create failure log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("session_%s_failures.json", sessionID))

	var file sessionFile
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("corrupt failure log %s: %w", path, err)
		}
	} else {
		file = sessionFile{
			SessionInfo: sessionInfo{
				SessionID: sessionID,
				UserQuery: userQuery,
				StartTime: time.Now(),
			},
		}
	}

	entry.AttemptNumber = len(file.Failures) + 1
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	file.Failures = append(file.Failures, entry)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
