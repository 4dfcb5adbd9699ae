package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanq-labs/text2sql/pkg/db"
	"github.com/hanq-labs/text2sql/pkg/pipeline"
	"github.com/hanq-labs/text2sql/pkg/schema"
)

// stageLLM answers every model call with a response appropriate for the
// stage, detected from the system prompt's role line.
type stageLLM struct{}

func (stageLLM) Complete(_ context.Context, systemPrompt, _ string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "스키마 분석"):
		return `{"relevant_tables":[{"name":"User","table":"tb_user","attributes":{"status":{"column":"status","type":"varchar(20)"}}}],"analysis_notes":"ok"}`, nil
	case strings.Contains(systemPrompt, "실행 계획"):
		return `{"query_steps":["집계"],"join_strategy":[],"complexity_level":"낮음","estimated_performance":"빠름"}`, nil
	case strings.Contains(systemPrompt, "SQL 개발"):
		return `{"sql_query":"SELECT COUNT(*) AS 사용자수 FROM tb_user WHERE status = 'active';","explanation":"활성 사용자 집계"}`, nil
	case strings.Contains(systemPrompt, "실행 결과 분석"):
		return `{"is_valid":true,"result_quality":"good","needs_retry":false}`, nil
	default:
		return `{"is_valid":true,"final_sql":""}`, nil
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()

	catalog, err := schema.Parse([]byte(`{
		"database_schema": {
			"User": {
				"table": "tb_user",
				"attributes": {"status": {"column": "status", "type": "varchar(20)"}}
			}
		}
	}`))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := db.NewMock()
	p, err := pipeline.New(pipeline.Config{
		Logger:  log,
		LLM:     stageLLM{},
		DB:      adapter,
		Catalog: catalog,
	})
	require.NoError(t, err)

	return New(log, p, adapter)
}

func TestHandleQuery(t *testing.T) {
	srv := testServer(t)

	body := strings.NewReader(`{"query": "활성 사용자 수를 알려줘", "include_explanation": true}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "SELECT COUNT(*) AS 사용자수 FROM tb_user WHERE status = 'active';", resp.SQL)
	assert.Equal(t, "활성 사용자 집계", resp.Explanation)
	assert.Equal(t, 1, resp.RowCount)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Steps)
	assert.Empty(t, resp.ErrorType)
}

func TestHandleQueryMissingQuery(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "bad_request", resp.ErrorType)
}

func TestHandleQueryMalformedBody(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	// Drive one conversion so the pipeline counters have samples.
	body := strings.NewReader(`{"query": "활성 사용자 수를 알려줘"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	exposition := rec.Body.String()
	assert.Contains(t, exposition, "text2sql_http_requests_total")
	assert.Contains(t, exposition, "text2sql_conversion_duration_seconds")
	assert.Contains(t, exposition, `text2sql_conversions_total{status="success"}`)
}

func TestHandleDBPing(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/db/ping", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":true`)
}
