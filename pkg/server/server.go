// Package server exposes the conversion pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanq-labs/text2sql/pkg/db"
	"github.com/hanq-labs/text2sql/pkg/pipeline"
	"github.com/hanq-labs/text2sql/pkg/server/metrics"
)

// Server is the HTTP facade over one pipeline instance.
type Server struct {
	log      *slog.Logger
	pipeline *pipeline.Pipeline
	db       db.Adapter
	router   chi.Router
}

// New builds the server with its routes mounted.
func New(log *slog.Logger, p *pipeline.Pipeline, adapter db.Adapter) *Server {
	s := &Server{
		log:      log,
		pipeline: p,
		db:       adapter,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Get("/db/ping", s.handleDBPing)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// QueryRequest is the POST /query payload.
type QueryRequest struct {
	Query              string `json:"query"`
	Language           string `json:"language,omitempty"`
	IncludeExplanation bool   `json:"include_explanation,omitempty"`
}

// QueryResponse is the POST /query reply.
type QueryResponse struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message,omitempty"`
	SQL          string           `json:"sql,omitempty"`
	Explanation  string           `json:"explanation,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count"`
	RetryCount   int              `json:"retry_count"`
	SessionID    string           `json:"session_id,omitempty"`
	Steps        []string         `json:"steps,omitempty"`
	ElapsedMs    float64          `json:"elapsed_ms"`
	Timestamp    time.Time        `json:"timestamp"`
	ErrorType    string           `json:"error_type,omitempty"`
	ErrorDetails string           `json:"error_details,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, QueryResponse{
			Success:      false,
			Timestamp:    time.Now(),
			ErrorType:    "bad_request",
			ErrorDetails: "요청 본문을 해석할 수 없습니다: " + err.Error(),
		})
		return
	}
	if req.Query == "" {
		s.writeJSON(w, http.StatusBadRequest, QueryResponse{
			Success:      false,
			Timestamp:    time.Now(),
			ErrorType:    "bad_request",
			ErrorDetails: "query 필드는 필수입니다.",
		})
		return
	}

	result, err := s.pipeline.Convert(r.Context(), pipeline.Request{
		Query:              req.Query,
		Language:           req.Language,
		IncludeExplanation: req.IncludeExplanation,
	})
	if err != nil {
		s.log.Error("server: conversion error", "error", err)
		metrics.RecordConversion(0, 0, false)
		s.writeJSON(w, http.StatusInternalServerError, QueryResponse{
			Success:      false,
			Timestamp:    time.Now(),
			ErrorType:    "internal_error",
			ErrorDetails: err.Error(),
		})
		return
	}

	metrics.RecordConversion(result.ProcessingTime, result.Metadata.RetryCount, result.Success)

	resp := QueryResponse{
		Success:     result.Success,
		SQL:         result.SQL,
		Explanation: result.Explanation,
		Rows:        result.Rows,
		RowCount:    result.Metadata.RowCount,
		RetryCount:  result.Metadata.RetryCount,
		SessionID:   result.Metadata.SessionID,
		Steps:       result.ProcessingSteps,
		ElapsedMs:   float64(result.ProcessingTime.Milliseconds()),
		Timestamp:   time.Now(),
	}
	if result.Success {
		resp.Message = "쿼리가 성공적으로 실행되었습니다."
	} else {
		resp.ErrorType = "pipeline_error"
		resp.ErrorDetails = result.ErrorMessage
		resp.Message = "쿼리 처리에 실패했습니다."
	}

	// Pipeline failures are application outcomes, not transport errors.
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

func (s *Server) handleDBPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.db.TestConnection(ctx) {
		s.writeJSON(w, http.StatusOK, map[string]any{"connected": true})
		return
	}
	s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"connected": false})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("server: response encode failed", "error", err)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully with a
// 30 second drain window.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
