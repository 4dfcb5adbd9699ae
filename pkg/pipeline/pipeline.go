// Package pipeline converts Korean natural-language questions into validated,
// executed SQL through a staged state machine: schema analysis, query
// planning, SQL development, quality validation, and safety-gated execution
// with a bounded regeneration loop on semantically poor results.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hanq-labs/text2sql/pkg/db"
	"github.com/hanq-labs/text2sql/pkg/faillog"
	"github.com/hanq-labs/text2sql/pkg/llm"
	"github.com/hanq-labs/text2sql/pkg/schema"
)

// DefaultMaxRetries is the regeneration ceiling applied when Config leaves
// MaxRetries unset.
const DefaultMaxRetries = 20

// stageOutcome is what a stage handler reports back to the driver loop.
type stageOutcome int

const (
	// outcomeAdvance moves to the next stage in the forward chain.
	outcomeAdvance stageOutcome = iota
	// outcomeRetry takes the back-edge from execution to SQL development.
	outcomeRetry
	// outcomeError terminates the run in the error stage.
	outcomeError
)

// Config wires the pipeline's collaborators.
type Config struct {
	Logger  *slog.Logger
	LLM     llm.Client
	DB      db.Adapter
	Catalog *schema.Catalog

	// FailLog receives failed execution attempts. Optional.
	FailLog *faillog.Logger

	// MaxRetries bounds how many times execution may send the run back to
	// SQL development. Zero means DefaultMaxRetries.
	MaxRetries int
}

// Pipeline runs natural-language-to-SQL conversions. Safe for concurrent use;
// each run owns its own State.
type Pipeline struct {
	cfg Config
}

// New validates the configuration and returns a ready pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("pipeline: logger is required")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("pipeline: llm client is required")
	}
	if cfg.DB == nil {
		return nil, fmt.Errorf("pipeline: database adapter is required")
	}
	if cfg.Catalog == nil || len(cfg.Catalog.Tables) == 0 {
		return nil, fmt.Errorf("pipeline: schema catalog is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Pipeline{cfg: cfg}, nil
}

// Request is one conversion request.
type Request struct {
	// Query is the natural-language question. Required.
	Query string `json:"query"`
	// Language of the question. Defaults to "korean".
	Language string `json:"language,omitempty"`
	// IncludeExplanation includes the model's SQL explanation in the
	// response.
	IncludeExplanation bool `json:"include_explanation,omitempty"`
}

// Response is the outcome of one conversion.
type Response struct {
	Success         bool             `json:"success"`
	SQL             string           `json:"sql,omitempty"`
	Explanation     string           `json:"explanation,omitempty"`
	Rows            []map[string]any `json:"rows,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	FailedAtStage   Stage            `json:"failed_at_stage,omitempty"`
	ProcessingSteps []string         `json:"processing_steps,omitempty"`
	ProcessingTime  time.Duration    `json:"processing_time"`
	Metadata        Metadata         `json:"metadata"`
}

// Metadata carries run bookkeeping alongside the result.
type Metadata struct {
	SessionID        string `json:"session_id"`
	RetryCount       int    `json:"retry_count"`
	RowCount         int    `json:"row_count"`
	TablesAnalyzed   int    `json:"tables_analyzed"`
	ComplexityLevel  string `json:"complexity_level,omitempty"`
	InteractionCount int    `json:"interaction_count"`
}

// Convert runs the full state machine for one request.
func (p *Pipeline) Convert(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("pipeline: query is required")
	}

	state := newState(req.Query, req.Language, uuid.NewString())
	log := p.cfg.Logger.With("session", state.SessionID)
	log.Info("pipeline: conversion started", "query", req.Query)

	p.run(ctx, state, log)

	resp := &Response{
		ProcessingSteps: state.History,
		ProcessingTime:  time.Since(state.StartedAt),
		Metadata: Metadata{
			SessionID:        state.SessionID,
			RetryCount:       state.RetryCount,
			InteractionCount: len(state.Interactions),
		},
	}
	if state.Resolution != nil {
		resp.Metadata.TablesAnalyzed = len(state.Resolution.RelevantTables)
	}
	if state.Plan != nil {
		resp.Metadata.ComplexityLevel = state.Plan.ComplexityLevel
	}

	switch state.Stage {
	case StageCompleted:
		resp.Success = true
		resp.SQL = state.FinalSQL
		resp.Rows = state.ExecutionRows
		resp.Metadata.RowCount = len(state.ExecutionRows)
		if req.IncludeExplanation {
			resp.Explanation = state.Explanation
		}
		log.Info("pipeline: conversion completed",
			"rows", resp.Metadata.RowCount,
			"retries", state.RetryCount,
			"elapsed", resp.ProcessingTime)
	default:
		resp.ErrorMessage = state.ErrorMessage
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = "알 수 없는 오류가 발생했습니다."
		}
		resp.FailedAtStage = state.failedAt
		log.Warn("pipeline: conversion failed",
			"stage", state.failedAt,
			"error", resp.ErrorMessage,
			"retries", state.RetryCount)
	}

	return resp, nil
}

// run drives the state machine to a terminal stage. A panicking stage handler
// is converted into an error terminal so a single bad run cannot take the
// process down.
func (p *Pipeline) run(ctx context.Context, state *State, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: stage panicked", "stage", state.Stage, "panic", r)
			state.fail("파이프라인 내부 오류: %v", r)
			state.failedAt = state.Stage
			state.Stage = StageError
		}
	}()

	for state.Stage != StageCompleted && state.Stage != StageError {
		if err := ctx.Err(); err != nil {
			state.fail("요청이 취소되었습니다: %v", err)
			state.failedAt = state.Stage
			state.Stage = StageError
			return
		}

		handler, ok := p.handlers()[state.Stage]
		if !ok {
			state.fail("알 수 없는 파이프라인 단계: %s", state.Stage)
			state.failedAt = state.Stage
			state.Stage = StageError
			return
		}

		log.Debug("pipeline: entering stage", "stage", state.Stage, "retries", state.RetryCount)
		outcome := handler(ctx, state)
		if outcome == outcomeError {
			state.failedAt = state.Stage
		}
		state.Stage = transition(state.Stage, outcome)
	}

	// Terminal invariant: completion always carries SQL.
	if state.Stage == StageCompleted && state.FinalSQL == "" {
		state.fail("최종 SQL이 생성되지 않았습니다.")
		state.failedAt = StageSQLExecution
		state.Stage = StageError
	}
}

// handlers maps each non-terminal stage to its handler.
func (p *Pipeline) handlers() map[Stage]func(context.Context, *State) stageOutcome {
	return map[Stage]func(context.Context, *State) stageOutcome{
		StageSchemaAnalysis:    p.resolveSchema,
		StageQueryPlanning:     p.buildPlan,
		StageSQLDevelopment:    p.synthesize,
		StageQualityValidation: p.validate,
		StageSQLExecution:      p.execute,
	}
}

// transition is the pure stage transition function. The only back-edge is
// execution returning to SQL development on a retry; every error outcome goes
// to the error terminal regardless of stage.
func transition(stage Stage, outcome stageOutcome) Stage {
	if outcome == outcomeError {
		return StageError
	}
	if outcome == outcomeRetry {
		if stage == StageSQLExecution {
			return StageSQLDevelopment
		}
		return StageError
	}

	switch stage {
	case StageSchemaAnalysis:
		return StageQueryPlanning
	case StageQueryPlanning:
		return StageSQLDevelopment
	case StageSQLDevelopment:
		return StageQualityValidation
	case StageQualityValidation:
		return StageSQLExecution
	case StageSQLExecution:
		return StageCompleted
	default:
		return StageError
	}
}
