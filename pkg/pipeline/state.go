package pipeline

import (
	"fmt"
	"time"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

// Stage identifies one step of the pipeline state machine.
type Stage string

const (
	StageSchemaAnalysis    Stage = "schema_analysis"
	StageQueryPlanning     Stage = "query_planning"
	StageSQLDevelopment    Stage = "sql_development"
	StageQualityValidation Stage = "quality_validation"
	StageSQLExecution      Stage = "sql_execution"
	StageCompleted         Stage = "completed"
	StageError             Stage = "error"
)

// Interaction records one model exchange for the audit trace. Inputs and
// outputs are truncated so the trace stays bounded.
type Interaction struct {
	Stage  Stage  `json:"stage"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// State is the single mutable record threaded through every stage of one
// pipeline run. It is owned by exactly one run and never shared.
type State struct {
	// Input
	UserQuery string
	Language  string
	SessionID string

	// Progress
	Stage   Stage
	History []string

	// Per-stage results
	Resolution *SchemaResolution
	Plan       *ExecutionPlan
	Query      *SynthesizedQuery
	Validation *ValidationOutcome
	Execution  *ExecutionOutcome

	// Final output. Exactly one of FinalSQL and ErrorMessage is set once a
	// terminal stage is reached.
	FinalSQL      string
	Explanation   string
	ExecutionRows []map[string]any
	ErrorMessage  string

	// Retry bookkeeping. The counter is shared across all regeneration
	// cycles of the run; it is never reset per stage.
	RetryCount int

	// failedAt remembers which stage produced the error outcome, since
	// Stage itself has already moved to the error terminal by then.
	failedAt Stage

	Interactions []Interaction
	StartedAt    time.Time
}

// newState creates the state for one incoming query.
func newState(userQuery, language, sessionID string) *State {
	if language == "" {
		language = "korean"
	}
	return &State{
		UserQuery: userQuery,
		Language:  language,
		SessionID: sessionID,
		Stage:     StageSchemaAnalysis,
		StartedAt: time.Now(),
	}
}

// appendHistory adds a stage-completion message to the processing trace.
func (s *State) appendHistory(format string, args ...any) {
	s.History = append(s.History, fmt.Sprintf(format, args...))
}

// logInteraction appends one model exchange to the audit trace.
func (s *State) logInteraction(stage Stage, input, output string) {
	s.Interactions = append(s.Interactions, Interaction{
		Stage:  stage,
		Input:  extract.Truncate(input, 500),
		Output: extract.Truncate(output, 500),
	})
}

// fail marks the run as failed with a formatted message. Later calls keep
// the first message.
func (s *State) fail(format string, args ...any) {
	if s.ErrorMessage == "" {
		s.ErrorMessage = fmt.Sprintf(format, args...)
	}
}
