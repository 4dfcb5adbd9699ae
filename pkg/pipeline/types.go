package pipeline

import (
	"time"

	"github.com/hanq-labs/text2sql/pkg/schema"
)

// TableResolution is one table the resolver judged relevant to the query.
type TableResolution struct {
	// Name is the logical table name, e.g. "User".
	Name string `json:"name"`
	// Table is the physical table name, e.g. "tb_user".
	Table string `json:"table"`
	// Aliases are the Korean terms that mapped to this table.
	Aliases []string `json:"aliases,omitempty"`
	// Attributes maps logical attribute names to column descriptions.
	Attributes map[string]schema.Attribute `json:"attributes,omitempty"`
	// Relationships are links to other resolved tables.
	Relationships []string `json:"relationships,omitempty"`
}

// SchemaResolution is the minimal sufficient subset of the catalog needed to
// answer a query. Immutable once produced.
type SchemaResolution struct {
	RelevantTables   []TableResolution `json:"relevant_tables"`
	KeyRelationships []string          `json:"key_relationships,omitempty"`
	SuggestedJoins   []string          `json:"suggested_joins,omitempty"`
	AnalysisNotes    string            `json:"analysis_notes,omitempty"`
}

// ExecutionPlan is the ordered query construction plan. Immutable once
// produced.
type ExecutionPlan struct {
	QuerySteps           []string `json:"query_steps"`
	JoinStrategy         []string `json:"join_strategy"`
	SubqueryStructure    []string `json:"subquery_structure,omitempty"`
	ComplexityLevel      string   `json:"complexity_level"`
	EstimatedPerformance string   `json:"estimated_performance"`
}

// SynthesizedQuery is the generated SQL with its explanation. Validation may
// replace it wholesale with a corrected version; it is never partially
// edited.
type SynthesizedQuery struct {
	SQL              string   `json:"sql_query"`
	Explanation      string   `json:"explanation"`
	PerformanceNotes string   `json:"performance_notes,omitempty"`
	ExpectedColumns  []string `json:"expected_columns,omitempty"`
}

// ValidationOutcome is the result of the static validation stage. FinalSQL is
// always populated, even when invalid, so callers have something to show.
type ValidationOutcome struct {
	IsValid       bool     `json:"is_valid"`
	SyntaxErrors  []string `json:"syntax_errors"`
	LogicWarnings []string `json:"logic_warnings,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	FinalSQL      string   `json:"final_sql"`
}

// Verdict is the result judge's assessment of an execution result.
type Verdict struct {
	IsValid         bool     `json:"is_valid"`
	ResultQuality   string   `json:"result_quality"`
	IssuesFound     []string `json:"issues_found,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	NeedsRetry      bool     `json:"needs_retry"`
	RetryReason     string   `json:"retry_reason,omitempty"`
}

// ExecutionOutcome is the result of running the final SQL, produced fresh on
// every attempt.
type ExecutionOutcome struct {
	SQL      string
	Success  bool
	Rows     []map[string]any
	Columns  []string
	RowCount int
	Elapsed  time.Duration
	Error    string
	Verdict  *Verdict
}
