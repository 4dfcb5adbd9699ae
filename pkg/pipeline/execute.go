package pipeline

import (
	"context"
	"strings"

	"github.com/hanq-labs/text2sql/pkg/db"
	"github.com/hanq-labs/text2sql/pkg/faillog"
)

// execute runs the validated SQL through the safety gate and the database
// adapter, then hands the result to the judge. It is the only stage that can
// request a retry; the retry ceiling is checked before the counter moves so
// the counter never exceeds the configured maximum.
func (p *Pipeline) execute(ctx context.Context, state *State) stageOutcome {
	if state.Query == nil || strings.TrimSpace(state.Query.SQL) == "" {
		state.fail("실행할 SQL 쿼리가 없습니다.")
		return outcomeError
	}
	sql := state.Query.SQL

	// Safety violations are a property of the generated SQL, not of the
	// data; regenerating would not make a forbidden statement allowed.
	if violations := db.CheckQuerySafety(sql); len(violations) > 0 {
		state.appendHistory("안전성 검사 실패: %d건", len(violations))
		state.fail("쿼리 안전성 검사 실패: %s", strings.Join(violations, ", "))
		return outcomeError
	}

	result, err := p.cfg.DB.Execute(ctx, sql)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
	}

	outcome := &ExecutionOutcome{
		SQL:      sql,
		Success:  result.Success,
		Rows:     result.Rows,
		Columns:  result.Columns,
		RowCount: result.RowCount,
		Elapsed:  result.Elapsed,
		Error:    result.Error,
	}
	state.Execution = outcome

	// Connection failures are environmental. Retrying the same unreachable
	// database wastes the whole retry budget, so they terminate immediately
	// without consulting the judge.
	if !outcome.Success && db.IsConnectionError(outcome.Error) {
		p.recordFailure(state, outcome, false)
		state.appendHistory("데이터베이스 연결 실패")
		state.fail("데이터베이스 연결 실패: %s", outcome.Error)
		return outcomeError
	}

	verdict := p.judge(ctx, state, outcome)
	outcome.Verdict = verdict

	if outcome.Success && verdict.IsValid {
		state.FinalSQL = sql
		state.Explanation = state.Query.Explanation
		state.ExecutionRows = outcome.Rows
		state.appendHistory("SQL 실행 완료: %d건 조회 (%.0fms)", outcome.RowCount, outcome.Elapsed.Seconds()*1000)
		return outcomeAdvance
	}

	if verdict.NeedsRetry && state.RetryCount < p.cfg.MaxRetries {
		state.RetryCount++
		p.recordFailure(state, outcome, true)
		state.appendHistory("재시도 %d회차: %s", state.RetryCount, verdict.RetryReason)
		return outcomeRetry
	}

	p.recordFailure(state, outcome, false)
	if verdict.NeedsRetry {
		state.fail("최대 재시도 횟수 초과 (%d회): 더 구체적인 질의를 시도해보세요.", p.cfg.MaxRetries)
	} else {
		reason := verdict.RetryReason
		if reason == "" {
			reason = outcome.Error
		}
		state.fail("SQL 실행 결과가 유효하지 않습니다: %s", reason)
	}
	return outcomeError
}

// recordFailure appends the failed attempt to the failure log. Logging
// failures are reported but never interrupt the run.
func (p *Pipeline) recordFailure(state *State, outcome *ExecutionOutcome, retryNeeded bool) {
	if p.cfg.FailLog == nil {
		return
	}

	entry := faillog.Entry{
		GeneratedSQL: outcome.SQL,
		Execution: faillog.ExecutionSummary{
			Success:   outcome.Success,
			Error:     outcome.Error,
			RowCount:  outcome.RowCount,
			ElapsedMs: float64(outcome.Elapsed.Milliseconds()),
		},
		RetryNeeded: retryNeeded,
	}
	if v := outcome.Verdict; v != nil {
		entry.Verdict = map[string]any{
			"is_valid":       v.IsValid,
			"result_quality": v.ResultQuality,
			"issues_found":   v.IssuesFound,
			"needs_retry":    v.NeedsRetry,
			"retry_reason":   v.RetryReason,
		}
	}

	if err := p.cfg.FailLog.Append(state.SessionID, state.UserQuery, entry); err != nil {
		p.cfg.Logger.Warn("pipeline: failure log write failed", "error", err, "session", state.SessionID)
	}
}
