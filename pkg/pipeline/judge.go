package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

// judgeSampleRows caps how many result rows are shown to the judge.
const judgeSampleRows = 3

// judgeMaxRows is the row count above which the heuristic treats the result
// as unfiltered and asks for a regeneration. The boundary itself is valid.
const judgeMaxRows = 1000

// judge asks the model whether the execution result answers the user's query.
// Any model or parse failure falls back to the deterministic heuristic, so a
// verdict is always produced.
func (p *Pipeline) judge(ctx context.Context, state *State, outcome *ExecutionOutcome) *Verdict {
	userPrompt := p.buildJudgePrompt(state, outcome)

	response, err := p.cfg.LLM.Complete(ctx, judgeSystemPrompt, userPrompt)
	if err != nil {
		p.cfg.Logger.Warn("pipeline: result judge call failed, using heuristic", "error", err)
		return heuristicVerdict(outcome)
	}
	state.logInteraction(StageSQLExecution, fmt.Sprintf("rows: %d, success: %t", outcome.RowCount, outcome.Success), response)

	jsonStr := extract.JSONObject(response)
	if jsonStr == "" {
		p.cfg.Logger.Warn("pipeline: result judge returned no JSON, using heuristic")
		return heuristicVerdict(outcome)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(jsonStr), &verdict); err != nil {
		p.cfg.Logger.Warn("pipeline: result judge verdict unparseable, using heuristic", "error", err)
		return heuristicVerdict(outcome)
	}

	return &verdict
}

func (p *Pipeline) buildJudgePrompt(state *State, outcome *ExecutionOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**사용자 질의:** %s\n\n", state.UserQuery)
	fmt.Fprintf(&sb, "**실행된 SQL:**\n%s\n\n", outcome.SQL)
	fmt.Fprintf(&sb, "**실행 결과:**\n- 성공 여부: %t\n- 결과 행 수: %d\n- 실행 시간: %v\n",
		outcome.Success, outcome.RowCount, outcome.Elapsed)
	if outcome.Error != "" {
		fmt.Fprintf(&sb, "- 오류: %s\n", outcome.Error)
	}

	if len(outcome.Rows) > 0 {
		sample := outcome.Rows
		if len(sample) > judgeSampleRows {
			sample = sample[:judgeSampleRows]
		}
		if data, err := json.MarshalIndent(sample, "", "  "); err == nil {
			fmt.Fprintf(&sb, "\n**결과 샘플 (%d건):**\n%s\n", len(sample), data)
		}
	}

	sb.WriteString("\n위 실행 결과가 사용자 질의에 적절한 답변인지 JSON 형식으로 평가해주세요.")
	return sb.String()
}

// heuristicVerdict is the rule-based fallback used when the model judge is
// unavailable. Execution failures, empty results, and oversized results all
// request a retry.
func heuristicVerdict(outcome *ExecutionOutcome) *Verdict {
	if !outcome.Success {
		return &Verdict{
			ResultQuality: "poor",
			IssuesFound:   []string{fmt.Sprintf("SQL 실행 오류: %s", outcome.Error)},
			NeedsRetry:    true,
			RetryReason:   "SQL 실행 오류",
		}
	}
	if outcome.RowCount == 0 {
		return &Verdict{
			ResultQuality: "poor",
			IssuesFound:   []string{"쿼리 결과가 0건입니다."},
			NeedsRetry:    true,
			RetryReason:   "결과 없음",
		}
	}
	if outcome.RowCount > judgeMaxRows {
		return &Verdict{
			ResultQuality: "poor",
			IssuesFound:   []string{fmt.Sprintf("결과가 %d건으로 과도합니다.", outcome.RowCount)},
			NeedsRetry:    true,
			RetryReason:   "결과 과다",
		}
	}
	return &Verdict{
		IsValid:       true,
		ResultQuality: "good",
	}
}
