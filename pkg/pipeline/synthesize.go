package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

// synthesize turns the plan into a concrete SQL statement. On regeneration
// (the back-edge from execution) the previous attempt and its failure reason
// are included so the model can correct course.
func (p *Pipeline) synthesize(ctx context.Context, state *State) stageOutcome {
	if state.Plan == nil || state.Resolution == nil {
		state.fail("쿼리 계획 또는 스키마 분석 결과가 없어 SQL을 생성할 수 없습니다.")
		return outcomeError
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "**사용자 질의:** %s\n\n", state.UserQuery)

	fmt.Fprintf(&prompt, "**쿼리 실행 계획:**\n- 실행 단계: %s\n- JOIN 전략: %s\n- 복잡도: %s\n\n",
		strings.Join(state.Plan.QuerySteps, " / "),
		strings.Join(state.Plan.JoinStrategy, " / "),
		state.Plan.ComplexityLevel)

	prompt.WriteString("**관련 테이블 상세 정보:**\n")
	prompt.WriteString(formatTableDetails(state.Resolution.RelevantTables))

	fmt.Fprintf(&prompt, "\n**테이블 관계:** %s\n", strings.Join(state.Resolution.KeyRelationships, "; "))

	if state.RetryCount > 0 && state.Execution != nil {
		reason := state.Execution.Error
		if reason == "" && state.Execution.Verdict != nil {
			reason = state.Execution.Verdict.RetryReason
		}
		fmt.Fprintf(&prompt, `
**이전 시도가 실패했습니다 (시도 %d회째).**
이전 SQL:
%s

실패 사유: %s

실패 사유를 해결한 새로운 쿼리를 작성해주세요.
`, state.RetryCount, state.Execution.SQL, reason)
	}

	prompt.WriteString("\n위 정보를 바탕으로 사용자 질의를 처리하는 완전한 SQL 쿼리를 작성해주세요.\n")
	prompt.WriteString("반드시 실행 가능한 형태로, 한국어 컬럼 별칭을 포함하여 JSON 형식으로 응답해주세요.")

	response, err := p.cfg.LLM.Complete(ctx, synthesizerSystemPrompt, prompt.String())
	if err != nil {
		state.fail("SQL 생성 중 오류 발생: %v", err)
		return outcomeError
	}
	state.logInteraction(StageSQLDevelopment, fmt.Sprintf("plan steps: %d, retry: %d", len(state.Plan.QuerySteps), state.RetryCount), response)

	query, parseErr := parseSynthesized(response)
	if parseErr != nil {
		// Fall back to scanning the raw response for a statement span.
		fallbackSQL := extract.SQLStatement(response)
		if fallbackSQL == "" {
			state.fail("SQL 생성 파싱 실패: %v", parseErr)
			return outcomeError
		}
		query = &SynthesizedQuery{
			SQL:              fallbackSQL,
			Explanation:      fmt.Sprintf("SQL 파싱 오류로 인한 대체 추출: %v", parseErr),
			PerformanceNotes: "파싱 오류로 성능 분석 불가",
		}
		state.appendHistory("SQL 추출 완료 (파싱 오류 복구): %v", parseErr)
	} else {
		state.appendHistory("SQL 생성 완료: %d개 컬럼 예상", len(query.ExpectedColumns))
	}

	state.Query = query
	return outcomeAdvance
}

// parseSynthesized extracts a SynthesizedQuery from the model response.
func parseSynthesized(response string) (*SynthesizedQuery, error) {
	jsonStr := extract.JSONObject(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var query SynthesizedQuery
	if err := json.Unmarshal([]byte(jsonStr), &query); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(query.SQL) == "" {
		return nil, fmt.Errorf("generated SQL is empty")
	}

	return &query, nil
}

// formatTableDetails renders the resolved tables with their Korean column
// aliases for the synthesis prompt.
func formatTableDetails(tables []TableResolution) string {
	var sb strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&sb, "- 테이블 %s (%s)\n", t.Table, t.Name)
		for attrName, attr := range t.Attributes {
			col := attr.Column
			if col == "" {
				col = attrName
			}
			fmt.Fprintf(&sb, "  - %s (%s)", col, attr.Type)
			if len(attr.Aliases) > 0 {
				fmt.Fprintf(&sb, " 별칭: %s", strings.Join(attr.Aliases, ", "))
			}
			if len(attr.Values) > 0 {
				fmt.Fprintf(&sb, " 값: %s", strings.Join(attr.Values, ", "))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
