package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

// buildPlan turns the schema resolution into an ordered execution plan.
// No plan means synthesis cannot proceed meaningfully, so failure is fatal.
func (p *Pipeline) buildPlan(ctx context.Context, state *State) stageOutcome {
	if state.Resolution == nil {
		state.fail("스키마 분석 결과가 없어 쿼리 계획을 수립할 수 없습니다.")
		return outcomeError
	}

	var summary strings.Builder
	for _, t := range state.Resolution.RelevantTables {
		summary.WriteString(fmt.Sprintf("- %s (%s), 별칭: %s\n", t.Name, t.Table, strings.Join(t.Aliases, ", ")))
		if len(t.Relationships) > 0 {
			summary.WriteString(fmt.Sprintf("  관계: %s\n", strings.Join(t.Relationships, "; ")))
		}
	}

	userPrompt := fmt.Sprintf(`**사용자 질의:** %s

**스키마 분석 결과:**
%s
**테이블 관계:** %s
**제안된 JOIN:** %s
**분석 노트:** %s

위 정보를 바탕으로 쿼리의 최적 실행 계획을 수립해주세요.
테이블 크기, JOIN 순서, 인덱스 활용 등을 고려하여 성능 최적화된 계획을 JSON 형식으로 제공해주세요.`,
		state.UserQuery,
		summary.String(),
		strings.Join(state.Resolution.KeyRelationships, "; "),
		strings.Join(state.Resolution.SuggestedJoins, "; "),
		state.Resolution.AnalysisNotes)

	response, err := p.cfg.LLM.Complete(ctx, plannerSystemPrompt, userPrompt)
	if err != nil {
		state.fail("쿼리 계획 수립 중 오류 발생: %v", err)
		return outcomeError
	}
	state.logInteraction(StageQueryPlanning, fmt.Sprintf("schema tables: %d", len(state.Resolution.RelevantTables)), response)

	plan, err := parsePlan(response)
	if err != nil {
		state.Plan = &ExecutionPlan{
			QuerySteps:           []string{fmt.Sprintf("쿼리 계획 파싱 오류: %v", err)},
			ComplexityLevel:      "알 수 없음",
			EstimatedPerformance: fmt.Sprintf("계획 파싱 실패: %s", extract.Truncate(response, 500)),
		}
		state.fail("쿼리 계획 파싱 실패: %v", err)
		return outcomeError
	}

	state.Plan = plan
	state.appendHistory("쿼리 계획 수립 완료: %d단계, 복잡도 %s", len(plan.QuerySteps), plan.ComplexityLevel)
	return outcomeAdvance
}

// parsePlan extracts an ExecutionPlan from the model response.
func parsePlan(response string) (*ExecutionPlan, error) {
	jsonStr := extract.JSONObject(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var plan ExecutionPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if plan.ComplexityLevel == "" {
		plan.ComplexityLevel = "알 수 없음"
	}
	if plan.EstimatedPerformance == "" {
		plan.EstimatedPerformance = "성능 예측 불가"
	}

	return &plan, nil
}
