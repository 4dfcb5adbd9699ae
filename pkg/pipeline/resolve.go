package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

// resolveSchema maps the query onto a minimal sufficient subset of the
// catalog. An unparseable resolution is fatal: continuing with zero tables
// would only produce garbage SQL downstream.
func (p *Pipeline) resolveSchema(ctx context.Context, state *State) stageOutcome {
	userPrompt := fmt.Sprintf(`**사용자 질의:** %s

**사용 가능한 데이터베이스 스키마:**
%s

위 스키마를 분석하여 사용자 질의를 처리하는데 필요한 테이블과 컬럼을 식별하고,
테이블 간의 관계를 파악하여 JSON 형식으로 응답해주세요.`, state.UserQuery, p.cfg.Catalog.Format())

	response, err := p.cfg.LLM.Complete(ctx, resolverSystemPrompt, userPrompt)
	if err != nil {
		state.fail("스키마 분석 중 오류 발생: %v", err)
		return outcomeError
	}
	state.logInteraction(StageSchemaAnalysis, state.UserQuery, response)

	resolution, err := parseResolution(response)
	if err != nil {
		// Embed the diagnostic so the trace shows what the model returned.
		state.Resolution = &SchemaResolution{
			AnalysisNotes: fmt.Sprintf("스키마 분석 결과 파싱 오류: %v\n원본 응답: %s", err, extract.Truncate(response, 500)),
		}
		state.fail("스키마 분석 결과 파싱 실패: %v", err)
		return outcomeError
	}

	state.Resolution = resolution
	state.appendHistory("스키마 분석 완료: %d개 테이블 식별", len(resolution.RelevantTables))
	return outcomeAdvance
}

// parseResolution extracts a SchemaResolution from the model response.
func parseResolution(response string) (*SchemaResolution, error) {
	jsonStr := extract.JSONObject(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var resolution SchemaResolution
	if err := json.Unmarshal([]byte(jsonStr), &resolution); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(resolution.RelevantTables) == 0 {
		return nil, fmt.Errorf("resolution selected no tables")
	}

	return &resolution, nil
}
