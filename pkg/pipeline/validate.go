package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hanq-labs/text2sql/pkg/extract"
)

var tableRefPattern = regexp.MustCompile(`\b(tb_\w+)\b`)

// validate runs the deterministic structural and referential checks and, only
// when structural defects exist, asks the model for one correction round.
// The defect-free path never touches the model.
func (p *Pipeline) validate(ctx context.Context, state *State) stageOutcome {
	if state.Query == nil || strings.TrimSpace(state.Query.SQL) == "" {
		state.fail("검증할 SQL 쿼리가 없습니다.")
		return outcomeError
	}

	originalSQL := state.Query.SQL
	syntaxErrors := structuralCheck(originalSQL)
	logicWarnings := p.referenceCheck(originalSQL)

	var outcome *ValidationOutcome
	if len(syntaxErrors) == 0 {
		suggestions := []string{"쿼리가 유효합니다."}
		if len(logicWarnings) > 0 {
			suggestions = []string{"경고사항을 확인해주세요."}
		}
		outcome = &ValidationOutcome{
			IsValid:       true,
			SyntaxErrors:  []string{},
			LogicWarnings: logicWarnings,
			Suggestions:   suggestions,
			FinalSQL:      originalSQL,
		}
	} else {
		outcome = p.requestCorrection(ctx, state, originalSQL, syntaxErrors, logicWarnings)
	}

	state.Validation = outcome
	if !outcome.IsValid {
		state.appendHistory("품질 검증 실패: %d개 오류", len(outcome.SyntaxErrors))
		state.fail("SQL 검증 실패: %s", strings.Join(outcome.SyntaxErrors, ", "))
		return outcomeError
	}

	// Validation may have replaced the query with a corrected version; the
	// replacement is a full new value.
	if outcome.FinalSQL != originalSQL {
		state.Query = &SynthesizedQuery{
			SQL:              outcome.FinalSQL,
			Explanation:      state.Query.Explanation,
			PerformanceNotes: state.Query.PerformanceNotes,
			ExpectedColumns:  state.Query.ExpectedColumns,
		}
	}
	state.appendHistory("품질 검증 완료: SQL이 유효합니다.")
	return outcomeAdvance
}

// requestCorrection asks the model to fix the listed defects. The corrected
// SQL is accepted only when it has strictly fewer structural defects than the
// original; a completely unparseable correction keeps the original SQL as the
// final field so the caller always has something to show.
func (p *Pipeline) requestCorrection(ctx context.Context, state *State, originalSQL string, syntaxErrors, logicWarnings []string) *ValidationOutcome {
	tableNames := make([]string, 0, len(p.cfg.Catalog.Tables))
	for _, t := range p.cfg.Catalog.Tables {
		tableNames = append(tableNames, t.Table)
	}

	userPrompt := fmt.Sprintf(`**원본 SQL 쿼리:**
%s

**발견된 구문 오류:**
%s

**논리적 경고:**
%s

**사용자 원본 질의:** %s

**사용 가능한 스키마 테이블:** %s

위 오류들을 수정하여 실행 가능한 SQL 쿼리로 만들어주세요.
사용자의 원본 의도를 최대한 보존하면서 오류만 수정해주세요.`,
		originalSQL,
		strings.Join(syntaxErrors, "\n"),
		strings.Join(logicWarnings, "\n"),
		state.UserQuery,
		strings.Join(tableNames, ", "))

	response, err := p.cfg.LLM.Complete(ctx, validatorSystemPrompt, userPrompt)
	if err != nil {
		return &ValidationOutcome{
			IsValid:       false,
			SyntaxErrors:  syntaxErrors,
			LogicWarnings: logicWarnings,
			Suggestions:   []string{fmt.Sprintf("수정 요청 실패: %v", err)},
			FinalSQL:      originalSQL,
		}
	}
	state.logInteraction(StageQualityValidation,
		fmt.Sprintf("errors: %d, warnings: %d", len(syntaxErrors), len(logicWarnings)), response)

	outcome := parseCorrection(response, originalSQL, syntaxErrors, logicWarnings)

	// Re-check whatever the model produced; accept the correction only when
	// it is a strict improvement.
	if outcome.FinalSQL != originalSQL {
		correctedErrors := structuralCheck(outcome.FinalSQL)
		if len(correctedErrors) < len(syntaxErrors) {
			outcome.SyntaxErrors = correctedErrors
			outcome.IsValid = len(correctedErrors) == 0
		} else {
			outcome.IsValid = false
			outcome.SyntaxErrors = syntaxErrors
			outcome.FinalSQL = originalSQL
		}
	}

	return outcome
}

// parseCorrection extracts the validator's JSON verdict, falling back to a
// fenced SQL block, and finally to the original SQL.
func parseCorrection(response, originalSQL string, syntaxErrors, logicWarnings []string) *ValidationOutcome {
	if jsonStr := extract.JSONObject(response); jsonStr != "" {
		var outcome ValidationOutcome
		if err := json.Unmarshal([]byte(jsonStr), &outcome); err == nil && outcome.FinalSQL != "" {
			if outcome.LogicWarnings == nil {
				outcome.LogicWarnings = logicWarnings
			}
			return &outcome
		}
	}

	if corrected := extract.SQLCodeBlock(response); corrected != "" {
		return &ValidationOutcome{
			IsValid:       false,
			SyntaxErrors:  syntaxErrors,
			LogicWarnings: logicWarnings,
			Suggestions:   []string{"자동 수정 시도됨"},
			FinalSQL:      corrected,
		}
	}

	return &ValidationOutcome{
		IsValid:       false,
		SyntaxErrors:  syntaxErrors,
		LogicWarnings: logicWarnings,
		Suggestions:   []string{"수정 응답 파싱 실패"},
		FinalSQL:      originalSQL,
	}
}

// structuralCheck runs the deterministic syntax sanity checks. Each defect
// produces one message.
func structuralCheck(sql string) []string {
	var errors []string
	upper := strings.ToUpper(sql)

	hasKeyword := false
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(upper, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		errors = append(errors, "SQL 키워드(SELECT, INSERT, UPDATE, DELETE)가 없습니다.")
	}

	if strings.Count(sql, "(") != strings.Count(sql, ")") {
		errors = append(errors, "괄호가 균형을 이루지 않습니다.")
	}

	if strings.Count(sql, "'")%2 != 0 {
		errors = append(errors, "작은따옴표가 짝을 이루지 않습니다.")
	}

	if !strings.HasSuffix(strings.TrimSpace(sql), ";") {
		errors = append(errors, "SQL 쿼리는 세미콜론(;)으로 끝나야 합니다.")
	}

	return errors
}

// referenceCheck warns about table-like identifiers that are absent from the
// catalog. Identifier recognition is prefix-based (tb_*), which is how the
// schema names its tables.
func (p *Pipeline) referenceCheck(sql string) []string {
	var warnings []string
	valid := p.cfg.Catalog.PhysicalTables()

	seen := map[string]bool{}
	for _, match := range tableRefPattern.FindAllString(strings.ToLower(sql), -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		if !valid[match] {
			warnings = append(warnings, fmt.Sprintf("테이블 '%s'이 스키마에 존재하지 않습니다.", match))
		}
	}

	return warnings
}
