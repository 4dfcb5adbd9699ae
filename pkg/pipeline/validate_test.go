package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuralCheck(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want int
	}{
		{"clean query", "SELECT COUNT(*) FROM tb_user;", 0},
		{"missing terminator and unbalanced paren", "SELECT COUNT( FROM tb_user", 2},
		{"no keyword", "SHOW TABLES;", 1},
		{"odd single quotes", "SELECT * FROM tb_user WHERE name = '홍길동;", 1},
		{"everything wrong", "((", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, structuralCheck(tt.sql), tt.want)
		})
	}
}

func TestReferenceCheck(t *testing.T) {
	p := newTestPipeline(t, happyLLM(), &fakeDB{}, 0)

	warnings := p.referenceCheck("SELECT * FROM tb_user JOIN tb_ghost ON tb_user.id = tb_ghost.userId;")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "tb_ghost")

	assert.Empty(t, p.referenceCheck("SELECT * FROM tb_user JOIN tb_transaction ON 1=1;"))
}

func TestValidateCleanQuerySkipsModel(t *testing.T) {
	llmClient := happyLLM()
	p := newTestPipeline(t, llmClient, &fakeDB{}, 0)

	state := newState("q", "", "s")
	state.Query = &SynthesizedQuery{SQL: "SELECT id FROM tb_user;"}

	outcome := p.validate(context.Background(), state)
	assert.Equal(t, outcomeAdvance, outcome)
	require.NotNil(t, state.Validation)
	assert.True(t, state.Validation.IsValid)
	assert.Zero(t, llmClient.callCount(validatorSystemPrompt))
}

func TestValidateAcceptsStrictImprovement(t *testing.T) {
	llmClient := happyLLM()
	llmClient.responses[validatorSystemPrompt] = `{"is_valid":true,"syntax_errors":[],"final_sql":"SELECT id FROM tb_user;"}`
	p := newTestPipeline(t, llmClient, &fakeDB{}, 0)

	state := newState("q", "", "s")
	state.Query = &SynthesizedQuery{SQL: "SELECT id FROM tb_user"}

	outcome := p.validate(context.Background(), state)
	assert.Equal(t, outcomeAdvance, outcome)
	assert.Equal(t, "SELECT id FROM tb_user;", state.Query.SQL)
	assert.Equal(t, 1, llmClient.callCount(validatorSystemPrompt))
}

func TestValidateRejectsNonImprovement(t *testing.T) {
	llmClient := happyLLM()
	// The "correction" still misses the terminator and has the same defect
	// count, so the original must be kept and the stage must fail.
	llmClient.responses[validatorSystemPrompt] = `{"is_valid":true,"syntax_errors":[],"final_sql":"SELECT name FROM tb_user"}`
	p := newTestPipeline(t, llmClient, &fakeDB{}, 0)

	state := newState("q", "", "s")
	state.Query = &SynthesizedQuery{SQL: "SELECT id FROM tb_user"}

	outcome := p.validate(context.Background(), state)
	assert.Equal(t, outcomeError, outcome)
	require.NotNil(t, state.Validation)
	assert.False(t, state.Validation.IsValid)
	assert.Equal(t, "SELECT id FROM tb_user", state.Validation.FinalSQL)
	assert.Contains(t, state.ErrorMessage, "SQL 검증 실패")
}

func TestValidateTrustsUnchangedCorrectionClaim(t *testing.T) {
	// Documented limitation: when the model hands back the original SQL
	// unchanged and calls it valid, the claim is taken at face value and the
	// structural re-check does not run.
	llmClient := happyLLM()
	llmClient.responses[validatorSystemPrompt] = `{"is_valid":true,"syntax_errors":[],"final_sql":"SELECT id FROM tb_user"}`
	p := newTestPipeline(t, llmClient, &fakeDB{}, 0)

	state := newState("q", "", "s")
	state.Query = &SynthesizedQuery{SQL: "SELECT id FROM tb_user"}

	outcome := p.validate(context.Background(), state)
	assert.Equal(t, outcomeAdvance, outcome)
	assert.True(t, state.Validation.IsValid)
	assert.Equal(t, "SELECT id FROM tb_user", state.Query.SQL)
}

func TestValidateUnparseableCorrectionKeepsOriginal(t *testing.T) {
	llmClient := happyLLM()
	llmClient.responses[validatorSystemPrompt] = "수정할 수 없습니다."
	p := newTestPipeline(t, llmClient, &fakeDB{}, 0)

	state := newState("q", "", "s")
	state.Query = &SynthesizedQuery{SQL: "SELECT id FROM tb_user"}

	outcome := p.validate(context.Background(), state)
	assert.Equal(t, outcomeError, outcome)
	assert.Equal(t, "SELECT id FROM tb_user", state.Validation.FinalSQL)
}

func TestValidateMissingQuery(t *testing.T) {
	p := newTestPipeline(t, happyLLM(), &fakeDB{}, 0)
	state := newState("q", "", "s")
	assert.Equal(t, outcomeError, p.validate(context.Background(), state))
}
