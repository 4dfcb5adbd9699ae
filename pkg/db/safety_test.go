package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckQuerySafetyAllowsPlainSelect(t *testing.T) {
	assert.Empty(t, CheckQuerySafety("SELECT COUNT(*) AS 사용자수 FROM tb_user WHERE status = 'active';"))
	assert.Empty(t, CheckQuerySafety("select id, name from tb_user limit 10;"))
}

func TestCheckQuerySafetyRejectsNonSelect(t *testing.T) {
	errs := CheckQuerySafety("UPDATE tb_user SET name = 'x'")
	assert.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "SELECT")
}

func TestCheckQuerySafetyRejectsForbiddenKeywords(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM tb_user; DROP TABLE tb_user",
		"SELECT * FROM tb_user WHERE id IN (SELECT id FROM t); DELETE FROM tb_user",
	} {
		assert.NotEmpty(t, CheckQuerySafety(sql), sql)
	}
}

func TestCheckQuerySafetyRejectsKeywordInsideSubquery(t *testing.T) {
	errs := CheckQuerySafety("SELECT * FROM (SELECT * FROM t WHERE 1=1; DROP TABLE t) x")
	assert.NotEmpty(t, errs)
}

func TestCheckQuerySafetyAcceptsKeywordGluedInLiteral(t *testing.T) {
	// "DROP" inside the literal is not a standalone word here.
	assert.Empty(t, CheckQuerySafety("SELECT name FROM tb_user WHERE name = 'DROPKICK';"))
}

func TestCheckQuerySafetyLiteralFalsePositive(t *testing.T) {
	// Known limitation of word-boundary matching: a forbidden word standing
	// alone inside a string literal is still rejected.
	errs := CheckQuerySafety("SELECT name FROM tb_user WHERE name = 'DROP THE MIC'")
	assert.NotEmpty(t, errs)
}

func TestCheckQuerySafetyRejectsComments(t *testing.T) {
	errs := CheckQuerySafety("SELECT id FROM tb_user -- hidden")
	assert.Contains(t, errs, "주석은 허용되지 않습니다.")

	errs = CheckQuerySafety("SELECT id /* x */ FROM tb_user")
	assert.Contains(t, errs, "주석은 허용되지 않습니다.")
}

func TestCheckQuerySafetyRejectsMultipleStatements(t *testing.T) {
	errs := CheckQuerySafety("SELECT 1; SELECT 2;")
	assert.Contains(t, errs, "다중 쿼리는 허용되지 않습니다.")

	// A single trailing terminator is fine.
	assert.Empty(t, CheckQuerySafety("SELECT 1;"))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError("failed to connect: connection refused"))
	assert.True(t, IsConnectionError("SSH tunnel closed"))
	assert.True(t, IsConnectionError("DB 연결 실패: timeout"))
	assert.False(t, IsConnectionError("syntax error at or near SELECT"))
	assert.False(t, IsConnectionError(""))
}
