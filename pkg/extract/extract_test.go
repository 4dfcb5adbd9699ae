package extract

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "object surrounded by prose",
			in:   "Here is the result:\n{\"sql\": \"SELECT 1;\"}\nDone.",
			want: `{"sql": "SELECT 1;"}`,
		},
		{
			name: "no braces",
			in:   "no structured content here",
			want: "",
		},
		{
			name: "closing before opening",
			in:   "} oops {",
			want: "",
		},
		{
			// Documented failure mode: a stray brace in trailing prose
			// extends the span past the real object. Kept on purpose;
			// callers recover via json.Unmarshal failing.
			name: "stray trailing brace widens span",
			in:   `{"a": 1} and then a stray }`,
			want: `{"a": 1} and then a stray }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JSONObject(tt.in))
		})
	}
}

func TestSQLCodeBlock(t *testing.T) {
	in := "Some explanation.\n```sql\nSELECT id FROM tb_user;\n```\nMore text."
	assert.Equal(t, "SELECT id FROM tb_user;", SQLCodeBlock(in))

	generic := "```\nSELECT 1;\n```"
	assert.Equal(t, "SELECT 1;", SQLCodeBlock(generic))

	notSQL := "```\njust some text\n```"
	assert.Equal(t, "", SQLCodeBlock(notSQL))
}

func TestSQLStatement(t *testing.T) {
	in := "The query below answers the question.\nSELECT name\nFROM tb_user\nWHERE status = 'active';\nHope that helps."
	want := "SELECT name\nFROM tb_user\nWHERE status = 'active';"
	assert.Equal(t, want, SQLStatement(in))

	assert.Equal(t, "", SQLStatement("no sql in this response"))
}

func TestLooksLikeSQL(t *testing.T) {
	assert.True(t, LooksLikeSQL("  select * from tb_user"))
	assert.True(t, LooksLikeSQL("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.False(t, LooksLikeSQL("The answer is 42"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde...", Truncate("abcdefgh", 5))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// "가" is 3 bytes; a cut at 4 lands mid-rune and must back up.
	got := Truncate("가나다", 4)
	assert.Equal(t, "가...", got)
	assert.True(t, utf8.ValidString(got))

	for n := 0; n <= 9; n++ {
		assert.True(t, utf8.ValidString(Truncate("가나다", n)), "n=%d", n)
	}
}
