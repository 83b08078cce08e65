package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json code block", "```json\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"generic code block", "```\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"code block with language", "```javascript\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"plain JSON", `{"key": "value"}`, `{"key": "value"}`},
		{"surrounding whitespace", "\n\n  {\"a\": 1}  \n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSON_FencedAndBareAgree(t *testing.T) {
	bare := `{"job_title": "Senior Backend Engineer", "required_skills": ["Go", "Kubernetes"], "years": 5}`
	inputs := []string{
		bare,
		"```json\n" + bare + "\n```",
		"```\n" + bare + "\n```",
		"Here is the analysis:\n" + bare + "\nLet me know if you need more.",
		"Sure!\n```json\n" + bare + "\n```",
	}

	want, err := ExtractJSON(bare)
	require.NoError(t, err)
	for _, in := range inputs {
		got, err := ExtractJSON(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExtractJSON_Idempotent(t *testing.T) {
	fenced := "```json\n{\"score\": 82}\n```"
	once := CleanJSONBlock(fenced)
	assert.Equal(t, once, CleanJSONBlock(once))

	a, err := ExtractJSON(fenced)
	require.NoError(t, err)
	b, err := ExtractJSON(once)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractJSON_Preamble(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  any
	}{
		{"preamble", "As requested, here is the JSON:\n{\"company\": \"Acme\"}", "company", "Acme"},
		{"trailing text", "{\"key\": \"value\"}\n\nAnything else?", "key", "value"},
		{"escaped quotes", "Result: {\"message\": \"He said \\\"hi}\\\"\"}", "message", "He said \"hi}\""},
		{"braces in strings", "Out: {\"template\": \"Hello {name}!\"}", "template", "Hello {name}!"},
		{"stray brace before payload", "Use {placeholders} like so: {\"ok\": true}", "ok", true},
		{"unbalanced brace before payload", "Note: {draft was cut. Final answer: {\"score\": 80}", "score", 80.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[tt.key])
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, in := range []string{"", "no json here", "{\"unterminated\": ", "[1, 2, 3]"} {
		_, err := ExtractJSON(in)
		require.Error(t, err, in)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	}
}

func TestDecodeJSON_Typed(t *testing.T) {
	var out struct {
		Score  float64  `json:"overall_score"`
		Issues []string `json:"issues_found"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"overall_score\": 74.9, \"issues_found\": [\"vague\"]}\n```", &out))
	assert.Equal(t, 74.9, out.Score)
	assert.Equal(t, []string{"vague"}, out.Issues)
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple object", `{"key": "value"}`, `{"key": "value"}`},
		{"nested objects", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"object with array", `{"items": [1, 2, 3]}`, `{"items": [1, 2, 3]}`},
		{"object with trailing text", `{"key": "value"} and more`, `{"key": "value"}`},
		{"string with braces inside", `{"template": "Hello {name}!"}`, `{"template": "Hello {name}!"}`},
		{"unbalanced", `{"a": {"b": 1}`, ""},
		{"empty input", "", ""},
		{"not starting with brace", "not json", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONObject(tt.input))
		})
	}
}
