package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/application-agent/internal/state"
)

func TestJSONText(t *testing.T) {
	assert.Equal(t, NoneText, JSONText(nil))
	assert.Equal(t, NoneText, JSONText(state.Document{}))
	assert.Equal(t, NoneText, JSONText([]state.Document{}))
	assert.Equal(t, NoneText, JSONText("  "))
	assert.Equal(t, "{\n  \"a\": 1\n}", JSONText(state.Document{"a": 1}))
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"```markdown\n# Jane Doe\nEngineer\n```", "# Jane Doe\nEngineer"},
		{"```\nbody\n```\n", "body"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripFence(tt.in))
	}
}

func TestTruncateAndWords(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, 3, WordCount(" one two\nthree "))
	assert.Equal(t, "x", TextOr(" ", "x"))
}

func TestWithDefaults(t *testing.T) {
	d := Deps{}.WithDefaults()
	assert.NotNil(t, d.Logger)
	assert.Equal(t, DefaultCallTimeout, d.CallTimeout)
	assert.Equal(t, DefaultMaxProjects, d.Limits.MaxProjects)
	assert.Equal(t, DefaultPassScore, d.Gates.ATSPass)
	assert.Equal(t, DefaultPassScore, d.Gates.QualityPass)
}
