package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(CoverLetterFile, "input-analyzer-system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "job description analyzer")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(ResumeFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	result := Format(template, map[string]string{})
	assert.Equal(t, template, result) // Placeholder remains
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{.A}} and {{.B}} then {{.A}} but not {{ .C }} or {{.}}")
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestRender_MissingValue(t *testing.T) {
	ClearCache()

	_, err := Render(CoverLetterFile, "input-analyzer-user", map[string]string{"CompanyName": "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobDescription")

	out, err := Render(CoverLetterFile, "input-analyzer-user", map[string]string{
		"CompanyName":    "Acme",
		"JobDescription": "Build things",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Company: Acme")
}

// System/user prompt pairs are looked up by key at stage construction, so
// every file must carry the full set and every system prompt its user half.
func TestPromptFilesComplete(t *testing.T) {
	ClearCache()

	want := map[string][]string{
		CoverLetterFile: {
			"input-analyzer", "research-synthesis", "resume-analyzer", "style-analyzer",
			"humanizer", "quality-check",
		},
		ResumeFile: {
			"jd-analyzer", "resume-parser", "project-matcher", "experience-optimizer",
			"resume-rebuilder", "qa", "changelog", "suggestions",
		},
	}
	for file, bases := range want {
		keys, err := List(file)
		require.NoError(t, err)
		for _, base := range bases {
			assert.Contains(t, keys, base+"-system", file)
			assert.Contains(t, keys, base+"-user", file)
		}
	}

	keys, err := List(CoverLetterFile)
	require.NoError(t, err)
	assert.Contains(t, keys, "cover-letter-system")
	assert.Contains(t, keys, "cold-email-system")
	assert.Contains(t, keys, "content-user")
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get(ResumeFile, "qa-system")
	require.NoError(t, err)
	prompt2, err := Get(ResumeFile, "qa-system")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
