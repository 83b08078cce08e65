package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/agents/coverletter"
	"github.com/jonathan/application-agent/internal/agents/resumetailor"
	"github.com/jonathan/application-agent/internal/llm/llmtest"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

func testDeps() *agents.Deps {
	d := agents.Deps{LLM: llmtest.Fixed("{}")}.WithDefaults()
	return &d
}

func TestPlans_AllValidate(t *testing.T) {
	plans, err := Plans(testDeps(), pipeline.HaltNever)
	require.NoError(t, err)

	for _, dt := range []state.DocumentType{state.CoverLetter, state.ColdEmail, state.ResumeCustomization, state.ResumeSuggestions} {
		p, ok := plans[dt]
		require.True(t, ok, dt)
		assert.Equal(t, string(dt), p.Name)
		assert.NoError(t, p.Validate(), dt)
	}
}

func TestCoverLetterPlan_Shape(t *testing.T) {
	p := CoverLetterPlan("cover_letter", testDeps(), pipeline.HaltOnErrors)

	assert.Equal(t, 9, p.StageCount())
	assert.Equal(t, pipeline.HaltOnErrors, p.Halt)
	assert.Equal(t, []string{coverletter.StageInputAnalyzer, coverletter.StageResearch}, p.Units[0].StageNames())
	assert.Equal(t, []string{coverletter.StageGitHub, coverletter.StageUserInfo}, p.Units[1].StageNames())
	assert.Equal(t, coverletter.StageQualityCheck, p.Units[len(p.Units)-1].Name)
}

func TestResumeCustomizationPlan_GateReentersOptimizer(t *testing.T) {
	p := ResumeCustomizationPlan(testDeps(), pipeline.HaltNever)

	gate := p.Units[p.UnitIndex(resumetailor.StageATSValidator)]
	assert.Equal(t, pipeline.UnitGate, gate.Kind)
	assert.Equal(t, resumetailor.StageExperienceOptimizer, gate.ReEnter)
	assert.Less(t, p.UnitIndex(gate.ReEnter), p.UnitIndex(gate.Name))
	assert.Equal(t, []string{resumetailor.StageQA, resumetailor.StageDiffGenerator}, p.Units[len(p.Units)-1].StageNames())
}

func TestResumeSuggestionsPlan_IsSequential(t *testing.T) {
	p := ResumeSuggestionsPlan(testDeps(), pipeline.HaltNever)

	require.Len(t, p.Units, 5)
	for _, u := range p.Units {
		assert.Equal(t, pipeline.UnitStage, u.Kind)
	}
	assert.Equal(t, resumetailor.StageSuggestionGenerator, p.Units[4].Name)
}
