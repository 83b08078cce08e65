package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/sourcecontrol"
)

func sampleState() State {
	st := New("run-1", Inputs{
		JobDescription: "Senior Backend Engineer, must know Go and Kubernetes",
		CompanyName:    "Acme Corp",
		DocumentType:   CoverLetter,
	})
	st.JobAnalysis = Document{
		"job_title":       "Senior Backend Engineer",
		"required_skills": []any{"Go", "Kubernetes"},
		"nested":          map[string]any{"level": "senior"},
	}
	st.GitHub = &GitHubData{
		Repos:     []sourcecontrol.Repository{{Name: "svc", Topics: []string{"go"}, Languages: map[string]int{"Go": 1}}},
		Languages: []string{"Go"},
		Projects:  []Project{{Name: "svc", TechStack: []string{"Go"}}},
		Source:    "github_api",
	}
	st.QualityScore = Ptr(88.0)
	st.Record("input_analyzer", "Analyzed job: Senior Backend Engineer")
	return st
}

func TestClone_IsIndependent(t *testing.T) {
	original := sampleState()
	clone := original.Clone()

	clone.JobAnalysis["job_title"] = "changed"
	clone.JobAnalysis.Map("nested")["level"] = "junior"
	clone.JobAnalysis["required_skills"].([]any)[0] = "Rust"
	clone.GitHub.Repos[0].Topics[0] = "rust"
	clone.GitHub.Repos[0].Languages["Rust"] = 2
	clone.GitHub.Projects[0].TechStack[0] = "Rust"
	*clone.QualityScore = 10
	clone.Record("other", "another message")
	clone.Fail("other", errors.New("boom"))

	assert.Equal(t, "Senior Backend Engineer", original.JobAnalysis.String("job_title"))
	assert.Equal(t, "senior", original.JobAnalysis.Map("nested").String("level"))
	assert.Equal(t, []string{"Go", "Kubernetes"}, original.JobAnalysis.Strings("required_skills"))
	assert.Equal(t, "go", original.GitHub.Repos[0].Topics[0])
	assert.NotContains(t, original.GitHub.Repos[0].Languages, "Rust")
	assert.Equal(t, "Go", original.GitHub.Projects[0].TechStack[0])
	assert.Equal(t, 88.0, *original.QualityScore)
	assert.Len(t, original.Progress, 1)
	assert.Empty(t, original.Errors)
}

func TestClone_AppendDoesNotAlias(t *testing.T) {
	base := New("run", Inputs{})
	base.Progress = make([]string, 1, 8)
	base.Progress[0] = "first"

	a := base.Clone()
	b := base.Clone()
	a.Record("a", "from a")
	b.Record("b", "from b")

	assert.Equal(t, []string{"first", "from a"}, a.Progress)
	assert.Equal(t, []string{"first", "from b"}, b.Progress)
}

func TestFail_AppendsOneErrorAndOneMessage(t *testing.T) {
	st := New("run", Inputs{})
	st.Fail("research_agent", errors.New("search unavailable"))

	require.Len(t, st.Errors, 1)
	assert.Equal(t, StageError{Stage: "research_agent", Message: "search unavailable"}, st.Errors[0])
	assert.Equal(t, "research_agent: search unavailable", st.Errors[0].Error())
	require.Len(t, st.Progress, 1)
	assert.Contains(t, st.Progress[0], "research_agent failed")
	assert.Equal(t, "research_agent", st.CurrentStage)
}

func TestHasAndCopySlot(t *testing.T) {
	src := sampleState()
	src.HumanizedContent = Ptr("Dear Acme")

	var dst State
	for _, slot := range AllSlots {
		assert.False(t, dst.Has(slot), slot)
	}

	CopySlot(&dst, src, SlotJobAnalysis)
	CopySlot(&dst, src, SlotHumanizedContent)
	CopySlot(&dst, src, SlotGeneratedContent) // unset in source

	assert.True(t, dst.Has(SlotJobAnalysis))
	assert.True(t, dst.Has(SlotHumanizedContent))
	assert.False(t, dst.Has(SlotGeneratedContent))
	assert.Equal(t, "Dear Acme", *dst.HumanizedContent)
}

func TestCopySlot_UnsetSourceKeepsDestination(t *testing.T) {
	dst := State{CompanyResearch: Document{"source": "mock"}}
	CopySlot(&dst, State{}, SlotCompanyResearch)
	assert.Equal(t, "mock", dst.CompanyResearch.String("source"))
}

func TestFlags(t *testing.T) {
	st := sampleState()
	st.ValidationPassed = Ptr(false)

	flags := st.Flags()
	assert.True(t, flags["has_job_analysis"])
	assert.True(t, flags["has_github_data"])
	assert.True(t, flags["has_quality_score"])
	assert.False(t, flags["validation_passed"])
	_, ok := flags["has_generated_content"]
	assert.False(t, ok)
}

func TestPrimaryContent(t *testing.T) {
	st := State{GeneratedContent: Ptr("draft")}
	assert.Equal(t, "draft", st.PrimaryContent())

	st.HumanizedContent = Ptr("polished")
	assert.Equal(t, "polished", st.PrimaryContent())

	assert.Equal(t, "resume", State{CustomizedResume: Ptr("resume")}.PrimaryContent())
	assert.Empty(t, State{}.PrimaryContent())
}

func TestDocumentTypeValid(t *testing.T) {
	assert.True(t, CoverLetter.Valid())
	assert.True(t, ResumeSuggestions.Valid())
	assert.False(t, DocumentType("memo").Valid())
}

func TestSlotKnown(t *testing.T) {
	assert.True(t, SlotDiffReport.Known())
	assert.False(t, Slot("nope").Known())
}
