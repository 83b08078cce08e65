package generation

import (
	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/agents/coverletter"
	"github.com/jonathan/application-agent/internal/agents/resumetailor"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// Fan-out unit names.
const (
	UnitJobAndCompany = "job_and_company"
	UnitCandidate     = "candidate_sources"
	UnitIntake        = "intake"
	UnitReview        = "review"
)

// CoverLetterPlan builds the plan shared by cover letters and cold emails.
// The stages branch on the document type in the state, so name only labels
// the run.
func CoverLetterPlan(name string, d *agents.Deps, halt pipeline.HaltPolicy) pipeline.Plan {
	return pipeline.Plan{
		Name: name,
		Halt: halt,
		Units: []pipeline.Unit{
			pipeline.Parallel(UnitJobAndCompany,
				coverletter.NewInputAnalyzer(d),
				coverletter.NewResearchAgent(d),
			),
			pipeline.Parallel(UnitCandidate,
				coverletter.NewGitHubAgent(d),
				coverletter.NewUserInfoAgent(d),
			),
			pipeline.Single(coverletter.NewResumeAnalyzer(d)),
			pipeline.Single(coverletter.NewStyleAnalyzer(d)),
			pipeline.Single(coverletter.NewContentGenerator(d)),
			pipeline.Single(coverletter.NewHumanizer(d)),
			pipeline.Single(coverletter.NewQualityCheck(d)),
		},
	}
}

// ResumeCustomizationPlan rewrites the resume for the job and sends it back
// to the experience optimizer while the ATS score stays below the bar.
func ResumeCustomizationPlan(d *agents.Deps, halt pipeline.HaltPolicy) pipeline.Plan {
	return pipeline.Plan{
		Name: string(state.ResumeCustomization),
		Halt: halt,
		Units: []pipeline.Unit{
			pipeline.Parallel(UnitIntake,
				resumetailor.NewJDAnalyzer(d),
				resumetailor.NewResumeParser(d),
				resumetailor.NewGitHubFetcher(d),
			),
			pipeline.Single(resumetailor.NewProjectMatcher(d)),
			pipeline.Single(resumetailor.NewExperienceOptimizer(d)),
			pipeline.Single(resumetailor.NewResumeRebuilder(d)),
			pipeline.Gate(resumetailor.NewATSValidator(d), resumetailor.StageExperienceOptimizer),
			pipeline.Parallel(UnitReview,
				resumetailor.NewQAAgent(d),
				resumetailor.NewDiffGenerator(d),
			),
		},
	}
}

// ResumeSuggestionsPlan scores the resume as it is and asks for advice.
func ResumeSuggestionsPlan(d *agents.Deps, halt pipeline.HaltPolicy) pipeline.Plan {
	return pipeline.Plan{
		Name: string(state.ResumeSuggestions),
		Halt: halt,
		Units: []pipeline.Unit{
			pipeline.Single(resumetailor.NewJDAnalyzer(d)),
			pipeline.Single(resumetailor.NewResumeParser(d)),
			pipeline.Single(resumetailor.NewGitHubFetcher(d)),
			pipeline.Single(resumetailor.NewATSAnalyzer(d)),
			pipeline.Single(resumetailor.NewSuggestionGenerator(d)),
		},
	}
}

// Plans returns one validated plan per document type.
func Plans(d *agents.Deps, halt pipeline.HaltPolicy) (map[state.DocumentType]pipeline.Plan, error) {
	plans := map[state.DocumentType]pipeline.Plan{
		state.CoverLetter:         CoverLetterPlan(string(state.CoverLetter), d, halt),
		state.ColdEmail:           CoverLetterPlan(string(state.ColdEmail), d, halt),
		state.ResumeCustomization: ResumeCustomizationPlan(d, halt),
		state.ResumeSuggestions:   ResumeSuggestionsPlan(d, halt),
	}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return plans, nil
}
