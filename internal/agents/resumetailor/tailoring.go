package resumetailor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/sourcecontrol"
	"github.com/jonathan/application-agent/internal/state"
)

// readmeExcerptChars bounds README text handed to the rebuilder per project.
const readmeExcerptChars = 500

// NewProjectMatcher picks the repositories that best fit the job. Selections
// naming a repository the user does not have are dropped.
func NewProjectMatcher(d *agents.Deps) pipeline.Stage {
	maxProjects := d.Limits.MaxProjects
	if maxProjects <= 0 {
		maxProjects = agents.DefaultMaxProjects
	}
	return &agents.Generative{
		Deps:       d,
		StageName:  StageProjectMatcher,
		ReadSlots:  []state.Slot{state.SlotJobAnalysis, state.SlotGitHub, state.SlotParsedResume},
		WriteSlots: []state.Slot{state.SlotMatchedProjects},
		Skip: func(st *state.State) (string, bool) {
			if st.GitHub != nil && len(st.GitHub.Repos) > 0 {
				return "", false
			}
			st.MatchedProjects = []state.Document{}
			return "Project matching skipped (no GitHub data)", true
		},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			summaries := make([]map[string]any, 0, len(st.GitHub.Repos))
			for _, r := range st.GitHub.Repos {
				summaries = append(summaries, map[string]any{
					"name":        r.Name,
					"description": r.Description,
					"tech_stack":  r.TechStack,
					"language":    r.Language,
					"topics":      r.Topics,
					"stars":       r.Stars,
					"url":         r.URL,
					"live_links":  r.LiveLinks,
					"has_readme":  r.Readme != "",
				})
			}
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.3,
				File:        prompts.ResumeFile,
				System:      "project-matcher-system",
				User:        "project-matcher-user",
				Data: map[string]string{
					"MaxProjects":     strconv.Itoa(maxProjects),
					"JobAnalysis":     agents.JSONText(st.JobAnalysis),
					"Repositories":    agents.JSONText(summaries),
					"CurrentProjects": agents.JSONText(st.ParsedResume["projects"]),
				},
				Schema: "project_matches",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			byName := make(map[string]sourcecontrol.Repository, len(st.GitHub.Repos))
			for _, repo := range st.GitHub.Repos {
				byName[repo.Name] = repo
			}

			matched := []state.Document{}
			var unknown []string
			for _, p := range r.Doc.List("projects") {
				if len(matched) == maxProjects {
					break
				}
				repo, ok := byName[p.String("repo_name")]
				if !ok {
					unknown = append(unknown, p.String("repo_name"))
					continue
				}
				p["full_readme"] = repo.Readme
				p["repo_metadata"] = map[string]any{
					"stars":      repo.Stars,
					"language":   repo.Language,
					"updated_at": repo.UpdatedAt,
				}
				if p.String("github_link") == "" {
					p["github_link"] = repo.URL
				}
				if p.String("live_link") == "" && len(repo.LiveLinks) > 0 {
					p["live_link"] = repo.LiveLinks[0]
				}
				matched = append(matched, p)
			}
			if len(unknown) > 0 {
				d.Log().Debug("dropped unknown project selections", zap.String("stage", StageProjectMatcher), zap.Strings("repos", unknown))
			}
			st.MatchedProjects = matched
			return fmt.Sprintf("Project matching complete: %d projects selected", len(matched)), nil
		},
		Fallback: func(st *state.State, _ error) {
			st.MatchedProjects = []state.Document{}
		},
	}
}

// NewExperienceOptimizer rewrites experience bullets toward the job's
// keywords. On a retry it is given the gate's feedback.
func NewExperienceOptimizer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageExperienceOptimizer,
		ReadSlots:  []state.Slot{state.SlotJobAnalysis, state.SlotParsedResume},
		WriteSlots: []state.Slot{state.SlotOptimizedExperience},
		Skip: func(st *state.State) (string, bool) {
			if len(st.ParsedResume.List("experience")) > 0 {
				return "", false
			}
			st.OptimizedExperience = []state.Document{}
			return "No experience to optimize", true
		},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.2,
				File:        prompts.ResumeFile,
				System:      "experience-optimizer-system",
				User:        "experience-optimizer-user",
				Data: map[string]string{
					"JobAnalysis":   agents.JSONText(st.JobAnalysis),
					"Experience":    agents.JSONText(st.ParsedResume.List("experience")),
					"RetryFeedback": retryFeedbackText(st.Feedback),
				},
				Schema: "optimized_experience",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			st.OptimizedExperience = r.Doc.List("experience")
			msg := fmt.Sprintf("Experience optimization complete: %d entries optimized", len(st.OptimizedExperience))
			if st.RetryCount > 0 {
				msg += fmt.Sprintf(" (retry %d)", st.RetryCount)
			}
			return msg, nil
		},
		Fallback: func(st *state.State, _ error) {
			st.OptimizedExperience = st.ParsedResume.List("experience")
		},
	}
}

func retryFeedbackText(fb *state.RetryFeedback) string {
	if fb == nil {
		return "None (first attempt)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Attempt %d scored %.1f, below the pass bar.\n", fb.Attempt, fb.Score)
	if len(fb.MissingKeywords) > 0 {
		fmt.Fprintf(&b, "Missing keywords to work in where truthful: %s\n", strings.Join(fb.MissingKeywords, ", "))
	}
	for _, rec := range fb.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return strings.TrimSpace(b.String())
}

// NewResumeRebuilder assembles the customized resume. On failure the
// original resume is kept.
func NewResumeRebuilder(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageResumeRebuilder,
		ReadSlots:  []state.Slot{state.SlotParsedResume, state.SlotMatchedProjects, state.SlotOptimizedExperience},
		WriteSlots: []state.Slot{state.SlotCustomizedResume},
		Require:    requireResume,
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierAdvanced,
				Temperature: 0.1,
				File:        prompts.ResumeFile,
				System:      "resume-rebuilder-system",
				User:        "resume-rebuilder-user",
				Data: map[string]string{
					"OriginalResume":      st.Inputs.ResumeText,
					"ParsedResume":        agents.JSONText(st.ParsedResume),
					"MatchedProjects":     agents.JSONText(projectsForPrompt(st.MatchedProjects)),
					"OptimizedExperience": agents.JSONText(st.OptimizedExperience),
				},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			text := agents.StripFence(r.Text)
			if text == "" {
				return "", fmt.Errorf("rebuild: model returned empty content")
			}
			st.CustomizedResume = state.Ptr(text)
			return fmt.Sprintf("Resume rebuilt: %d words", agents.WordCount(text)), nil
		},
		Fallback: func(st *state.State, _ error) {
			st.CustomizedResume = state.Ptr(st.Inputs.ResumeText)
		},
	}
}

// projectsForPrompt trims README text so a handful of projects fit a prompt.
func projectsForPrompt(projects []state.Document) []state.Document {
	out := make([]state.Document, len(projects))
	for i, p := range projects {
		c := p.Clone()
		if readme := c.String("full_readme"); readme != "" {
			c["full_readme"] = agents.Truncate(readme, readmeExcerptChars)
		}
		out[i] = c
	}
	return out
}
