// Package state defines the record threaded through every pipeline stage:
// immutable inputs, one nullable output slot per stage, and bookkeeping.
package state

import (
	"time"

	"github.com/jonathan/application-agent/internal/sourcecontrol"
)

// DocumentType selects which pipeline a request runs through.
type DocumentType string

const (
	CoverLetter         DocumentType = "cover_letter"
	ColdEmail           DocumentType = "cold_email"
	ResumeCustomization DocumentType = "resume_customization"
	ResumeSuggestions   DocumentType = "resume_suggestions"
)

// Valid reports whether t names a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case CoverLetter, ColdEmail, ResumeCustomization, ResumeSuggestions:
		return true
	}
	return false
}

// Profile is the stored account data for the requesting user.
type Profile struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	GitHubToken    string `json:"-"`
	GitHubUsername string `json:"github_username,omitempty"`
}

// Inputs are set once when the state is created and never modified.
type Inputs struct {
	UserID             string       `json:"user_id,omitempty"`
	JobDescription     string       `json:"job_description"`
	CompanyName        string       `json:"company_name"`
	JobTitle           string       `json:"job_title,omitempty"`
	DocumentType       DocumentType `json:"document_type"`
	CustomInstructions string       `json:"custom_instructions,omitempty"`
	HRName             string       `json:"hr_name,omitempty"`
	ResumeText         string       `json:"-"`
	Profile            Profile      `json:"profile"`
}

// GitHubData is the source-control summary written by the repository fetch stages.
type GitHubData struct {
	Repos      []sourcecontrol.Repository `json:"repos"`
	TotalRepos int                        `json:"total_repos"`
	Languages  []string                   `json:"languages"`
	Projects   []Project                  `json:"projects"`
	Source     string                     `json:"source"`
}

// Project is a featured repository condensed for prompts.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TechStack   []string `json:"tech_stack,omitempty"`
	Stars       int      `json:"stars"`
	LiveLink    string   `json:"live_link,omitempty"`
	URL         string   `json:"github_url"`
}

func (g *GitHubData) clone() *GitHubData {
	if g == nil {
		return nil
	}
	out := *g
	if g.Repos != nil {
		out.Repos = make([]sourcecontrol.Repository, len(g.Repos))
		for i, r := range g.Repos {
			out.Repos[i] = r.Clone()
		}
	}
	out.Languages = cloneStrings(g.Languages)
	if g.Projects != nil {
		out.Projects = make([]Project, len(g.Projects))
		for i, p := range g.Projects {
			p.TechStack = cloneStrings(p.TechStack)
			out.Projects[i] = p
		}
	}
	return &out
}

// StageError is one entry of the error list.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (e StageError) Error() string {
	return e.Stage + ": " + e.Message
}

// RetryFeedback is attached by a threshold gate before the runner re-enters
// upstream units, and consumed by the stages that run again.
type RetryFeedback struct {
	Attempt         int      `json:"attempt"`
	Score           float64  `json:"score"`
	MissingKeywords []string `json:"missing_keywords,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// State is passed by value into each stage. Stages return the updated copy.
type State struct {
	RunID  string `json:"run_id"`
	Inputs Inputs `json:"inputs"`

	JobAnalysis      Document    `json:"job_analysis,omitempty"`
	JobTitle         *string     `json:"job_title,omitempty"`
	CompanyResearch  Document    `json:"company_research,omitempty"`
	GitHub           *GitHubData `json:"github_data,omitempty"`
	DBProfile        Document    `json:"db_profile,omitempty"`
	ResumeAnalysis   Document    `json:"resume_analysis,omitempty"`
	WritingStyle     Document    `json:"writing_style,omitempty"`
	GeneratedContent *string     `json:"generated_content,omitempty"`
	HumanizedContent *string     `json:"humanized_content,omitempty"`
	QualityScore     *float64    `json:"quality_score,omitempty"`
	QualityFeedback  Document    `json:"quality_feedback,omitempty"`
	ValidationPassed *bool       `json:"validation_passed,omitempty"`

	ParsedResume        Document   `json:"parsed_resume,omitempty"`
	MatchedProjects     []Document `json:"matched_projects,omitempty"`
	OptimizedExperience []Document `json:"optimized_experience,omitempty"`
	CustomizedResume    *string    `json:"customized_resume,omitempty"`
	ATSScore            *float64   `json:"ats_score,omitempty"`
	ATSFeedback         Document   `json:"ats_feedback,omitempty"`
	QAResults           Document   `json:"qa_results,omitempty"`
	HallucinationCheck  *bool      `json:"hallucination_check,omitempty"`
	DiffReport          Document   `json:"diff_report,omitempty"`
	Suggestions         Document   `json:"suggestions,omitempty"`

	Progress     []string       `json:"progress_messages"`
	Errors       []StageError   `json:"errors"`
	CurrentStage string         `json:"current_agent,omitempty"`
	RetryCount   int            `json:"retry_count"`
	Feedback     *RetryFeedback `json:"retry_feedback,omitempty"`
	RetryPending bool           `json:"-"`
	GateStatus   string         `json:"gate_status,omitempty"`
	Halted       bool           `json:"halted,omitempty"`
	HaltedAt     string         `json:"halted_at,omitempty"`
	Elapsed      *time.Duration `json:"execution_time,omitempty"`
}

// New creates the state for one pipeline invocation.
func New(runID string, in Inputs) State {
	return State{
		RunID:    runID,
		Inputs:   in,
		Progress: []string{},
		Errors:   []StageError{},
	}
}

// Record appends a progress message on behalf of stage and marks it current.
func (s *State) Record(stage, message string) {
	s.Progress = append(s.Progress, message)
	s.CurrentStage = stage
}

// Fail appends exactly one error entry and one matching progress message.
func (s *State) Fail(stage string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: msg})
	s.Progress = append(s.Progress, stage+" failed: "+msg)
	s.CurrentStage = stage
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s State) Clone() State {
	out := s
	out.JobAnalysis = s.JobAnalysis.Clone()
	out.JobTitle = clonePtr(s.JobTitle)
	out.CompanyResearch = s.CompanyResearch.Clone()
	out.GitHub = s.GitHub.clone()
	out.DBProfile = s.DBProfile.Clone()
	out.ResumeAnalysis = s.ResumeAnalysis.Clone()
	out.WritingStyle = s.WritingStyle.Clone()
	out.GeneratedContent = clonePtr(s.GeneratedContent)
	out.HumanizedContent = clonePtr(s.HumanizedContent)
	out.QualityScore = clonePtr(s.QualityScore)
	out.QualityFeedback = s.QualityFeedback.Clone()
	out.ValidationPassed = clonePtr(s.ValidationPassed)
	out.ParsedResume = s.ParsedResume.Clone()
	out.MatchedProjects = cloneDocuments(s.MatchedProjects)
	out.OptimizedExperience = cloneDocuments(s.OptimizedExperience)
	out.CustomizedResume = clonePtr(s.CustomizedResume)
	out.ATSScore = clonePtr(s.ATSScore)
	out.ATSFeedback = s.ATSFeedback.Clone()
	out.QAResults = s.QAResults.Clone()
	out.HallucinationCheck = clonePtr(s.HallucinationCheck)
	out.DiffReport = s.DiffReport.Clone()
	out.Suggestions = s.Suggestions.Clone()

	out.Progress = append(make([]string, 0, len(s.Progress)), s.Progress...)
	out.Errors = append(make([]StageError, 0, len(s.Errors)), s.Errors...)
	out.Elapsed = clonePtr(s.Elapsed)
	if s.Feedback != nil {
		fb := *s.Feedback
		fb.MissingKeywords = cloneStrings(fb.MissingKeywords)
		fb.Recommendations = cloneStrings(fb.Recommendations)
		out.Feedback = &fb
	}
	return out
}

// PrimaryContent returns the deliverable text for the state's document type,
// preferring the humanized draft over the raw one.
func (s State) PrimaryContent() string {
	switch {
	case s.HumanizedContent != nil && *s.HumanizedContent != "":
		return *s.HumanizedContent
	case s.GeneratedContent != nil:
		return *s.GeneratedContent
	case s.CustomizedResume != nil:
		return *s.CustomizedResume
	}
	return ""
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
