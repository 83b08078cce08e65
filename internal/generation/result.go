package generation

import (
	"github.com/jonathan/application-agent/internal/state"
)

// Result is the caller-facing view of a finished run.
type Result struct {
	RunID        string             `json:"run_id"`
	DocumentType state.DocumentType `json:"document_type"`
	JobTitle     string             `json:"job_title,omitempty"`
	Content      string             `json:"content"`
	// Score is the quality score for letters and emails and the ATS score
	// for resume work.
	Score            *float64 `json:"score,omitempty"`
	ValidationPassed *bool    `json:"validation_passed,omitempty"`

	QualityFeedback    state.Document   `json:"quality_feedback,omitempty"`
	ATSFeedback        state.Document   `json:"ats_feedback,omitempty"`
	MatchedProjects    []state.Document `json:"matched_projects,omitempty"`
	QAResults          state.Document   `json:"qa_results,omitempty"`
	HallucinationCheck *bool            `json:"hallucination_check,omitempty"`
	DiffReport         state.Document   `json:"diff_report,omitempty"`
	Suggestions        state.Document   `json:"suggestions,omitempty"`

	RetryCount     int                `json:"retry_count"`
	Progress       []string           `json:"progress_messages"`
	Errors         []state.StageError `json:"errors"`
	Halted         bool               `json:"halted,omitempty"`
	ElapsedSeconds float64            `json:"execution_time"`
	GenerationID   string             `json:"generation_id,omitempty"`

	// State is the full final state for callers that print every slot.
	State state.State `json:"-"`
}

// NewResult projects a final state.
func NewResult(st state.State) *Result {
	r := &Result{
		RunID:              st.RunID,
		DocumentType:       st.Inputs.DocumentType,
		JobTitle:           jobTitle(st),
		Content:            st.PrimaryContent(),
		QAResults:          st.QAResults,
		HallucinationCheck: st.HallucinationCheck,
		DiffReport:         st.DiffReport,
		MatchedProjects:    st.MatchedProjects,
		Suggestions:        st.Suggestions,
		ATSFeedback:        st.ATSFeedback,
		QualityFeedback:    st.QualityFeedback,
		ValidationPassed:   st.ValidationPassed,
		RetryCount:         st.RetryCount,
		Progress:           st.Progress,
		Errors:             st.Errors,
		Halted:             st.Halted,
		State:              st,
	}
	if needsResume(st.Inputs.DocumentType) {
		r.Score = st.ATSScore
	} else {
		r.Score = st.QualityScore
	}
	if st.Elapsed != nil {
		r.ElapsedSeconds = st.Elapsed.Seconds()
	}
	return r
}

// HasOutput reports whether the run produced something worth delivering.
func HasOutput(st state.State) bool {
	if st.Inputs.DocumentType == state.ResumeSuggestions {
		return st.Suggestions != nil && st.Suggestions["error"] == nil
	}
	return st.PrimaryContent() != ""
}

func jobTitle(st state.State) string {
	if st.JobTitle != nil && *st.JobTitle != "" {
		return *st.JobTitle
	}
	return st.Inputs.JobTitle
}
