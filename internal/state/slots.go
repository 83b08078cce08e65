package state

// Slot names one per-stage output field of State.
type Slot string

const (
	SlotJobAnalysis         Slot = "job_analysis"
	SlotJobTitle            Slot = "job_title"
	SlotCompanyResearch     Slot = "company_research"
	SlotGitHub              Slot = "github_data"
	SlotDBProfile           Slot = "db_profile"
	SlotResumeAnalysis      Slot = "resume_analysis"
	SlotWritingStyle        Slot = "writing_style"
	SlotGeneratedContent    Slot = "generated_content"
	SlotHumanizedContent    Slot = "humanized_content"
	SlotQualityScore        Slot = "quality_score"
	SlotQualityFeedback     Slot = "quality_feedback"
	SlotValidationPassed    Slot = "validation_passed"
	SlotParsedResume        Slot = "parsed_resume"
	SlotMatchedProjects     Slot = "matched_projects"
	SlotOptimizedExperience Slot = "optimized_experience"
	SlotCustomizedResume    Slot = "customized_resume"
	SlotATSScore            Slot = "ats_score"
	SlotATSFeedback         Slot = "ats_feedback"
	SlotQAResults           Slot = "qa_results"
	SlotHallucinationCheck  Slot = "hallucination_check"
	SlotDiffReport          Slot = "diff_report"
	SlotSuggestions         Slot = "suggestions"
)

// AllSlots lists every slot in declaration order.
var AllSlots = []Slot{
	SlotJobAnalysis, SlotJobTitle, SlotCompanyResearch, SlotGitHub, SlotDBProfile,
	SlotResumeAnalysis, SlotWritingStyle, SlotGeneratedContent, SlotHumanizedContent,
	SlotQualityScore, SlotQualityFeedback, SlotValidationPassed, SlotParsedResume,
	SlotMatchedProjects, SlotOptimizedExperience, SlotCustomizedResume, SlotATSScore,
	SlotATSFeedback, SlotQAResults, SlotHallucinationCheck, SlotDiffReport, SlotSuggestions,
}

// Known reports whether slot is one of AllSlots.
func (s Slot) Known() bool {
	for _, k := range AllSlots {
		if k == s {
			return true
		}
	}
	return false
}

// Has reports whether slot has been written.
func (s State) Has(slot Slot) bool {
	switch slot {
	case SlotJobAnalysis:
		return s.JobAnalysis != nil
	case SlotJobTitle:
		return s.JobTitle != nil
	case SlotCompanyResearch:
		return s.CompanyResearch != nil
	case SlotGitHub:
		return s.GitHub != nil
	case SlotDBProfile:
		return s.DBProfile != nil
	case SlotResumeAnalysis:
		return s.ResumeAnalysis != nil
	case SlotWritingStyle:
		return s.WritingStyle != nil
	case SlotGeneratedContent:
		return s.GeneratedContent != nil
	case SlotHumanizedContent:
		return s.HumanizedContent != nil
	case SlotQualityScore:
		return s.QualityScore != nil
	case SlotQualityFeedback:
		return s.QualityFeedback != nil
	case SlotValidationPassed:
		return s.ValidationPassed != nil
	case SlotParsedResume:
		return s.ParsedResume != nil
	case SlotMatchedProjects:
		return s.MatchedProjects != nil
	case SlotOptimizedExperience:
		return s.OptimizedExperience != nil
	case SlotCustomizedResume:
		return s.CustomizedResume != nil
	case SlotATSScore:
		return s.ATSScore != nil
	case SlotATSFeedback:
		return s.ATSFeedback != nil
	case SlotQAResults:
		return s.QAResults != nil
	case SlotHallucinationCheck:
		return s.HallucinationCheck != nil
	case SlotDiffReport:
		return s.DiffReport != nil
	case SlotSuggestions:
		return s.Suggestions != nil
	}
	return false
}

// CopySlot overwrites dst's slot with src's value. An unset source slot
// leaves dst untouched, so a failed branch never erases prior data.
func CopySlot(dst *State, src State, slot Slot) {
	if !src.Has(slot) {
		return
	}
	switch slot {
	case SlotJobAnalysis:
		dst.JobAnalysis = src.JobAnalysis
	case SlotJobTitle:
		dst.JobTitle = src.JobTitle
	case SlotCompanyResearch:
		dst.CompanyResearch = src.CompanyResearch
	case SlotGitHub:
		dst.GitHub = src.GitHub
	case SlotDBProfile:
		dst.DBProfile = src.DBProfile
	case SlotResumeAnalysis:
		dst.ResumeAnalysis = src.ResumeAnalysis
	case SlotWritingStyle:
		dst.WritingStyle = src.WritingStyle
	case SlotGeneratedContent:
		dst.GeneratedContent = src.GeneratedContent
	case SlotHumanizedContent:
		dst.HumanizedContent = src.HumanizedContent
	case SlotQualityScore:
		dst.QualityScore = src.QualityScore
	case SlotQualityFeedback:
		dst.QualityFeedback = src.QualityFeedback
	case SlotValidationPassed:
		dst.ValidationPassed = src.ValidationPassed
	case SlotParsedResume:
		dst.ParsedResume = src.ParsedResume
	case SlotMatchedProjects:
		dst.MatchedProjects = src.MatchedProjects
	case SlotOptimizedExperience:
		dst.OptimizedExperience = src.OptimizedExperience
	case SlotCustomizedResume:
		dst.CustomizedResume = src.CustomizedResume
	case SlotATSScore:
		dst.ATSScore = src.ATSScore
	case SlotATSFeedback:
		dst.ATSFeedback = src.ATSFeedback
	case SlotQAResults:
		dst.QAResults = src.QAResults
	case SlotHallucinationCheck:
		dst.HallucinationCheck = src.HallucinationCheck
	case SlotDiffReport:
		dst.DiffReport = src.DiffReport
	case SlotSuggestions:
		dst.Suggestions = src.Suggestions
	}
}

// Flags is the partial view of outputs carried by streaming events: one
// has_<slot> entry per written slot, plus the validation outcome when known.
func (s State) Flags() map[string]bool {
	flags := make(map[string]bool)
	for _, slot := range AllSlots {
		if s.Has(slot) {
			flags["has_"+string(slot)] = true
		}
	}
	if s.ValidationPassed != nil {
		flags["validation_passed"] = *s.ValidationPassed
	}
	if s.HallucinationCheck != nil {
		flags["hallucination_check_passed"] = *s.HallucinationCheck
	}
	return flags
}
