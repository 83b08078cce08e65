// Package ats scores resume text against a job's keywords and a handful of
// formatting checks commonly applied by applicant tracking systems.
package ats

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	// DefaultThreshold is the passing overall score.
	DefaultThreshold = 75.0

	keywordWeight = 0.70
	formatWeight  = 0.30

	minWords = 300
	maxWords = 1000

	// MaxRetryKeywords bounds the missing keywords handed back for a retry.
	MaxRetryKeywords = 10
)

var (
	commonSections = []string{"experience", "education", "skills", "projects"}
	bulletPattern  = regexp.MustCompile(`[•\-*]`)
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// KeywordAnalysis reports which job keywords appear in the resume.
type KeywordAnalysis struct {
	Matched         []string `json:"matched_keywords"`
	Missing         []string `json:"missing_keywords"`
	MatchCount      int      `json:"match_count"`
	TotalKeywords   int      `json:"total_keywords"`
	MatchPercentage float64  `json:"match_percentage"`
}

// FormatAnalysis reports the formatting checks.
type FormatAnalysis struct {
	Score     float64            `json:"format_score"`
	Detailed  map[string]float64 `json:"detailed_scores"`
	Issues    []string           `json:"issues"`
	WordCount int                `json:"word_count"`
}

// Report is the full scoring result.
type Report struct {
	OverallScore    float64         `json:"overall_score"`
	Passed          bool            `json:"passed"`
	Threshold       float64         `json:"threshold"`
	Keywords        KeywordAnalysis `json:"keyword_analysis"`
	Format          FormatAnalysis  `json:"format_analysis"`
	Feedback        []string        `json:"feedback"`
	Recommendations []string        `json:"recommendations"`
}

// Scorer scores resumes against a fixed threshold.
type Scorer struct {
	Threshold float64
}

// NewScorer returns a scorer; a non-positive threshold uses DefaultThreshold.
func NewScorer(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{Threshold: threshold}
}

// Score rates resume against the given keywords.
func (s *Scorer) Score(resume string, keywords []string) Report {
	kw := MatchKeywords(resume, keywords)
	format := CheckFormat(resume)

	overall := round2(kw.MatchPercentage*keywordWeight + format.Score*formatWeight)
	report := Report{
		OverallScore: overall,
		Passed:       overall >= s.Threshold,
		Threshold:    s.Threshold,
		Keywords:     kw,
		Format:       format,
	}
	report.Feedback = s.feedback(report)
	report.Recommendations = recommendations(kw, format)
	return report
}

// RetryKeywords returns the missing keywords worth mentioning on a retry.
func (r Report) RetryKeywords() []string {
	missing := r.Keywords.Missing
	if len(missing) > MaxRetryKeywords {
		missing = missing[:MaxRetryKeywords]
	}
	return append([]string(nil), missing...)
}

// Document converts the report to its JSON object form.
func (r Report) Document() map[string]any {
	data, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"overall_score": r.OverallScore}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"overall_score": r.OverallScore}
	}
	return out
}

func (s *Scorer) feedback(r Report) []string {
	var fb []string
	switch {
	case r.OverallScore >= 90:
		fb = append(fb, "Excellent ATS optimization!")
	case r.Passed:
		fb = append(fb, "Good ATS score, but there's room for improvement.")
	default:
		fb = append(fb, "ATS score below threshold. Significant improvements needed.")
	}
	if r.Keywords.MatchPercentage < 60 {
		fb = append(fb, fmt.Sprintf("Low keyword match (%.1f%%). Add more relevant keywords.", r.Keywords.MatchPercentage))
	}
	if len(r.Keywords.Missing) > 0 {
		top := r.Keywords.Missing
		if len(top) > 5 {
			top = top[:5]
		}
		fb = append(fb, "Missing important keywords: "+strings.Join(top, ", "))
	}
	return append(fb, r.Format.Issues...)
}

// MatchKeywords checks each keyword case-insensitively on word boundaries.
// Duplicate keywords (ignoring case) are counted once.
func MatchKeywords(resume string, keywords []string) KeywordAnalysis {
	out := KeywordAnalysis{Matched: []string{}, Missing: []string{}}
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		if containsWord(resume, k) {
			out.Matched = append(out.Matched, k)
		} else {
			out.Missing = append(out.Missing, k)
		}
	}
	out.MatchCount = len(out.Matched)
	out.TotalKeywords = len(out.Matched) + len(out.Missing)
	if out.TotalKeywords > 0 {
		out.MatchPercentage = round2(float64(out.MatchCount) / float64(out.TotalKeywords) * 100)
	}
	return out
}

// containsWord matches keyword with non-word characters (or text edges) on
// both sides, so "Go" does not match "Google" and "C++" still matches.
func containsWord(text, keyword string) bool {
	re, err := regexp.Compile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(keyword) + `($|[^\p{L}\p{N}_])`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// CheckFormat averages the section, length, bullet and contact checks.
func CheckFormat(resume string) FormatAnalysis {
	lower := strings.ToLower(resume)
	scores := make(map[string]float64, 4)
	var issues []string

	var missing []string
	for _, section := range commonSections {
		if !strings.Contains(lower, section) {
			missing = append(missing, section)
		}
	}
	found := len(commonSections) - len(missing)
	scores["sections_score"] = float64(found) / float64(len(commonSections)) * 100
	if len(missing) > 0 {
		issues = append(issues, "Missing sections: "+strings.Join(missing, ", "))
	}

	words := len(strings.Fields(resume))
	switch {
	case words < minWords:
		scores["length_score"] = 50
		issues = append(issues, fmt.Sprintf("Resume too short (< %d words)", minWords))
	case words > maxWords:
		scores["length_score"] = 70
		issues = append(issues, fmt.Sprintf("Resume too long (> %d words)", maxWords))
	default:
		scores["length_score"] = 100
	}

	if bulletPattern.MatchString(resume) {
		scores["formatting_score"] = 100
	} else {
		scores["formatting_score"] = 70
		issues = append(issues, "No bullet points found (recommended for ATS)")
	}

	if emailPattern.MatchString(resume) {
		scores["contact_score"] = 100
	} else {
		scores["contact_score"] = 50
		issues = append(issues, "No email address found")
	}

	var total float64
	for _, v := range scores {
		total += v
	}
	if issues == nil {
		issues = []string{}
	}
	return FormatAnalysis{
		Score:     round2(total / float64(len(scores))),
		Detailed:  scores,
		Issues:    issues,
		WordCount: words,
	}
}

func recommendations(kw KeywordAnalysis, format FormatAnalysis) []string {
	recs := []string{}
	if kw.MatchPercentage < 70 {
		recs = append(recs, "Incorporate more job-specific keywords naturally in your experience and projects")
	}
	if n := len(kw.Missing); n > 5 {
		recs = append(recs, fmt.Sprintf("Add %d missing keywords where relevant", min(n, MaxRetryKeywords)))
	}
	if format.Score >= 80 {
		return recs
	}
	for _, issue := range format.Issues {
		lower := strings.ToLower(issue)
		switch {
		case strings.Contains(lower, "bullet points"):
			recs = append(recs, "Use bullet points to list accomplishments")
		case strings.Contains(lower, "sections"):
			recs = append(recs, "Ensure all major resume sections are present")
		case strings.Contains(lower, "too short"):
			recs = append(recs, "Expand on your accomplishments and project details")
		case strings.Contains(lower, "too long"):
			recs = append(recs, "Condense your resume to be more concise")
		}
	}
	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
