// Package observability provides logging, metrics and formatted output
// utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/application-agent/internal/state"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList appends up to limit items under a heading.
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// PrintJobAnalysis outputs the role and the skills the analyzer extracted.
// Both the cover-letter and the resume analyzers' shapes are understood.
func (p *Printer) PrintJobAnalysis(st state.State) {
	ja := st.JobAnalysis
	if ja == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", st.Inputs.CompanyName))
	title := ja.String("job_title")
	if st.JobTitle != nil && *st.JobTitle != "" {
		title = *st.JobTitle
	}
	if title != "" {
		sb.WriteString(fmt.Sprintf("Role:     %s\n", title))
	}
	if level := ja.String("seniority_level"); level != "" {
		sb.WriteString(fmt.Sprintf("Level:    %s\n", level))
	}
	sb.WriteString("\n")

	required := ja.Strings("required_skills")
	if len(required) == 0 {
		required = ja.Strings("must_have_skills")
	}
	writeList(&sb, "Required Skills", required, maxItemsToShow)

	preferred := ja.Strings("preferred_skills")
	if len(preferred) == 0 {
		preferred = ja.Strings("nice_to_have_skills")
	}
	writeList(&sb, "Nice-to-haves", preferred, 3)
	writeList(&sb, "ATS Keywords", ja.Strings("ats_keywords"), maxItemsToShow)

	p.printBox("JOB ANALYSIS", strings.TrimRight(sb.String(), "\n"))
}

// PrintProgress outputs one line per progress message in the order recorded.
func (p *Printer) PrintProgress(st state.State) {
	if len(st.Progress) == 0 {
		return
	}

	var sb strings.Builder
	for i, msg := range st.Progress {
		sb.WriteString(fmt.Sprintf("%2d. %s\n", i+1, msg))
	}
	if st.Halted {
		sb.WriteString(fmt.Sprintf("\nHalted after: %s\n", st.HaltedAt))
	}
	if st.Elapsed != nil {
		sb.WriteString(fmt.Sprintf("\nElapsed: %s\n", st.Elapsed.Round(time.Millisecond)))
	}

	p.printBox(fmt.Sprintf("PROGRESS (%s)", st.Inputs.DocumentType), strings.TrimRight(sb.String(), "\n"))
}

// PrintErrors outputs the stage errors of a run.
func (p *Printer) PrintErrors(st state.State) {
	if len(st.Errors) == 0 {
		p.printBox("NO STAGE ERRORS", "✓ Every stage completed")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total errors: %d\n\n", len(st.Errors)))
	for _, e := range st.Errors {
		sb.WriteString(fmt.Sprintf("✗ %s\n", e.Stage))
		sb.WriteString(fmt.Sprintf("  %s\n", e.Message))
	}

	p.printBox("STAGE ERRORS", strings.TrimRight(sb.String(), "\n"))
}

// PrintQuality outputs the quality review of a cover letter or email.
func (p *Printer) PrintQuality(st state.State) {
	if st.QualityScore == nil && st.QualityFeedback == nil {
		return
	}

	var sb strings.Builder
	if st.QualityScore != nil {
		sb.WriteString(fmt.Sprintf("Score:    %.0f/100\n", *st.QualityScore))
	}
	if st.ValidationPassed != nil {
		status := "✗ FAILED"
		if *st.ValidationPassed {
			status = "✓ PASSED"
		}
		sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	}
	if rec := st.QualityFeedback.String("recommendation"); rec != "" {
		sb.WriteString(fmt.Sprintf("Verdict:  %s\n", rec))
	}
	sb.WriteString("\n")
	writeList(&sb, "Issues", st.QualityFeedback.Strings("issues_found"), maxItemsToShow)
	writeList(&sb, "Strengths", st.QualityFeedback.Strings("strengths"), 3)

	p.printBox("QUALITY CHECK", strings.TrimRight(sb.String(), "\n"))
}

// PrintTailoring outputs the ATS result and review of a customized resume.
func (p *Printer) PrintTailoring(st state.State) {
	if st.ATSScore == nil && len(st.MatchedProjects) == 0 {
		return
	}

	var sb strings.Builder
	if st.ATSScore != nil {
		sb.WriteString(fmt.Sprintf("ATS score:     %.1f\n", *st.ATSScore))
	}
	sb.WriteString(fmt.Sprintf("Retries:       %d\n", st.RetryCount))
	if st.HallucinationCheck != nil {
		status := "✗ FAILED"
		if *st.HallucinationCheck {
			status = "✓ PASSED"
		}
		sb.WriteString(fmt.Sprintf("Fact check:    %s\n", status))
	}
	sb.WriteString("\n")

	projects := make([]string, 0, len(st.MatchedProjects))
	for _, m := range st.MatchedProjects {
		name := m.String("repo_name")
		if name == "" {
			continue
		}
		if score, ok := m.Float("relevance_score"); ok {
			name = fmt.Sprintf("%s (%.2f)", name, score)
		}
		projects = append(projects, name)
	}
	writeList(&sb, "Matched Projects", projects, maxItemsToShow)
	writeList(&sb, "Missing Keywords", st.ATSFeedback.Strings("missing_keywords"), maxItemsToShow)

	p.printBox("RESUME TAILORING", strings.TrimRight(sb.String(), "\n"))
}

// PrintSuggestions outputs the prioritized changes for a resume.
func (p *Printer) PrintSuggestions(st state.State) {
	if st.Suggestions == nil {
		return
	}

	var sb strings.Builder
	if summary := st.Suggestions.String("summary"); summary != "" {
		sb.WriteString(summary + "\n\n")
	}
	changes := st.Suggestions.List("priority_changes")
	count := min(len(changes), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := changes[i]
		sb.WriteString(fmt.Sprintf("#%d  [%s] %s\n", i+1, c.String("priority"), c.String("suggestion")))
		if reason := c.String("reason"); reason != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", reason))
		}
	}
	if len(changes) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(changes)-maxItemsToShow))
	}

	p.printBox("RESUME SUGGESTIONS", strings.TrimRight(sb.String(), "\n"))
}

// PrintRun outputs every section that applies to the run's document type.
func (p *Printer) PrintRun(st state.State) {
	p.PrintJobAnalysis(st)
	switch st.Inputs.DocumentType {
	case state.CoverLetter, state.ColdEmail:
		p.PrintQuality(st)
	case state.ResumeCustomization:
		p.PrintTailoring(st)
	case state.ResumeSuggestions:
		p.PrintSuggestions(st)
	}
	p.PrintProgress(st)
	p.PrintErrors(st)
}
