package resumetailor

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// rawDiffLines caps the unified diff kept in the report.
const rawDiffLines = 100

// DiffStats counts line-level changes between two resume versions.
type DiffStats struct {
	LinesAdded       int     `json:"lines_added"`
	LinesRemoved     int     `json:"lines_removed"`
	LinesUnchanged   int     `json:"lines_unchanged"`
	TotalLines       int     `json:"total_lines"`
	ChangePercentage float64 `json:"change_percentage"`
}

// Document returns s as a report value.
func (s DiffStats) Document() map[string]any {
	return map[string]any{
		"lines_added":       s.LinesAdded,
		"lines_removed":     s.LinesRemoved,
		"lines_unchanged":   s.LinesUnchanged,
		"total_lines":       s.TotalLines,
		"change_percentage": s.ChangePercentage,
	}
}

// LineDiff compares original and customized line by line. A replaced line
// counts as one removal and one addition. The percentage is relative to the
// original's line count.
func LineDiff(original, customized string) (DiffStats, string) {
	a := splitLines(original)
	b := splitLines(customized)

	var st DiffStats
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			st.LinesUnchanged += op.I2 - op.I1
		case 'd':
			st.LinesRemoved += op.I2 - op.I1
		case 'i':
			st.LinesAdded += op.J2 - op.J1
		case 'r':
			st.LinesRemoved += op.I2 - op.I1
			st.LinesAdded += op.J2 - op.J1
		}
	}
	st.TotalLines = len(b)
	if len(a) > 0 {
		pct := float64(st.LinesAdded+st.LinesRemoved) / float64(len(a)) * 100
		st.ChangePercentage = math.Round(pct*100) / 100
	}

	raw, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(customized),
		FromFile: "original",
		ToFile:   "customized",
		Context:  1,
	})
	if err != nil {
		raw = ""
	}
	return st, firstLines(raw, rawDiffLines)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
