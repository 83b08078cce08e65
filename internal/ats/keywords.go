package ats

import (
	"maps"
	"slices"
	"strings"

	"github.com/jonathan/application-agent/internal/state"
)

// JobKeywords collects the scoring keywords from a job-description analysis:
// its ats_keywords list plus every list under tech_stack, in that order.
// Repeats are dropped ignoring case.
func JobKeywords(analysis state.Document) []string {
	keywords := analysis.Strings("ats_keywords")
	if stack := analysis.Map("tech_stack"); stack != nil {
		for _, category := range slices.Sorted(maps.Keys(stack)) {
			keywords = append(keywords, stack.Strings(category)...)
		}
	} else {
		// Some replies flatten tech_stack into a plain list.
		keywords = append(keywords, analysis.Strings("tech_stack")...)
	}
	return dedupe(keywords)
}

func dedupe(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := keywords[:0]
	for _, k := range keywords {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	return out
}
