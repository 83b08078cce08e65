package agents

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// NoneText stands in for empty prompt sections.
const NoneText = "None provided"

// JSONText renders v for a prompt. Nil and empty values become NoneText.
func JSONText(v any) string {
	if isEmpty(v) {
		return NoneText
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NoneText
	}
	return string(b)
}

// TextOr returns s, or fallback when s is blank.
func TextOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// StripFence removes a fenced code block wrapper around a plain-text reply.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	b, err := json.Marshal(v)
	if err != nil {
		return true
	}
	switch string(b) {
	case "null", "{}", "[]", `""`:
		return true
	}
	return false
}
