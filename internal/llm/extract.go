package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock removes a markdown code fence wrapping the reply. Models
// often fence JSON even when told not to. Any language tag is dropped.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the opening line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ExtractJSON recovers the JSON object in a model reply. The fence is
// stripped first; if what remains is not an object, the first balanced
// {...} span in the text is used. Fenced and bare replies decode alike.
func ExtractJSON(text string) (map[string]any, error) {
	out := map[string]any{}
	if err := DecodeJSON(text, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeJSON is ExtractJSON for a caller-supplied target.
func DecodeJSON(text string, v any) error {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return &ParseError{Message: "empty reply"}
	}

	var lastErr error
	if strings.HasPrefix(cleaned, "{") {
		if lastErr = json.Unmarshal([]byte(cleaned), v); lastErr == nil {
			return nil
		}
	}

	// Prose around the payload, or a fence that was not at the start
	for start := strings.Index(text, "{"); start >= 0; {
		// An unbalanced start may still precede a complete object
		if candidate := extractJSONObject(text[start:]); candidate != "" {
			if lastErr = json.Unmarshal([]byte(candidate), v); lastErr == nil {
				return nil
			}
		}
		next := strings.Index(text[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}

	return &ParseError{Message: "no JSON object found", Excerpt: excerpt(text, 200), Cause: lastErr}
}

// extractJSONObject returns the balanced {...} span at the start of text,
// honouring string literals and escapes, or "" when unbalanced.
func extractJSONObject(text string) string {
	if !strings.HasPrefix(text, "{") {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
