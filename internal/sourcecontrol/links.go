package sourcecontrol

import (
	"regexp"
	"sort"
	"strings"
)

// livePatterns match deployment URLs on common hosts and markdown links
// labelled as demos. Patterns with a capture group yield the group.
var livePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://[\w\-.]+\.(?:vercel\.app|netlify\.app|herokuapp\.com|replit\.dev|railway\.app)`),
	regexp.MustCompile(`(?i)https?://[\w\-.]+\.(?:github\.io|pages\.dev|web\.app|firebaseapp\.com)`),
	regexp.MustCompile(`(?i)https?://[\w\-.]+\.(?:onrender\.com|fly\.dev|glitch\.me)`),
	regexp.MustCompile(`(?i)\[[^\]]*demo[^\]]*\]\((https?://[^)\s]+)\)`),
	regexp.MustCompile(`(?i)\[[^\]]*live[^\]]*\]\((https?://[^)\s]+)\)`),
}

// ExtractLiveLinks returns the unique deployment links found in a README,
// in first-seen order.
func ExtractLiveLinks(readme string) []string {
	if readme == "" {
		return nil
	}
	seen := make(map[string]bool)
	var links []string
	for _, re := range livePatterns {
		for _, m := range re.FindAllStringSubmatch(readme, -1) {
			link := m[0]
			if len(m) > 1 && m[1] != "" {
				link = m[1]
			}
			link = strings.TrimRight(link, ".,")
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links
}

// TechStack merges a language breakdown with repository topics. Languages
// come first, largest share first.
func TechStack(languages map[string]int, primary string, topics []string) []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 && primary != "" {
		names = append(names, primary)
	}

	seen := make(map[string]bool)
	var stack []string
	for _, item := range append(names, topics...) {
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		stack = append(stack, item)
	}
	return stack
}
