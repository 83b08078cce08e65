package search

import (
	"net/url"
	"slices"
	"strings"
)

// Domain returns the host of a URL without a leading "www.".
func Domain(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// Dedupe drops results whose URL was already seen, keeping order.
func Dedupe(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		key := strings.TrimSuffix(r.URL, "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// LooksLikeCompanyDomain reports whether the result's host contains a token
// of the company name, e.g. "acme.com" for "Acme Corp".
func LooksLikeCompanyDomain(r Result, company string) bool {
	host := Domain(r.URL)
	if host == "" {
		return false
	}
	for _, tok := range strings.Fields(strings.ToLower(company)) {
		tok = strings.Trim(tok, ".,&()")
		if len(tok) < 3 || tok == "inc" || tok == "corp" || tok == "llc" || tok == "ltd" {
			continue
		}
		if strings.Contains(host, tok) {
			return true
		}
	}
	return false
}

// PreferCompany stably moves results hosted on the company's own domain to
// the front.
func PreferCompany(results []Result, company string) []Result {
	out := slices.Clone(results)
	slices.SortStableFunc(out, func(a, b Result) int {
		ca, cb := LooksLikeCompanyDomain(a, company), LooksLikeCompanyDomain(b, company)
		switch {
		case ca && !cb:
			return -1
		case cb && !ca:
			return 1
		}
		return 0
	})
	return out
}
