package identity

import (
	"net/url"
	"strings"
)

// DefaultJurisdiction is the domain marker a candidate must carry.
const DefaultJurisdiction = ".sg"

// DefaultBlacklist lists URL substrings that identify aggregators,
// directories, social networks and search engines rather than a
// company's own site.
var DefaultBlacklist = []string{
	"companies",
	"google",
	"linkedin",
	"facebook",
	"instagram",
	"twitter",
	"youtube",
	"wikipedia",
	"bloomberg",
	"sgpbusiness",
	"opengovsg",
	"recordowl",
	"yellowpages",
	"dnb.com",
	"zoominfo",
	"crunchbase",
	"glassdoor",
	"jobstreet",
	"indeed",
	"duckduckgo",
	"jina.ai",
}

// Matcher decides whether a candidate URL belongs to a named company.
type Matcher struct {
	jurisdiction string
	blacklist    []string
}

// NewMatcher creates a Matcher. An empty jurisdiction falls back to
// DefaultJurisdiction and a nil blacklist to DefaultBlacklist.
func NewMatcher(jurisdiction string, blacklist []string) *Matcher {
	if jurisdiction == "" {
		jurisdiction = DefaultJurisdiction
	}
	if blacklist == nil {
		blacklist = DefaultBlacklist
	}
	lowered := make([]string, 0, len(blacklist))
	for _, b := range blacklist {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			lowered = append(lowered, b)
		}
	}
	return &Matcher{
		jurisdiction: strings.ToLower(jurisdiction),
		blacklist:    lowered,
	}
}

// Jurisdiction returns the domain marker required by the matcher.
func (m *Matcher) Jurisdiction() string {
	return m.jurisdiction
}

// Evaluate reports whether candidateURL plausibly belongs to companyName.
// A single name token appearing in the host or path is enough once the
// blacklist and jurisdiction filters have passed.
func (m *Matcher) Evaluate(candidateURL, companyName string) bool {
	u := strings.ToLower(strings.TrimSpace(candidateURL))
	if u == "" || strings.TrimSpace(companyName) == "" {
		return false
	}

	for _, b := range m.blacklist {
		if strings.Contains(u, b) {
			return false
		}
	}

	domain, path := splitURL(u)
	if !strings.Contains(domain, m.jurisdiction) {
		return false
	}

	name := Normalize(companyName)
	if len(name.Tokens) == 0 {
		return false
	}

	for _, tok := range name.Tokens {
		if strings.Contains(domain, tok) || strings.Contains(path, tok) {
			return true
		}
	}
	return false
}

// splitURL separates a lowercased URL into its host name and the path
// with any query string. Input without a scheme is read as http.
func splitURL(u string) (domain, path string) {
	raw := u
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		if i := strings.Index(u, "://"); i >= 0 {
			u = u[i+3:]
		}
		if i := strings.IndexAny(u, "/?#"); i >= 0 {
			return u[:i], strings.TrimLeft(u[i:], "/")
		}
		return u, ""
	}

	path = strings.TrimPrefix(parsed.EscapedPath(), "/")
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return parsed.Hostname(), path
}
