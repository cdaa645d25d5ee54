// Package extract splits a company web page into structured contact and
// social fields plus the residual paragraph text used for enrichment.
package extract

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxExcessRunes caps the paragraph text carried to enrichment.
const MaxExcessRunes = 8000

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-]{7,15}`)
)

// socialDomains maps each tracked platform to the host fragment that
// identifies its links.
var socialDomains = []struct {
	platform string
	domain   string
}{
	{"linkedin", "linkedin.com"},
	{"facebook", "facebook.com"},
	{"instagram", "instagram.com"},
}

// Result holds the fields extracted from one page. Empty strings are absent.
type Result struct {
	Email           string
	Phone           string
	PhoneE164       string
	LinkedIn        string
	Facebook        string
	Instagram       string
	MetaDescription string
	ExcessData      string
}

// IsZero reports whether nothing was extracted.
func (r Result) IsZero() bool {
	return r == Result{}
}

// Parse extracts fields from an HTML body. Email and phone are matched
// against the raw body, so addresses in scripts and attributes count.
// region is the default region used to normalize the phone to E.164.
func Parse(body, region string) Result {
	var r Result
	r.Email = emailPattern.FindString(body)
	r.Phone = strings.TrimSpace(phonePattern.FindString(body))
	if r.Phone != "" {
		r.PhoneE164 = normalizePhone(r.Phone, region)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return r
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.A:
				r.setSocial(attr(n, "href"))
			case atom.Meta:
				if r.MetaDescription == "" && strings.EqualFold(attr(n, "name"), "description") {
					r.MetaDescription = strings.TrimSpace(attr(n, "content"))
				}
			case atom.P:
				if text := nodeText(n); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	r.ExcessData = truncateRunes(collapseSpace(strings.Join(paragraphs, " ")), MaxExcessRunes)
	return r
}

// setSocial records href for every platform it mentions that has not been
// seen yet. Platforms are tracked independently.
func (r *Result) setSocial(href string) {
	if href == "" {
		return
	}
	lower := strings.ToLower(href)
	for _, s := range socialDomains {
		if !strings.Contains(lower, s.domain) {
			continue
		}
		switch s.platform {
		case "linkedin":
			if r.LinkedIn == "" {
				r.LinkedIn = href
			}
		case "facebook":
			if r.Facebook == "" {
				r.Facebook = href
			}
		case "instagram":
			if r.Instagram == "" {
				r.Instagram = href
			}
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// nodeText joins the trimmed text nodes under n with single spaces.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// normalizePhone returns the E.164 form of raw, or "" when it is not a
// valid number for region.
func normalizePhone(raw, region string) string {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(num) || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
