package discovery

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/company-enrich/internal/fetcher"
	"github.com/sells-group/company-enrich/internal/resilience"
)

// DefaultDuckDuckGoURL is the JavaScript-free results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML results page.
type DuckDuckGoSearcher struct {
	baseURL   string
	region    string
	userAgent string
	timeout   time.Duration
	retry     resilience.Policy
}

// DuckDuckGoOption configures a DuckDuckGoSearcher.
type DuckDuckGoOption func(*DuckDuckGoSearcher)

// WithDuckDuckGoURL overrides the results endpoint (for testing).
func WithDuckDuckGoURL(u string) DuckDuckGoOption {
	return func(s *DuckDuckGoSearcher) { s.baseURL = u }
}

// WithRegion sets the DuckDuckGo region code, e.g. "sg-en".
func WithRegion(region string) DuckDuckGoOption {
	return func(s *DuckDuckGoSearcher) { s.region = region }
}

// WithRetry sets the retry policy for result page requests.
func WithRetry(p resilience.Policy) DuckDuckGoOption {
	return func(s *DuckDuckGoSearcher) { s.retry = p }
}

// NewDuckDuckGoSearcher creates a DuckDuckGoSearcher.
func NewDuckDuckGoSearcher(timeout time.Duration, opts ...DuckDuckGoOption) *DuckDuckGoSearcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	s := &DuckDuckGoSearcher{
		baseURL:   DefaultDuckDuckGoURL,
		userAgent: fetcher.DefaultUserAgent,
		timeout:   timeout,
		retry:     resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.LogRetry("duckduckgo", "search")
	}
	return s
}

// Open starts a session with its own cookie jar and connection pool.
func (s *DuckDuckGoSearcher) Open(_ context.Context) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create cookie jar")
	}
	return &ddgSession{
		searcher: s,
		client: &http.Client{
			Timeout: s.timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}, nil
}

type ddgSession struct {
	searcher *DuckDuckGoSearcher
	client   *http.Client
}

func (d *ddgSession) Search(ctx context.Context, query string) ([]string, error) {
	links, err := resilience.Do(ctx, d.searcher.retry, func(ctx context.Context) ([]string, error) {
		return d.searchOnce(ctx, query)
	})
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: search")
	}
	return links, nil
}

func (d *ddgSession) searchOnce(ctx context.Context, query string) ([]string, error) {
	form := url.Values{}
	form.Set("q", query)
	if d.searcher.region != "" {
		form.Set("kl", d.searcher.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.searcher.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.searcher.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	// DuckDuckGo answers automated traffic with 202 and a challenge page.
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{URL: d.searcher.baseURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return ParseResultLinks(string(body))
}

// DismissConsent loads the results landing page once so the cookies it
// sets ride along on every later query, and pins the region preference
// DuckDuckGo otherwise asks for.
func (d *ddgSession) DismissConsent(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.searcher.baseURL, nil)
	if err != nil {
		return eris.Wrap(err, "duckduckgo: create landing request")
	}
	req.Header.Set("User-Agent", d.searcher.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "duckduckgo: load landing page")
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close() //nolint:errcheck

	if d.searcher.region != "" {
		d.client.Jar.SetCookies(req.URL, []*http.Cookie{{Name: "kl", Value: d.searcher.region, Path: "/"}})
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Wrap(&resilience.StatusError{URL: d.searcher.baseURL, StatusCode: resp.StatusCode}, "duckduckgo: load landing page")
	}
	return nil
}

func (d *ddgSession) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// ParseResultLinks returns every absolute outbound link on a results page,
// unwrapping DuckDuckGo redirect links and removing duplicates.
func ParseResultLinks(page string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse results")
	}

	seen := make(map[string]bool)
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if link := resolveResultLink(a.Val); link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// resolveResultLink turns an href from the results page into the target
// URL, or "" when it is not an absolute http(s) link.
func resolveResultLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return resolveResultLink(target)
		}
	}
	return u.String()
}
