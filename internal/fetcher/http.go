// Package fetcher downloads company web pages.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/sells-group/company-enrich/internal/resilience"
)

// DefaultUserAgent mimics a desktop browser; many small company sites
// reject unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Page is a fetched document with its body decoded to UTF-8.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        string
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// RequestsPerSecond bounds the overall request rate. Zero disables limiting.
	RequestsPerSecond float64
	Retry             resilience.Policy
}

// HTTPFetcher implements Fetcher over net/http with rate limiting and
// retries on transient failures.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	retry     resilience.Policy
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.LogRetry("fetcher", "fetch")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		retry:     opts.Retry,
	}
}

// Fetch GETs url and returns its decoded body. Any non-2xx status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	page, err := resilience.Do(ctx, f.retry, func(ctx context.Context) (*Page, error) {
		return f.fetchOnce(ctx, url)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", url)
	}
	return page, nil
}

// fetchOnce performs a single attempt. Transport and status errors are
// returned unwrapped so the retry policy can classify them.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &resilience.StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(io.LimitReader(resp.Body, f.maxBody), contentType)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// Close releases idle connections held by the fetcher.
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
func decodeBody(r io.Reader, contentType string) (string, error) {
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") &&
		!strings.HasPrefix(strings.ToLower(contentType), "text/") {
		data, err := io.ReadAll(r)
		return string(data), err
	}
	cr, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(cr)
	return string(data), err
}
