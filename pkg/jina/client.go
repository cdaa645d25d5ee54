// Package jina provides a client for the Jina AI search API.
package jina

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-enrich/internal/resilience"
)

// Client defines the Jina search operations.
type Client interface {
	// Search performs a web search and returns results in rank order.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the parsed Jina Search API response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	site    string
	country string
}

// WithSite restricts results to a domain or domain suffix.
func WithSite(site string) SearchOption {
	return func(o *searchOpts) { o.site = site }
}

// WithCountry biases results to a country code, e.g. "SG".
func WithCountry(gl string) SearchOption {
	return func(o *searchOpts) { o.country = gl }
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom search base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a new Jina search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://s.jina.ai",
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.LogRetry("jina", "search")
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	params := url.Values{}
	params.Set("q", query)
	if so.site != "" {
		params.Set("site", so.site)
	}
	if so.country != "" {
		params.Set("gl", so.country)
	}
	reqURL := c.baseURL + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create search request")
	}

	// Errors inside the retry loop stay unwrapped so IsTransient can
	// classify them.
	result, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (*SearchResponse, error) {
		req := req.Clone(ctx)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Respond-With", "no-content")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		// Jina returns 422 when no results are available for the query.
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return &SearchResponse{Code: resp.StatusCode}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{URL: c.baseURL, StatusCode: resp.StatusCode}
		}

		var out SearchResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, eris.Wrap(err, "jina: unmarshal search response")
		}
		return &out, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}
	return result, nil
}
