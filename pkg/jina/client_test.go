package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-enrich/internal/resilience"
)

func fastRetry() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	want := SearchResponse{
		Code: 200,
		Data: []SearchResult{
			{Title: "Acme Logistics", URL: "https://www.acme.com.sg/", Description: "Freight forwarding"},
			{Title: "Acme on LinkedIn", URL: "https://sg.linkedin.com/company/acme"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "no-content", r.Header.Get("X-Respond-With"))
		assert.Equal(t, `"acme logistics" Singapore`, r.URL.Query().Get("q"))
		assert.Equal(t, ".sg", r.URL.Query().Get("site"))
		assert.Equal(t, "SG", r.URL.Query().Get("gl"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.Search(context.Background(), `"acme logistics" Singapore`, WithSite(".sg"), WithCountry("SG"))

	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.Equal(t, "https://www.acme.com.sg/", got.Data[0].URL)
	assert.Equal(t, "Acme on LinkedIn", got.Data[1].Title)
}

func TestSearch_NoOptionalParams(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("site"))
		assert.False(t, r.URL.Query().Has("gl"))
		_, _ = w.Write([]byte(`{"code":200,"data":[]}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), "orchid")
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"message":"no results"}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Code)
	assert.Empty(t, got.Data)
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"data":[{"url":"https://acme.sg"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry())).
		Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, got.Data, 1)
}

func TestSearch_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry())).
		Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jina: search")
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry())).
		Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":[`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient("key").(*httpClient)
	assert.Equal(t, "https://s.jina.ai", c.baseURL)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	assert.NotNil(t, c.retry.OnRetry)

	hc := &http.Client{Timeout: time.Second}
	c = NewClient("key", WithHTTPClient(hc)).(*httpClient)
	assert.Same(t, hc, c.http)
}
