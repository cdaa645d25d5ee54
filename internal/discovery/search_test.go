package discovery

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
	"github.com/sells-group/company-enrich/pkg/jina"
)

const ddgPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.acme.com.sg%2F&rut=abc">Acme</a>
  <a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.acme.com.sg%2F&rut=def">acme.com.sg</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.linkedin.com/company/acme">Acme | LinkedIn</a>
</div>
<a href="/html/?q=next">Next</a>
<a href="mailto:hello@acme.sg">mail</a>
</body></html>`

func TestParseResultLinks(t *testing.T) {
	links, err := ParseResultLinks(ddgPage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.acme.com.sg/",
		"https://www.linkedin.com/company/acme",
	}, links)
}

func TestDuckDuckGoSession_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, `"acme" Singapore site:.sg`, r.PostForm.Get("q"))
		assert.Equal(t, "sg-en", r.PostForm.Get("kl"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	searcher := NewDuckDuckGoSearcher(time.Second, WithDuckDuckGoURL(srv.URL), WithRegion("sg-en"))
	session, err := searcher.Open(context.Background())
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck

	links, err := session.Search(context.Background(), `"acme" Singapore site:.sg`)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://www.acme.com.sg/", links[0])
}

func TestDuckDuckGoSession_ChallengeIsError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	searcher := NewDuckDuckGoSearcher(time.Second, WithDuckDuckGoURL(srv.URL),
		WithRetry(resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}))
	session, err := searcher.Open(context.Background())
	require.NoError(t, err)

	_, err = session.Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "202")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDuckDuckGoSession_DismissConsent(t *testing.T) {
	var gotRegion, gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "ddg_session", Value: "abc", Path: "/"})
			_, _ = w.Write([]byte("<html><body>consent</body></html>"))
			return
		}
		if c, err := r.Cookie("kl"); err == nil {
			gotRegion = c.Value
		}
		if c, err := r.Cookie("ddg_session"); err == nil {
			gotSession = c.Value
		}
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	searcher := NewDuckDuckGoSearcher(time.Second, WithDuckDuckGoURL(srv.URL), WithRegion("sg-en"))
	session, err := searcher.Open(context.Background())
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck

	cd, ok := session.(ConsentDismisser)
	require.True(t, ok)
	require.NoError(t, cd.DismissConsent(context.Background()))

	_, err = session.Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "sg-en", gotRegion)
	assert.Equal(t, "abc", gotSession)
}

func TestDuckDuckGoSession_DismissConsentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	searcher := NewDuckDuckGoSearcher(time.Second, WithDuckDuckGoURL(srv.URL))
	session, err := searcher.Open(context.Background())
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck

	err = session.(ConsentDismisser).DismissConsent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestJinaSession_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sg", r.URL.Query().Get("site"))
		assert.Equal(t, "SG", r.URL.Query().Get("gl"))
		_ = json.NewEncoder(w).Encode(jina.SearchResponse{
			Code: 200,
			Data: []jina.SearchResult{{URL: "https://acme.sg"}, {URL: " "}, {URL: "https://orchid.com.sg"}},
		})
	}))
	defer srv.Close()

	searcher := NewJinaSearcher(jina.NewClient("key", jina.WithBaseURL(srv.URL)), ".sg", "SG")
	session, err := searcher.Open(context.Background())
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck

	links, err := session.Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.sg", "https://orchid.com.sg"}, links)
}

func TestJinaSearcher_NilClient(t *testing.T) {
	_, err := NewJinaSearcher(nil, "", "").Open(context.Background())
	require.Error(t, err)
}

func TestBoundedRandomDelay(t *testing.T) {
	d := BoundedRandomDelay(time.Millisecond, 3*time.Millisecond)
	start := time.Now()
	require.NoError(t, d(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := BoundedRandomDelay(time.Hour, 2*time.Hour)(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
