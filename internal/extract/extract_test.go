package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-enrich/internal/fetcher"
	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/resilience"
)

const acmePage = `<!DOCTYPE html>
<html><head>
<title>Acme Logistics</title>
<META NAME="Description" CONTENT="  Freight forwarding across ASEAN.  ">
<meta name="description" content="second description">
<style>p { color: red; }</style>
</head><body>
<nav><a href="/about">About</a></nav>
<p>Acme   moves
   cargo.</p>
<p>Write to <a href="mailto:sales@acme.com.sg">sales@acme.com.sg</a> or ops@acme.com.sg.</p>
<p>Call +65 8123 4567 today.<script>var x = 1;</script></p>
<footer>
  <a href="https://www.facebook.com/acmesg">Facebook</a>
  <a href="https://www.linkedin.com/company/acme-sg">LinkedIn</a>
  <a href="https://www.facebook.com/other">Other</a>
  <a href="https://instagram.com/acme.sg">IG</a>
</footer>
</body></html>`

type fakeFetcher struct {
	pages map[string]string
	err   error
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetcher.Page, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &resilience.StatusError{URL: url, StatusCode: http.StatusNotFound}
	}
	return &fetcher.Page{URL: url, StatusCode: http.StatusOK, Body: body}, nil
}

func TestParse(t *testing.T) {
	r := Parse(acmePage, "SG")

	assert.Equal(t, "sales@acme.com.sg", r.Email)
	assert.Equal(t, "+65 8123 4567", r.Phone)
	assert.Equal(t, "+6581234567", r.PhoneE164)
	assert.Equal(t, "https://www.linkedin.com/company/acme-sg", r.LinkedIn)
	assert.Equal(t, "https://www.facebook.com/acmesg", r.Facebook)
	assert.Equal(t, "https://instagram.com/acme.sg", r.Instagram)
	assert.Equal(t, "Freight forwarding across ASEAN.", r.MetaDescription)
	assert.Equal(t,
		"Acme moves cargo. Write to sales@acme.com.sg or ops@acme.com.sg. Call +65 8123 4567 today.",
		r.ExcessData)
}

func TestParse_EmptyPage(t *testing.T) {
	r := Parse("<html><body><div>nothing here</div></body></html>", "SG")
	assert.True(t, r.IsZero())
}

func TestParse_SocialsIndependent(t *testing.T) {
	body := `<a href="https://linkedin.com/company/a">x</a><a href="https://instagram.com/a">y</a>`
	r := Parse(body, "SG")
	assert.Equal(t, "https://linkedin.com/company/a", r.LinkedIn)
	assert.Empty(t, r.Facebook)
	assert.Equal(t, "https://instagram.com/a", r.Instagram)
}

func TestParse_InvalidPhoneHasNoE164(t *testing.T) {
	r := Parse(`<p>Ref 0000 0000 00</p>`, "SG")
	assert.Equal(t, "0000 0000 00", r.Phone)
	assert.Empty(t, r.PhoneE164)
}

func TestParse_ExcessTruncated(t *testing.T) {
	body := "<p>" + strings.Repeat("é", MaxExcessRunes+500) + "</p>"
	r := Parse(body, "SG")
	assert.Equal(t, MaxExcessRunes, len([]rune(r.ExcessData)))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"acme.sg", "https://acme.sg"},
		{" www.acme.com.sg/about ", "https://www.acme.com.sg/about"},
		{"//acme.sg", "https://acme.sg"},
		{"http://acme.sg", "http://acme.sg"},
		{"HTTPS://acme.sg", "HTTPS://acme.sg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestExtractor_FetchFailureIsAllNull(t *testing.T) {
	f := &fakeFetcher{err: errors.New("dial tcp: no such host")}
	res, outcome := NewExtractor(f, "").Extract(context.Background(), "acme.sg")

	assert.True(t, res.IsZero())
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Equal(t, []string{"https://acme.sg"}, f.urls)
}

func TestExtractor_BlankWebsite(t *testing.T) {
	f := &fakeFetcher{}
	res, outcome := NewExtractor(f, "SG").Extract(context.Background(), " ")
	assert.True(t, res.IsZero())
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	assert.Empty(t, f.urls)
}

func TestExtractor_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(acmePage))
	}))
	defer srv.Close()

	hf := fetcher.NewHTTPFetcher(fetcher.Options{Timeout: time.Second})
	defer hf.Close()
	ex := NewExtractor(hf, "SG")

	res, outcome := ex.Extract(context.Background(), srv.URL)
	assert.Equal(t, model.OutcomeFound, outcome.Status)
	assert.Equal(t, "sales@acme.com.sg", res.Email)

	res, outcome = ex.Extract(context.Background(), srv.URL+"/gone")
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	assert.True(t, res.IsZero())
}

func TestStage_Done(t *testing.T) {
	s := NewStage(NewExtractor(&fakeFetcher{}, "SG"))

	assert.True(t, s.Done(&model.CompanyRecord{EntityName: "Acme"}))
	assert.True(t, s.Done(&model.CompanyRecord{Website: "acme.sg", ExtractionStatus: model.ExtractionUnreachable}))
	assert.False(t, s.Done(&model.CompanyRecord{Website: "acme.sg"}))
}

func TestStage_Process(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://acme.sg": acmePage}}
	s := NewStage(NewExtractor(f, "SG"))

	rec := model.CompanyRecord{EntityName: "Acme", Website: "acme.sg"}
	outcome, err := s.Process(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFound, outcome.Status)
	assert.Equal(t, model.ExtractionOK, rec.ExtractionStatus)
	assert.Equal(t, "sales@acme.com.sg", rec.ContactEmail)
	assert.Equal(t, "+6581234567", rec.ContactPhoneE164)
	assert.Equal(t, "https://www.facebook.com/acmesg", rec.Facebook)
	assert.NotEmpty(t, rec.ExcessData)

	gone := model.CompanyRecord{EntityName: "Orchid", Website: "orchid.sg", ContactEmail: "stale@orchid.sg"}
	outcome, err = s.Process(context.Background(), &gone)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	assert.Equal(t, model.ExtractionUnreachable, gone.ExtractionStatus)
	assert.Empty(t, gone.ContactEmail)
	assert.Empty(t, gone.ExcessData)
}

func TestStage_ProcessCancelled(t *testing.T) {
	s := NewStage(NewExtractor(&fakeFetcher{err: context.Canceled}, "SG"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := model.CompanyRecord{Website: "acme.sg"}
	_, err := s.Process(ctx, &rec)
	require.Error(t, err)
	assert.Empty(t, rec.ExtractionStatus)
}
