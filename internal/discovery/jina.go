package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-enrich/pkg/jina"
)

// JinaSearcher searches through the Jina Search API.
type JinaSearcher struct {
	client  jina.Client
	site    string
	country string
}

// NewJinaSearcher creates a JinaSearcher. site and country are passed to
// every query; either may be empty.
func NewJinaSearcher(client jina.Client, site, country string) *JinaSearcher {
	return &JinaSearcher{client: client, site: site, country: country}
}

// Open returns a session over the shared client. The API is stateless so
// sessions hold nothing of their own.
func (s *JinaSearcher) Open(_ context.Context) (Session, error) {
	if s.client == nil {
		return nil, eris.New("discovery: jina client is nil")
	}
	return &jinaSession{searcher: s}, nil
}

type jinaSession struct {
	searcher *JinaSearcher
}

func (j *jinaSession) Search(ctx context.Context, query string) ([]string, error) {
	var opts []jina.SearchOption
	if j.searcher.site != "" {
		opts = append(opts, jina.WithSite(strings.TrimPrefix(j.searcher.site, ".")))
	}
	if j.searcher.country != "" {
		opts = append(opts, jina.WithCountry(j.searcher.country))
	}

	resp, err := j.searcher.client.Search(ctx, query, opts...)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		if u := strings.TrimSpace(r.URL); u != "" {
			links = append(links, u)
		}
	}
	return links, nil
}

func (j *jinaSession) Close() error { return nil }
