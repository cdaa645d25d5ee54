package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/company"
	"github.com/sells-group/company-enrich/internal/config"
	"github.com/sells-group/company-enrich/internal/db"
	"github.com/sells-group/company-enrich/internal/discovery"
	"github.com/sells-group/company-enrich/internal/enrich"
	"github.com/sells-group/company-enrich/internal/extract"
	"github.com/sells-group/company-enrich/internal/fetcher"
	"github.com/sells-group/company-enrich/internal/identity"
	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/recordio"
	"github.com/sells-group/company-enrich/internal/runner"
	anthropicpkg "github.com/sells-group/company-enrich/pkg/anthropic"
	"github.com/sells-group/company-enrich/pkg/jina"
)

// carryFunc copies the columns a stage owns from its previous output row
// onto the fresh input row.
type carryFunc func(rec, prev *model.CompanyRecord)

// readStageRecords loads the records a stage works on. The input file is
// the source of truth; unless fresh is set, rows in the stage's own output
// contribute the columns carry copies, matched by row key, so a rerun
// resumes without hiding newer upstream results.
func readStageRecords(input, output string, fresh bool, carry carryFunc) ([]model.CompanyRecord, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, eris.Wrapf(err, "input file %s", input)
	}

	records, err := recordio.ReadFile[model.CompanyRecord](input)
	if err != nil {
		return nil, err
	}

	carried := 0
	if !fresh && output != "" && carry != nil {
		if _, err := os.Stat(output); err == nil {
			prev, err := recordio.ReadFile[model.CompanyRecord](output)
			if err != nil {
				return nil, err
			}
			carried = carryOver(records, prev, carry)
		}
	}

	zap.L().Info("records loaded",
		zap.String("path", input),
		zap.Int("records", len(records)),
		zap.Int("resumed", carried),
	)
	return records, nil
}

// carryOver applies carry to each record that has a row with the same key
// in prev. Duplicate keys pair up in file order.
func carryOver(records, prev []model.CompanyRecord, carry carryFunc) int {
	byKey := make(map[string][]int, len(prev))
	for i := range prev {
		k := prev[i].RowKey()
		byKey[k] = append(byKey[k], i)
	}

	n := 0
	for i := range records {
		k := records[i].RowKey()
		queue := byKey[k]
		if len(queue) == 0 {
			continue
		}
		byKey[k] = queue[1:]
		carry(&records[i], &prev[queue[0]])
		n++
	}
	return n
}

// runStage reads a stage's records, runs step over them and checkpoints
// to output.
func runStage(ctx context.Context, step runner.Step[model.CompanyRecord], carry carryFunc, input, output string, fresh bool, interval int) (runner.Stats, error) {
	records, err := readStageRecords(input, output, fresh, carry)
	if err != nil {
		return runner.Stats{}, err
	}
	sink := recordio.NewFileSink[model.CompanyRecord](output)
	return runner.Run(ctx, records, step, sink, runner.Options{Interval: interval})
}

func newMatcher(c *config.Config) (*identity.Matcher, error) {
	if c.Discovery.RulesFile == "" {
		return identity.NewMatcher(c.Discovery.Jurisdiction, nil), nil
	}
	rules, err := identity.LoadRules(c.Discovery.RulesFile)
	if err != nil {
		return nil, err
	}
	return rules.Matcher(c.Discovery.Jurisdiction, nil), nil
}

func newSearcher(c *config.Config) (discovery.Searcher, error) {
	switch c.Discovery.Backend {
	case "duckduckgo", "":
		return discovery.NewDuckDuckGoSearcher(c.Discovery.Timeout,
			discovery.WithRegion(c.Discovery.Region),
		), nil
	case "jina":
		var opts []jina.Option
		if c.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithBaseURL(c.Jina.SearchBaseURL))
		}
		client := jina.NewClient(c.Jina.Key, opts...)
		country := strings.ToUpper(strings.TrimPrefix(c.Discovery.Jurisdiction, "."))
		return discovery.NewJinaSearcher(client, c.Discovery.Jurisdiction, country), nil
	default:
		return nil, eris.Errorf("unsupported discovery backend: %s", c.Discovery.Backend)
	}
}

func newDiscoverStage(ctx context.Context, c *config.Config) (*discovery.Stage, error) {
	matcher, err := newMatcher(c)
	if err != nil {
		return nil, err
	}
	searcher, err := newSearcher(c)
	if err != nil {
		return nil, err
	}
	return discovery.NewStage(ctx, searcher, matcher,
		discovery.WithCountry(c.Discovery.Country),
		discovery.WithDelay(discovery.BoundedRandomDelay(c.Discovery.DelayMin, c.Discovery.DelayMax)),
	)
}

func newExtractStage(c *config.Config) (*extract.Stage, *fetcher.HTTPFetcher) {
	f := fetcher.NewHTTPFetcher(fetcher.Options{
		Timeout:           c.Extract.Timeout,
		UserAgent:         c.Extract.UserAgent,
		RequestsPerSecond: c.Extract.RequestsPerSecond,
	})
	return extract.NewStage(extract.NewExtractor(f, c.Extract.Region)), f
}

func newOracle(c *config.Config) (enrich.Oracle, error) {
	switch c.Enrich.Backend {
	case "chat", "":
		return enrich.NewChatOracle(enrich.ChatConfig{
			BaseURL:     c.Enrich.BaseURL,
			APIKey:      c.Enrich.APIKey,
			Model:       c.Enrich.Model,
			Temperature: c.Enrich.Temperature,
		}), nil
	case "anthropic":
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		return enrich.NewAnthropicOracle(client, c.Anthropic.Model, c.Anthropic.MaxTokens), nil
	case "command":
		if len(c.Enrich.Command) == 0 {
			return enrich.NewCommandOracle(""), nil
		}
		return enrich.NewCommandOracle(c.Enrich.Command[0], c.Enrich.Command[1:]...), nil
	default:
		return nil, eris.Errorf("unsupported enrich backend: %s", c.Enrich.Backend)
	}
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, c *config.Config) (company.Store, error) {
	var st company.Store
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "data/companies.db"
		}
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "create database dir %s", dir)
			}
		}
		s, err := company.NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		pool, err := db.Connect(ctx, c.Store.DatabaseURL, db.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		st = company.NewPostgresStore(pool, pool.Close)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func logStageStats(stats runner.Stats) {
	zap.L().Info("stage summary",
		zap.String("stage", stats.Stage),
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.Total),
		zap.Int("skipped", stats.Skipped),
		zap.Int("processed", stats.Processed),
		zap.Int("found", stats.Found),
		zap.Int("absent", stats.Absent),
		zap.Int("failed", stats.Failed),
	)
}
