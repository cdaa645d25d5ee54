package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/identity"
	"github.com/sells-group/company-enrich/internal/model"
)

// DefaultCountry is appended to every query to bias results.
const DefaultCountry = "Singapore"

// Finder looks up one company's website through a search session.
type Finder struct {
	session Session
	matcher *identity.Matcher
	country string
	delay   Delay
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithCountry sets the country word added to queries.
func WithCountry(country string) FinderOption {
	return func(f *Finder) { f.country = country }
}

// WithDelay sets the wait applied after every query.
func WithDelay(d Delay) FinderOption {
	return func(f *Finder) { f.delay = d }
}

// NewFinder creates a Finder over an open session.
func NewFinder(session Session, matcher *identity.Matcher, opts ...FinderOption) *Finder {
	f := &Finder{
		session: session,
		matcher: matcher,
		country: DefaultCountry,
		delay:   NoDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Query builds the search query for a registered company name.
func (f *Finder) Query(entityName string) string {
	name := identity.Normalize(entityName)
	q := `"` + name.Clean + `"`
	if f.country != "" {
		q += " " + f.country
	}
	return q + " site:" + f.matcher.Jurisdiction()
}

// Find searches for entityName and returns the first result URL the
// matcher accepts. No match is an Absent outcome; a search error is Failed.
func (f *Finder) Find(ctx context.Context, entityName string) (string, model.Outcome) {
	if strings.TrimSpace(entityName) == "" {
		return "", model.Absent()
	}

	links, err := f.session.Search(ctx, f.Query(entityName))
	if delayErr := f.delay(ctx); delayErr != nil && err == nil {
		err = delayErr
	}
	if err != nil {
		return "", model.Failed(eris.Wrapf(err, "discovery: search %q", entityName))
	}

	seen := make(map[string]bool, len(links))
	for _, link := range links {
		if seen[link] {
			continue
		}
		seen[link] = true
		if f.matcher.Evaluate(link, entityName) {
			return link, model.Found()
		}
	}
	return "", model.Absent()
}

// Stage is the discovery step of the pipeline. It owns one search session
// for its whole lifetime; callers must Close it.
type Stage struct {
	session Session
	finder  *Finder
	log     *zap.Logger
}

// NewStage opens a search session and returns the stage around it.
func NewStage(ctx context.Context, searcher Searcher, matcher *identity.Matcher, opts ...FinderOption) (*Stage, error) {
	session, err := searcher.Open(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: open search session")
	}

	s := &Stage{
		session: session,
		finder:  NewFinder(session, matcher, opts...),
		log:     zap.L().With(zap.String("stage", "discover")),
	}

	if cd, ok := session.(ConsentDismisser); ok {
		if err := cd.DismissConsent(ctx); err != nil {
			s.log.Debug("consent dismissal failed", zap.Error(err))
		}
	}
	return s, nil
}

// Name implements runner.Step.
func (s *Stage) Name() string { return "discover" }

// Done reports whether rec needs no lookup. Records whose previous lookup
// errored are retried.
func (s *Stage) Done(rec *model.CompanyRecord) bool {
	if !rec.HasName() || strings.TrimSpace(rec.Website) != "" {
		return true
	}
	return rec.DiscoveryStatus == model.DiscoveryFound || rec.DiscoveryStatus == model.DiscoveryNotFound
}

// Process looks up rec's website and records the outcome.
func (s *Stage) Process(ctx context.Context, rec *model.CompanyRecord) (model.Outcome, error) {
	s.log.Info("searching", zap.String("entity_name", rec.EntityName))

	website, outcome := s.finder.Find(ctx, rec.EntityName)
	if ctx.Err() != nil {
		return outcome, eris.Wrap(ctx.Err(), "discovery: interrupted")
	}

	rec.Website = website
	switch outcome.Status {
	case model.OutcomeFound:
		rec.DiscoveryStatus = model.DiscoveryFound
		s.log.Info("website found", zap.String("entity_name", rec.EntityName), zap.String("website", website))
	case model.OutcomeFailed:
		rec.DiscoveryStatus = model.DiscoveryError
		s.log.Warn("search failed", zap.String("entity_name", rec.EntityName), zap.Error(outcome.Err))
	default:
		rec.DiscoveryStatus = model.DiscoveryNotFound
	}
	return outcome, nil
}

// Close releases the search session.
func (s *Stage) Close() error {
	if err := s.session.Close(); err != nil {
		return eris.Wrap(err, "discovery: close search session")
	}
	return nil
}
