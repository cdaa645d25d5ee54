package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/fetcher"
	"github.com/sells-group/company-enrich/internal/model"
)

// Extractor fetches a company website and parses it.
type Extractor struct {
	fetcher fetcher.Fetcher
	region  string
}

// NewExtractor creates an Extractor. region is the phone-number region
// used for E.164 normalization, e.g. "SG".
func NewExtractor(f fetcher.Fetcher, region string) *Extractor {
	if region == "" {
		region = "SG"
	}
	return &Extractor{fetcher: f, region: strings.ToUpper(region)}
}

// Extract fetches website and returns the parsed page. A fetch failure is
// an expected outcome: the result is empty and the outcome Absent, with
// the cause attached for logging.
func (e *Extractor) Extract(ctx context.Context, website string) (Result, model.Outcome) {
	url := NormalizeURL(website)
	if url == "" {
		return Result{}, model.Absent()
	}

	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return Result{}, model.Outcome{
			Status: model.OutcomeAbsent,
			Err:    eris.Wrapf(err, "extract: fetch %s", url),
		}
	}

	return Parse(page.Body, e.region), model.Found()
}

// NormalizeURL trims website and prefixes https:// when no scheme is given.
func NormalizeURL(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	lower := strings.ToLower(website)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return website
	}
	return "https://" + strings.TrimPrefix(website, "//")
}

// Stage is the extraction step of the pipeline.
type Stage struct {
	extractor *Extractor
	log       *zap.Logger
}

// NewStage creates the extraction stage.
func NewStage(extractor *Extractor) *Stage {
	return &Stage{
		extractor: extractor,
		log:       zap.L().With(zap.String("stage", "extract")),
	}
}

// Name implements runner.Step.
func (s *Stage) Name() string { return "extract" }

// Done reports whether rec needs no extraction: it has no website or has
// already been extracted.
func (s *Stage) Done(rec *model.CompanyRecord) bool {
	return strings.TrimSpace(rec.Website) == "" || rec.ExtractionStatus != ""
}

// Process extracts rec's website and writes every extracted field back,
// clearing fields the page no longer yields.
func (s *Stage) Process(ctx context.Context, rec *model.CompanyRecord) (model.Outcome, error) {
	s.log.Info("scraping website",
		zap.String("entity_name", rec.EntityName),
		zap.String("website", rec.Website),
	)

	res, outcome := s.extractor.Extract(ctx, rec.Website)
	if outcome.Err != nil {
		s.log.Warn("fetch failed", zap.String("website", rec.Website), zap.Error(outcome.Err))
	}
	if ctx.Err() != nil {
		return outcome, eris.Wrap(ctx.Err(), "extract: interrupted")
	}

	rec.ContactEmail = res.Email
	rec.ContactPhone = res.Phone
	rec.ContactPhoneE164 = res.PhoneE164
	rec.LinkedIn = res.LinkedIn
	rec.Facebook = res.Facebook
	rec.Instagram = res.Instagram
	rec.MetaDescription = res.MetaDescription
	rec.ExcessData = res.ExcessData

	if outcome.Status == model.OutcomeFound {
		rec.ExtractionStatus = model.ExtractionOK
	} else {
		rec.ExtractionStatus = model.ExtractionUnreachable
	}
	return outcome, nil
}
