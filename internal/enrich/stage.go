package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/model"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 60 * time.Second

// Stage is the enrichment step of the pipeline.
type Stage struct {
	oracle  Oracle
	timeout time.Duration
	log     *zap.Logger
}

// NewStage creates the enrichment stage. A non-positive timeout uses
// DefaultTimeout.
func NewStage(oracle Oracle, timeout time.Duration) *Stage {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Stage{
		oracle:  oracle,
		timeout: timeout,
		log:     zap.L().With(zap.String("stage", "enrich")),
	}
}

// Name implements runner.Step.
func (s *Stage) Name() string { return "enrich" }

// Done reports whether rec needs no enrichment: there is no scraped text,
// or a previous run got a reply. Oracle errors are retried.
func (s *Stage) Done(rec *model.CompanyRecord) bool {
	if strings.TrimSpace(rec.ExcessData) == "" {
		return true
	}
	return rec.EnrichmentStatus == model.EnrichmentOK || rec.EnrichmentStatus == model.EnrichmentUnparsed
}

// Process queries the oracle for rec and writes back every field it
// returned. Fields the reply leaves out keep their current value.
func (s *Stage) Process(ctx context.Context, rec *model.CompanyRecord) (model.Outcome, error) {
	s.log.Info("enriching", zap.String("entity_name", rec.EntityName))

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	reply, err := s.oracle.Complete(callCtx, BuildPrompt(rec.ExcessData))
	cancel()

	if ctx.Err() != nil {
		return model.Outcome{}, eris.Wrap(ctx.Err(), "enrich: interrupted")
	}
	if err != nil {
		s.log.Warn("oracle failed", zap.String("entity_name", rec.EntityName), zap.Error(err))
		rec.EnrichmentStatus = model.EnrichmentError
		return model.Failed(err), nil
	}

	res, ok := ParseReply(reply)
	if !ok {
		s.log.Warn("unparseable reply", zap.String("entity_name", rec.EntityName), zap.Int("reply_len", len(reply)))
		rec.EnrichmentStatus = model.EnrichmentUnparsed
		return model.Absent(), nil
	}

	apply(rec, res)
	rec.EnrichmentStatus = model.EnrichmentOK
	if res.IsZero() {
		return model.Absent(), nil
	}
	return model.Found(), nil
}

func apply(rec *model.CompanyRecord, res Result) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&rec.Keywords, res.Keywords)
	set(&rec.NormalizedIndustry, res.NormalizedIndustry)
	set(&rec.CompanySize, res.CompanySize)
	set(&rec.ProductsOffered, res.ProductsOffered)
	set(&rec.ServicesOffered, res.ServicesOffered)
}
