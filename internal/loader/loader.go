// Package loader upserts pipeline records into the company store.
package loader

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/company"
	"github.com/sells-group/company-enrich/internal/model"
)

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 50

// Stats counts what a load did.
type Stats struct {
	RunID     string
	Total     int
	Skipped   int
	Loaded    int
	Created   int
	Contacts  int
	Socials   int
	Keywords  int
	Committed int
}

// Loader writes records to a company.Store in batches.
type Loader struct {
	store     company.Store
	resolver  *company.Resolver
	batchSize int
}

// New creates a Loader. A non-positive batchSize uses DefaultBatchSize.
func New(store company.Store, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		store:     store,
		resolver:  company.NewResolver(),
		batchSize: batchSize,
	}
}

// Load resolves each named record to one company and appends its contact,
// social and keyword facts. Records without an entity name are skipped.
// Each batch is its own transaction: a store error rolls the current batch
// back and stops the load, leaving earlier batches committed.
func (l *Loader) Load(ctx context.Context, records []model.CompanyRecord) (stats Stats, err error) {
	stats = Stats{RunID: uuid.NewString(), Total: len(records)}
	log := zap.L().With(zap.String("stage", "load"), zap.String("run_id", stats.RunID))
	log.Info("load started", zap.Int("records", stats.Total), zap.Int("batch_size", l.batchSize))

	var sess company.Session
	defer func() {
		if sess != nil {
			if rbErr := sess.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				log.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	pending := 0
	for i := range records {
		rec := &records[i]
		if !rec.HasName() {
			stats.Skipped++
			continue
		}
		if ctx.Err() != nil {
			return stats, eris.Wrap(ctx.Err(), "loader: interrupted")
		}

		if sess == nil {
			if sess, err = l.store.Begin(ctx); err != nil {
				return stats, eris.Wrap(err, "loader: begin batch")
			}
		}

		if err := l.loadOne(ctx, sess, rec, &stats); err != nil {
			return stats, eris.Wrapf(err, "loader: record %d (%s)", i, rec.EntityName)
		}
		stats.Loaded++
		pending++

		if pending == l.batchSize {
			if err := l.commit(ctx, &sess); err != nil {
				return stats, err
			}
			stats.Committed += pending
			pending = 0
			log.Info("batch committed", zap.Int("committed", stats.Committed))
		}
	}

	if sess != nil {
		if err := l.commit(ctx, &sess); err != nil {
			return stats, err
		}
		stats.Committed += pending
	}

	log.Info("load finished",
		zap.Int("loaded", stats.Loaded),
		zap.Int("created", stats.Created),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// commit commits *sess and clears it so the deferred rollback is a no-op.
func (l *Loader) commit(ctx context.Context, sess *company.Session) error {
	s := *sess
	*sess = nil
	if err := s.Commit(ctx); err != nil {
		return eris.Wrap(err, "loader: commit batch")
	}
	return nil
}

func (l *Loader) loadOne(ctx context.Context, sess company.Session, rec *model.CompanyRecord, stats *Stats) error {
	id, created, err := l.resolver.Resolve(ctx, sess, company.FromRecord(rec))
	if err != nil {
		return err
	}
	if created {
		stats.Created++
	}

	for _, c := range Contacts(id, rec) {
		if err := sess.InsertContact(ctx, &c); err != nil {
			return err
		}
		stats.Contacts++
	}
	for _, s := range Socials(id, rec) {
		if err := sess.InsertSocial(ctx, &s); err != nil {
			return err
		}
		stats.Socials++
	}
	for _, k := range Keywords(id, rec) {
		if err := sess.InsertKeyword(ctx, &k); err != nil {
			return err
		}
		stats.Keywords++
	}
	return nil
}

// Contacts returns the contact row for rec, if it has an email or phone.
// Contacts found by the scraper are tagged as such; otherwise they came
// with the roster.
func Contacts(companyID int64, rec *model.CompanyRecord) []company.Contact {
	email := strings.TrimSpace(rec.ContactEmail)
	phone := strings.TrimSpace(rec.ContactPhone)
	if email == "" && phone == "" {
		return nil
	}
	source := company.SourceCSVImport
	if rec.ExtractionStatus != "" {
		source = company.SourceScraper
	}
	return []company.Contact{{
		CompanyID: companyID,
		Email:     email,
		Phone:     phone,
		PhoneE164: strings.TrimSpace(rec.ContactPhoneE164),
		Source:    source,
	}}
}

// Socials returns one row per non-blank social URL on rec.
func Socials(companyID int64, rec *model.CompanyRecord) []company.Social {
	var out []company.Social
	for _, p := range []struct {
		platform string
		url      string
	}{
		{"Linkedin", rec.LinkedIn},
		{"Facebook", rec.Facebook},
		{"Instagram", rec.Instagram},
	} {
		if u := strings.TrimSpace(p.url); u != "" {
			out = append(out, company.Social{
				CompanyID: companyID,
				Platform:  p.platform,
				URL:       u,
				Source:    company.SourceScraper,
			})
		}
	}
	return out
}

// Keywords returns one row per keyword on rec.
func Keywords(companyID int64, rec *model.CompanyRecord) []company.Keyword {
	list := rec.KeywordList()
	out := make([]company.Keyword, 0, len(list))
	for _, kw := range list {
		out = append(out, company.Keyword{CompanyID: companyID, Keyword: kw, Source: company.SourceLLM})
	}
	return out
}
