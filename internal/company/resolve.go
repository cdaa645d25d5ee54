package company

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/model"
)

// FromRecord maps a pipeline record onto a Company. Numeric and boolean
// columns that do not parse are left NULL.
func FromRecord(rec *model.CompanyRecord) *Company {
	c := &Company{
		UEN:                strings.TrimSpace(rec.UEN),
		Name:               strings.TrimSpace(rec.EntityName),
		Website:            strings.TrimSpace(rec.Website),
		HQCountry:          rec.HQCountry,
		Industry:           rec.Industry,
		NormalizedIndustry: rec.NormalizedIndustry,
		CompanySize:        rec.CompanySize,
		StockExchangeCode:  rec.StockExchangeCode,
		ProductsOffered:    rec.ProductsOffered,
		ServicesOffered:    rec.ServicesOffered,
		MetaDescription:    rec.MetaDescription,
	}
	if n, ok := model.ParseInt(rec.NumberOfEmployees); ok {
		c.NumberOfEmployees = &n
	}
	if y, ok := model.ParseInt(rec.FoundingYear); ok {
		c.FoundingYear = &y
	}
	if v, ok := model.ParseFloat(rec.Revenue); ok {
		c.Revenue = &v
	}
	if b, ok := model.ParseBool(rec.IsItDelisted); ok {
		c.IsDelisted = &b
	}
	return c
}

// Resolver maps a business key to exactly one company row.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve finds c by UEN when it has one, then by exact name. A match is
// merged with c's non-empty fields; otherwise c is inserted. It returns
// the company ID and whether a row was created.
func (r *Resolver) Resolve(ctx context.Context, sess Session, c *Company) (int64, bool, error) {
	var existing *Company
	var err error

	if c.UEN != "" {
		existing, err = sess.FindByUEN(ctx, c.UEN)
		if err != nil {
			return 0, false, err
		}
	}
	if existing == nil {
		existing, err = sess.FindByName(ctx, c.Name)
		if err != nil {
			return 0, false, err
		}
	}

	if existing != nil {
		zap.L().Debug("resolve: matched existing company",
			zap.Int64("company_id", existing.ID),
			zap.String("company_name", c.Name),
		)
		if err := sess.MergeCompany(ctx, existing.ID, c); err != nil {
			return 0, false, err
		}
		return existing.ID, false, nil
	}

	if err := sess.InsertCompany(ctx, c); err != nil {
		return 0, false, err
	}
	return c.ID, true, nil
}
