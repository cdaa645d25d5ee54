package company

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Queries are written with $N placeholders; the SQLite store rebinds them.
const companyColumns = `company_id, uen, company_name, website, hq_country, industry,
	normalized_industry, company_size, number_of_employees, is_it_delisted,
	stock_exchange_code, revenue, founding_year, products_offered,
	services_offered, meta_description, created_at, updated_at`

const (
	qFindByUEN  = `SELECT ` + companyColumns + ` FROM companies WHERE uen = $1 LIMIT 1`
	qFindByName = `SELECT ` + companyColumns + ` FROM companies WHERE company_name = $1 ORDER BY company_id LIMIT 1`
	qGetCompany = `SELECT ` + companyColumns + ` FROM companies WHERE company_id = $1`
	qSearch     = `SELECT ` + companyColumns + ` FROM companies
		WHERE lower(company_name) LIKE '%' || lower($1) || '%'
		ORDER BY company_name, company_id LIMIT $2`

	qInsertCompany = `INSERT INTO companies (
		uen, company_name, website, hq_country, industry,
		normalized_industry, company_size, number_of_employees, is_it_delisted,
		stock_exchange_code, revenue, founding_year, products_offered,
		services_offered, meta_description, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, FALSE), $10, $11, $12, $13, $14, $15, $16, $16)
	RETURNING company_id`

	qMergeCompany = `UPDATE companies SET
		uen                 = COALESCE(uen, $2),
		website             = COALESCE($3, website),
		hq_country          = COALESCE($4, hq_country),
		industry            = COALESCE($5, industry),
		normalized_industry = COALESCE($6, normalized_industry),
		company_size        = COALESCE($7, company_size),
		number_of_employees = COALESCE($8, number_of_employees),
		is_it_delisted      = COALESCE($9, is_it_delisted),
		stock_exchange_code = COALESCE($10, stock_exchange_code),
		revenue             = COALESCE($11, revenue),
		founding_year       = COALESCE($12, founding_year),
		products_offered    = COALESCE($13, products_offered),
		services_offered    = COALESCE($14, services_offered),
		meta_description    = COALESCE($15, meta_description),
		updated_at          = $16
	WHERE company_id = $1`

	qInsertContact = `INSERT INTO company_contacts (company_id, contact_email, contact_phone, contact_phone_e164, source_of_data)
		VALUES ($1, $2, $3, $4, $5) RETURNING contact_id`
	qInsertSocial = `INSERT INTO company_socials (company_id, platform, url, source_of_data)
		VALUES ($1, $2, $3, $4) RETURNING social_id`
	qInsertKeyword = `INSERT INTO company_keywords (company_id, keyword, source_of_data)
		VALUES ($1, $2, $3) RETURNING keyword_id`

	qListContacts = `SELECT contact_id, company_id, contact_email, contact_phone, contact_phone_e164, source_of_data
		FROM company_contacts WHERE company_id = $1 ORDER BY contact_id`
	qListSocials = `SELECT social_id, company_id, platform, url, source_of_data
		FROM company_socials WHERE company_id = $1 ORDER BY social_id`
	qListKeywords = `SELECT keyword_id, company_id, keyword, source_of_data
		FROM company_keywords WHERE company_id = $1 ORDER BY keyword_id`
)

// row and rows are the scanning surface shared by pgx and database/sql.
type row interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// querier abstracts a pool or transaction of either driver.
type querier interface {
	exec(ctx context.Context, q string, args ...any) error
	queryRow(ctx context.Context, q string, args ...any) row
	query(ctx context.Context, q string, args ...any) (rows, error)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// nullable maps "" to NULL.
func nullable(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanCompany(r row) (*Company, error) {
	var (
		c                                            Company
		uen, website, country, industry, normalized *string
		size, exchange, products, services, meta     *string
	)
	err := r.Scan(
		&c.ID, &uen, &c.Name, &website, &country, &industry,
		&normalized, &size, &c.NumberOfEmployees, &c.IsDelisted,
		&exchange, &c.Revenue, &c.FoundingYear, &products,
		&services, &meta, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.UEN = deref(uen)
	c.Website = deref(website)
	c.HQCountry = deref(country)
	c.Industry = deref(industry)
	c.NormalizedIndustry = deref(normalized)
	c.CompanySize = deref(size)
	c.StockExchangeCode = deref(exchange)
	c.ProductsOffered = deref(products)
	c.ServicesOffered = deref(services)
	c.MetaDescription = deref(meta)
	return &c, nil
}

func findOne(ctx context.Context, q querier, query, arg string) (*Company, error) {
	c, err := scanCompany(q.queryRow(ctx, query, arg))
	if isNoRows(err) {
		return nil, nil
	}
	return c, err
}

func companyArgs(c *Company) []any {
	return []any{
		nullable(c.UEN), nullable(c.Website), nullable(c.HQCountry), nullable(c.Industry),
		nullable(c.NormalizedIndustry), nullable(c.CompanySize), c.NumberOfEmployees, c.IsDelisted,
		nullable(c.StockExchangeCode), c.Revenue, c.FoundingYear, nullable(c.ProductsOffered),
		nullable(c.ServicesOffered), nullable(c.MetaDescription),
	}
}

// txSession implements Session over any querier.
type txSession struct {
	q        querier
	commit   func(ctx context.Context) error
	rollback func(ctx context.Context) error
	now      func() time.Time
}

func (s *txSession) FindByUEN(ctx context.Context, uen string) (*Company, error) {
	c, err := findOne(ctx, s.q, qFindByUEN, uen)
	if err != nil {
		return nil, eris.Wrapf(err, "company: find by uen %s", uen)
	}
	return c, nil
}

func (s *txSession) FindByName(ctx context.Context, name string) (*Company, error) {
	c, err := findOne(ctx, s.q, qFindByName, name)
	if err != nil {
		return nil, eris.Wrapf(err, "company: find by name %q", name)
	}
	return c, nil
}

func (s *txSession) InsertCompany(ctx context.Context, c *Company) error {
	now := s.now()
	a := companyArgs(c)
	args := []any{a[0], c.Name}
	args = append(args, a[1:]...)
	args = append(args, now)

	if err := s.q.queryRow(ctx, qInsertCompany, args...).Scan(&c.ID); err != nil {
		return eris.Wrapf(err, "company: insert %q", c.Name)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (s *txSession) MergeCompany(ctx context.Context, id int64, c *Company) error {
	args := append([]any{id}, companyArgs(c)...)
	args = append(args, s.now())
	if err := s.q.exec(ctx, qMergeCompany, args...); err != nil {
		return eris.Wrapf(err, "company: merge %d", id)
	}
	return nil
}

func (s *txSession) InsertContact(ctx context.Context, c *Contact) error {
	err := s.q.queryRow(ctx, qInsertContact,
		c.CompanyID, nullable(c.Email), nullable(c.Phone), nullable(c.PhoneE164), c.Source,
	).Scan(&c.ID)
	if err != nil {
		return eris.Wrapf(err, "company: insert contact for %d", c.CompanyID)
	}
	return nil
}

func (s *txSession) InsertSocial(ctx context.Context, so *Social) error {
	err := s.q.queryRow(ctx, qInsertSocial, so.CompanyID, so.Platform, so.URL, so.Source).Scan(&so.ID)
	if err != nil {
		return eris.Wrapf(err, "company: insert social for %d", so.CompanyID)
	}
	return nil
}

func (s *txSession) InsertKeyword(ctx context.Context, k *Keyword) error {
	err := s.q.queryRow(ctx, qInsertKeyword, k.CompanyID, k.Keyword, k.Source).Scan(&k.ID)
	if err != nil {
		return eris.Wrapf(err, "company: insert keyword for %d", k.CompanyID)
	}
	return nil
}

func (s *txSession) Commit(ctx context.Context) error {
	if err := s.commit(ctx); err != nil {
		return eris.Wrap(err, "company: commit")
	}
	return nil
}

func (s *txSession) Rollback(ctx context.Context) error {
	if err := s.rollback(ctx); err != nil {
		return eris.Wrap(err, "company: rollback")
	}
	return nil
}

func getProfile(ctx context.Context, q querier, id int64) (*Profile, error) {
	c, err := scanCompany(q.queryRow(ctx, qGetCompany, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "company: get %d", id)
	}

	p := &Profile{Company: *c, Contacts: []Contact{}, Socials: []Social{}, Keywords: []Keyword{}}

	if err := scanAll(ctx, q, qListContacts, id, func(r rows) error {
		var ct Contact
		var email, phone, e164, src *string
		if err := r.Scan(&ct.ID, &ct.CompanyID, &email, &phone, &e164, &src); err != nil {
			return err
		}
		ct.Email, ct.Phone, ct.PhoneE164, ct.Source = deref(email), deref(phone), deref(e164), deref(src)
		p.Contacts = append(p.Contacts, ct)
		return nil
	}); err != nil {
		return nil, eris.Wrapf(err, "company: list contacts for %d", id)
	}

	if err := scanAll(ctx, q, qListSocials, id, func(r rows) error {
		var so Social
		var platform, url, src *string
		if err := r.Scan(&so.ID, &so.CompanyID, &platform, &url, &src); err != nil {
			return err
		}
		so.Platform, so.URL, so.Source = deref(platform), deref(url), deref(src)
		p.Socials = append(p.Socials, so)
		return nil
	}); err != nil {
		return nil, eris.Wrapf(err, "company: list socials for %d", id)
	}

	if err := scanAll(ctx, q, qListKeywords, id, func(r rows) error {
		var k Keyword
		var kw, src *string
		if err := r.Scan(&k.ID, &k.CompanyID, &kw, &src); err != nil {
			return err
		}
		k.Keyword, k.Source = deref(kw), deref(src)
		p.Keywords = append(p.Keywords, k)
		return nil
	}); err != nil {
		return nil, eris.Wrapf(err, "company: list keywords for %d", id)
	}

	return p, nil
}

func searchCompanies(ctx context.Context, q querier, name string, limit int) ([]Company, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []Company{}
	err := scanAll(ctx, q, qSearch, strings.TrimSpace(name), func(r rows) error {
		c, err := scanCompany(r)
		if err != nil {
			return err
		}
		out = append(out, *c)
		return nil
	}, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "company: search %q", name)
	}
	return out, nil
}

func scanAll(ctx context.Context, q querier, query string, arg any, fn func(rows) error, more ...any) error {
	rs, err := q.query(ctx, query, append([]any{arg}, more...)...)
	if err != nil {
		return err
	}
	defer rs.Close()
	for rs.Next() {
		if err := fn(rs); err != nil {
			return err
		}
	}
	return rs.Err()
}
