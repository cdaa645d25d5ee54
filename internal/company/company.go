// Package company persists enriched companies and their contact, social
// and keyword facts.
package company

import (
	"time"
)

// Provenance tags recorded on child facts.
const (
	SourceCSVImport = "csv_import"
	SourceScraper   = "scraper"
	SourceLLM       = "LLM"
)

// Company is one row of the companies table. Empty strings and nil
// pointers are stored as NULL.
type Company struct {
	ID                 int64     `json:"company_id"`
	UEN                string    `json:"uen,omitempty"`
	Name               string    `json:"company_name"`
	Website            string    `json:"website,omitempty"`
	HQCountry          string    `json:"hq_country,omitempty"`
	Industry           string    `json:"industry,omitempty"`
	NormalizedIndustry string    `json:"normalized_industry,omitempty"`
	CompanySize        string    `json:"company_size,omitempty"`
	NumberOfEmployees  *int64    `json:"number_of_employees,omitempty"`
	IsDelisted         *bool     `json:"is_it_delisted,omitempty"`
	StockExchangeCode  string    `json:"stock_exchange_code,omitempty"`
	Revenue            *float64  `json:"revenue,omitempty"`
	FoundingYear       *int64    `json:"founding_year,omitempty"`
	ProductsOffered    string    `json:"products_offered,omitempty"`
	ServicesOffered    string    `json:"services_offered,omitempty"`
	MetaDescription    string    `json:"meta_description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Contact is a contact channel found for a company.
type Contact struct {
	ID        int64  `json:"contact_id"`
	CompanyID int64  `json:"company_id"`
	Email     string `json:"contact_email,omitempty"`
	Phone     string `json:"contact_phone,omitempty"`
	PhoneE164 string `json:"contact_phone_e164,omitempty"`
	Source    string `json:"source_of_data"`
}

// Social is a social profile URL for a company.
type Social struct {
	ID        int64  `json:"social_id"`
	CompanyID int64  `json:"company_id"`
	Platform  string `json:"platform"`
	URL       string `json:"url"`
	Source    string `json:"source_of_data"`
}

// Keyword is a descriptive keyword for a company.
type Keyword struct {
	ID        int64  `json:"keyword_id"`
	CompanyID int64  `json:"company_id"`
	Keyword   string `json:"keyword"`
	Source    string `json:"source_of_data"`
}

// Profile is a company with all of its child facts.
type Profile struct {
	Company
	Contacts []Contact `json:"contacts"`
	Socials  []Social  `json:"socials"`
	Keywords []Keyword `json:"keywords"`
}
