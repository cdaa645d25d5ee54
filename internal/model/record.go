// Package model holds the record shape that flows between pipeline stages.
package model

import (
	"strconv"
	"strings"
)

// Stage status values written onto a CompanyRecord.
const (
	DiscoveryFound    = "found"
	DiscoveryNotFound = "not_found"
	DiscoveryError    = "error"

	ExtractionOK          = "ok"
	ExtractionUnreachable = "unreachable"

	EnrichmentOK       = "ok"
	EnrichmentUnparsed = "unparsed"
	EnrichmentError    = "error"
)

// CompanyRecord is one roster row as it moves through discovery, extraction
// and enrichment. Every field is textual; an empty string means absent.
type CompanyRecord struct {
	UEN               string `csv:"uen"`
	EntityName        string `csv:"entity_name"`
	HQCountry         string `csv:"hq_country"`
	Industry          string `csv:"industry"`
	CompanySize       string `csv:"company_size"`
	NumberOfEmployees string `csv:"number_of_employees"`
	IsItDelisted      string `csv:"is_it_delisted"`
	StockExchangeCode string `csv:"stock_exchange_code"`
	Revenue           string `csv:"revenue"`
	FoundingYear      string `csv:"founding_year"`

	Website         string `csv:"website"`
	DiscoveryStatus string `csv:"discovery_status"`

	ContactEmail     string `csv:"contact_email"`
	ContactPhone     string `csv:"contact_phone"`
	ContactPhoneE164 string `csv:"contact_phone_e164"`
	LinkedIn         string `csv:"linkedin"`
	Facebook         string `csv:"facebook"`
	Instagram        string `csv:"instagram"`
	MetaDescription  string `csv:"meta_description"`
	ExcessData       string `csv:"excess_data"`
	ExtractionStatus string `csv:"extraction_status"`

	Keywords           string `csv:"keywords"`
	NormalizedIndustry string `csv:"normalized_industry"`
	ProductsOffered    string `csv:"products_offered"`
	ServicesOffered    string `csv:"services_offered"`
	EnrichmentStatus   string `csv:"enrichment_status"`

	// Extra holds roster columns not declared above, in header order.
	Extra []Column `csv:"-"`
}

// Column is a named cell from a roster column CompanyRecord does not declare.
type Column struct {
	Name  string
	Value string
}

// ExtraColumns returns the undeclared columns as parallel name and value slices.
func (r *CompanyRecord) ExtraColumns() (names, values []string) {
	for _, c := range r.Extra {
		names = append(names, c.Name)
		values = append(values, c.Value)
	}
	return names, values
}

// SetExtraColumns replaces the undeclared columns.
func (r *CompanyRecord) SetExtraColumns(names, values []string) {
	r.Extra = nil
	for i, name := range names {
		r.Extra = append(r.Extra, Column{Name: name, Value: values[i]})
	}
}

// HasName reports whether the record carries the required entity name.
func (r *CompanyRecord) HasName() bool {
	return strings.TrimSpace(r.EntityName) != ""
}

// KeywordList splits the comma-joined keywords column into trimmed,
// non-empty tokens in their original order.
func (r *CompanyRecord) KeywordList() []string {
	var out []string
	for _, kw := range strings.Split(r.Keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ParseInt parses a roster integer tolerantly. Spreadsheet exports often
// write integers as floats ("12.0"); those are accepted when integral.
func ParseInt(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// ParseFloat parses a roster decimal, ignoring thousands separators.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool parses the delisting flag as written by common exports.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return true, true
	case "false", "f", "no", "n", "0", "0.0":
		return false, true
	default:
		return false, false
	}
}
