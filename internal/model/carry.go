package model

import "strings"

// CarryDiscovery copies the discovery result in prev onto r. A website the
// roster itself supplies wins unless prev was discovered from the same one.
func (r *CompanyRecord) CarryDiscovery(prev *CompanyRecord) {
	if strings.TrimSpace(r.Website) != "" && r.Website != prev.Website {
		return
	}
	r.Website = prev.Website
	r.DiscoveryStatus = prev.DiscoveryStatus
}

// CarryExtraction copies the extraction result in prev onto r when prev was
// extracted from the website r now carries. Otherwise r is left as is and
// gets extracted again.
func (r *CompanyRecord) CarryExtraction(prev *CompanyRecord) {
	if prev.ExtractionStatus == "" || r.Website != prev.Website {
		return
	}
	r.ContactEmail = prev.ContactEmail
	r.ContactPhone = prev.ContactPhone
	r.ContactPhoneE164 = prev.ContactPhoneE164
	r.LinkedIn = prev.LinkedIn
	r.Facebook = prev.Facebook
	r.Instagram = prev.Instagram
	r.MetaDescription = prev.MetaDescription
	r.ExcessData = prev.ExcessData
	r.ExtractionStatus = prev.ExtractionStatus
}

// CarryEnrichment copies the enrichment result in prev onto r when prev was
// enriched from the page text r now carries.
func (r *CompanyRecord) CarryEnrichment(prev *CompanyRecord) {
	if prev.EnrichmentStatus == "" || r.ExcessData != prev.ExcessData {
		return
	}
	r.Keywords = prev.Keywords
	r.NormalizedIndustry = prev.NormalizedIndustry
	if prev.CompanySize != "" {
		r.CompanySize = prev.CompanySize
	}
	r.ProductsOffered = prev.ProductsOffered
	r.ServicesOffered = prev.ServicesOffered
	r.EnrichmentStatus = prev.EnrichmentStatus
}

// RowKey identifies a record across stage files: the UEN when present,
// otherwise the trimmed, lower-cased entity name.
func (r *CompanyRecord) RowKey() string {
	if uen := strings.TrimSpace(r.UEN); uen != "" {
		return "uen:" + strings.ToUpper(uen)
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.EntityName))
}
