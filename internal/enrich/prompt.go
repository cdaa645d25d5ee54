// Package enrich asks a language model to classify a company from the
// free text scraped off its website.
package enrich

import (
	"strings"
)

// MaxPromptRunes caps how much scraped text is sent to the model.
const MaxPromptRunes = 2000

const promptTemplate = `You are an assistant that extracts structured company info.

From the following text, extract:
- keywords (5-10, relevant search terms)
- normalized_industry (broad category, e.g., Finance, IT, Healthcare)
- company_size (Small, Medium, Large based on employees/revenue hints)
- products_offered (comma-separated list)
- services_offered (comma-separated list)

Respond ONLY in JSON with keys:
["keywords", "normalized_industry", "company_size", "products_offered", "services_offered"]

Text:
`

// BuildPrompt renders the enrichment prompt for a page's excess text.
func BuildPrompt(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > MaxPromptRunes {
		text = string(runes[:MaxPromptRunes])
	}
	return promptTemplate + text + "\n"
}
