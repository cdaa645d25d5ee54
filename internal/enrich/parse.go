package enrich

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Result holds the fields the model returned. Empty strings are absent;
// list values are joined with ", ".
type Result struct {
	Keywords           string
	NormalizedIndustry string
	CompanySize        string
	ProductsOffered    string
	ServicesOffered    string
}

// IsZero reports whether the model returned nothing usable.
func (r Result) IsZero() bool {
	return r == Result{}
}

// ParseReply extracts the JSON object from a free-form model reply. The
// object is taken to span the first '{' to the last '}'. It reports false,
// with an empty Result, when no such object decodes.
func ParseReply(reply string) (Result, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return Result{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &fields); err != nil {
		return Result{}, false
	}

	return Result{
		Keywords:           flexibleValue(fields["keywords"]),
		NormalizedIndustry: flexibleValue(fields["normalized_industry"]),
		CompanySize:        flexibleValue(fields["company_size"]),
		ProductsOffered:    flexibleValue(fields["products_offered"]),
		ServicesOffered:    flexibleValue(fields["services_offered"]),
	}, true
}

// flexibleValue renders a JSON value as text. Models return lists, numbers
// and booleans where strings were asked for; all are accepted. Falsy
// values (null, "", 0, false, [], objects) come back as "".
func flexibleValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == 0 {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if !b {
			return ""
		}
		return strconv.FormatBool(b)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if v := flexibleValue(item); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	}

	return ""
}
