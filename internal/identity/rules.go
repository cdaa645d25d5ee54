package identity

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the optional on-disk override for the matcher.
type Rules struct {
	Jurisdiction string `yaml:"jurisdiction"`
	// Blacklist replaces DefaultBlacklist when non-empty.
	Blacklist []string `yaml:"blacklist"`
	// ExtraBlacklist is appended to whichever blacklist is in effect.
	ExtraBlacklist []string `yaml:"extra_blacklist"`
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "identity: read rules %s", path)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "identity: parse rules %s", path)
	}
	return &r, nil
}

// Matcher builds a Matcher from the rules, using fallback values for
// anything the file leaves unset.
func (r *Rules) Matcher(fallbackJurisdiction string, fallbackBlacklist []string) *Matcher {
	jurisdiction := fallbackJurisdiction
	blacklist := fallbackBlacklist
	if r != nil {
		if r.Jurisdiction != "" {
			jurisdiction = r.Jurisdiction
		}
		if len(r.Blacklist) > 0 {
			blacklist = r.Blacklist
		}
		if len(r.ExtraBlacklist) > 0 {
			if blacklist == nil {
				blacklist = DefaultBlacklist
			}
			merged := make([]string, 0, len(blacklist)+len(r.ExtraBlacklist))
			merged = append(merged, blacklist...)
			blacklist = append(merged, r.ExtraBlacklist...)
		}
	}
	return NewMatcher(jurisdiction, blacklist)
}
