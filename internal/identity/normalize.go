// Package identity canonicalizes company names and decides whether a
// candidate URL plausibly belongs to a company.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen is the length a token must exceed to be used for matching.
const minTokenLen = 2

// suffixPattern matches legal-entity suffixes and conjunctions. Longer
// alternatives come first so "pte ltd" is removed whole rather than as "ltd".
var suffixPattern = regexp.MustCompile(`(?i)\b(pte\.?\s+ltd|pty\.?\s+ltd|private\s+limited|company\s+limited|co\.?\s+ltd|ltd|and)\b`)

var folder = cases.Fold()

// Name is a normalized company name.
type Name struct {
	Clean  string
	Tokens []string
}

// Normalize strips legal suffixes and conjunctions from raw, lowercases it
// and splits it into tokens. Only tokens longer than two characters are
// returned in Tokens.
func Normalize(raw string) Name {
	s := folder.String(norm.NFC.String(raw))
	s = strings.ReplaceAll(s, "&", " ")

	// Removing one suffix can expose another ("co and ltd" -> "co ltd"), and
	// trimming punctuation can expose one the word boundary hid ("_ltd").
	for {
		next := trimWords(suffixPattern.ReplaceAllString(s, " "))
		if next == s {
			break
		}
		s = next
	}

	var tokens []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > minTokenLen {
			tokens = append(tokens, w)
		}
	}

	return Name{
		Clean:  s,
		Tokens: tokens,
	}
}

// trimWords strips leading and trailing non-alphanumerics from every word
// and joins the non-empty results with single spaces.
func trimWords(s string) string {
	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}
