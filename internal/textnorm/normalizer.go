// Package textnorm canonicalises free-text user messages.
//
// Two strictness levels are provided. MatchingKey is the light form used for
// intent detection and as the persisted knowledge-base key. FeatureText is the
// heavier form with stopwords removed, suitable for similarity features.
package textnorm

import (
	"strings"
	"unicode"
)

// Stopwords is the closed set removed by FeatureText.
var Stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
	"from": {}, "by": {}, "as": {}, "or": {}, "and": {},
}

// MatchingKey lowercases raw, drops every character outside [a-z0-9] and
// whitespace, and collapses whitespace runs to a single space.
//
//	MatchingKey("  What is Python???") == "what is python"
func MatchingKey(raw string) string {
	return normalize(raw, false)
}

// FeatureText lowercases raw, turns every character outside [a-z0-9] into a
// separator and removes stopwords.
//
//	FeatureText("What's the best-way?") == "what s best way"
func FeatureText(raw string) string {
	words := strings.Fields(normalize(raw, true))
	kept := words[:0]
	for _, w := range words {
		if _, stop := Stopwords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Tokens splits already normalized text into terms.
func Tokens(text string) []string {
	return strings.Fields(text)
}

// IsBlank reports whether raw carries no visible characters.
func IsBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

func normalize(raw string, separate bool) string {
	if IsBlank(raw) {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false

	for _, r := range strings.ToLower(raw) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		default:
			if separate {
				pendingSpace = true
			}
		}
	}

	return b.String()
}
