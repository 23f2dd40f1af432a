// Package intent classifies chat messages into a small conversational
// taxonomy and detects explicit code-generation requests.
package intent

import (
	"strings"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

// Label is a conversational intent.
type Label string

const (
	Greeting Label = "greeting"
	Farewell Label = "farewell"
	Thanks   Label = "thanks"
	Identity Label = "identity"
	Help     Label = "help"
	Unknown  Label = "unknown"
)

// Classifier matches whole-word phrases against an ordered rule table.
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	label   Label
	phrases [][]string
}

// NewClassifier builds a classifier over rules. A nil slice selects DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}

	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{label: r.Label}
		for _, p := range r.Phrases {
			if words := textnorm.Tokens(textnorm.MatchingKey(p)); len(words) > 0 {
				cr.phrases = append(cr.phrases, words)
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify returns the first intent whose phrase occurs in text on word
// boundaries, or Unknown.
func (c *Classifier) Classify(text string) Label {
	words := textnorm.Tokens(textnorm.MatchingKey(text))
	if len(words) == 0 {
		return Unknown
	}

	for _, r := range c.rules {
		for _, phrase := range r.phrases {
			if containsSequence(words, phrase) {
				return r.label
			}
		}
	}
	return Unknown
}

// containsSequence reports whether needle appears as a contiguous run in words.
func containsSequence(words, needle []string) bool {
	if len(needle) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(words); i++ {
		for j, n := range needle {
			if words[i+j] != n {
				continue outer
			}
		}
		return true
	}
	return false
}

// IsCodeRequest reports whether text explicitly asks for code. Explanation
// phrasing wins over code keywords, so "what is python" is not a request
// while "write a python function" is.
func IsCodeRequest(text string) bool {
	lower := strings.ToLower(text)

	for _, p := range explanationPhrases {
		if containsWord(lower, p) {
			return false
		}
	}

	for _, k := range codeKeywords {
		if containsWord(lower, k) {
			return true
		}
	}
	return false
}

// ExtractLanguage guesses the programming language named in text.
func ExtractLanguage(text string) string {
	lower := strings.ToLower(text)
	for _, lang := range languages {
		for _, k := range lang.keywords {
			if containsWord(lower, k) {
				return lang.name
			}
		}
	}
	return DefaultLanguage
}

// containsWord finds needle in haystack where neither neighbour is a letter
// or digit. Needles may carry symbols such as "c++".
func containsWord(haystack, needle string) bool {
	for start := 0; start <= len(haystack)-len(needle); {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		pos := start + idx
		end := pos + len(needle)
		if (pos == 0 || !isWordByte(haystack[pos-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return true
		}
		start = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}
