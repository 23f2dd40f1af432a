// Package similarity finds the stored question closest to a new message using
// TF-IDF weighted term vectors and cosine similarity.
package similarity

import (
	"errors"
	"math"
	"unicode/utf8"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

// MaxDocumentFrequency drops terms that occur in a larger share of documents.
const MaxDocumentFrequency = 0.9

// ErrEmptyCorpus is matched by every EmptyCorpusError.
var ErrEmptyCorpus = errors.New("similarity: empty corpus")

// EmptyCorpusError is returned when a vector space is built over no questions.
type EmptyCorpusError struct {
	Documents int // documents offered, all of them empty
}

func (e *EmptyCorpusError) Error() string {
	if e.Documents == 0 {
		return "similarity: cannot build index over an empty corpus"
	}
	return "similarity: cannot build index, all documents are empty"
}

// Is reports whether target is ErrEmptyCorpus.
func (e *EmptyCorpusError) Is(target error) bool {
	return target == ErrEmptyCorpus
}

// Vector is a sparse, L2-normalised term vector keyed by vocabulary index.
type Vector map[int]float64

// Vectorizer turns text into TF-IDF vectors over unigrams and bigrams with
// sublinear term frequency and smoothed inverse document frequency.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// Fit learns the vocabulary and idf weights from docs and returns the
// vectors of docs in the same order.
func Fit(docs []string) (*Vectorizer, []Vector, error) {
	analyzed := make([][]string, len(docs))
	nonEmpty := 0
	for i, d := range docs {
		analyzed[i] = analyze(d)
		if len(analyzed[i]) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, nil, &EmptyCorpusError{Documents: len(docs)}
	}

	df := make(map[string]int)
	for _, terms := range analyzed {
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	n := len(docs)
	maxDocs := MaxDocumentFrequency * float64(n)
	v := &Vectorizer{vocabulary: make(map[string]int)}
	for term, count := range df {
		// A single document would lose every term to the cutoff.
		if n > 1 && float64(count) > maxDocs {
			continue
		}
		v.vocabulary[term] = len(v.idf)
		v.idf = append(v.idf, math.Log(float64(1+n)/float64(1+count))+1)
	}

	rows := make([]Vector, n)
	for i, terms := range analyzed {
		rows[i] = v.weigh(terms)
	}
	return v, rows, nil
}

// VocabularySize returns the number of retained terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.idf)
}

// Transform maps text into the learned vector space. Unknown terms are
// ignored.
func (v *Vectorizer) Transform(text string) Vector {
	return v.weigh(analyze(text))
}

func (v *Vectorizer) weigh(terms []string) Vector {
	tf := make(map[int]int)
	for _, t := range terms {
		if idx, ok := v.vocabulary[t]; ok {
			tf[idx]++
		}
	}

	vec := make(Vector, len(tf))
	var norm float64
	for idx, count := range tf {
		w := (1 + math.Log(float64(count))) * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// analyze lowercases and strips text, keeps words of two or more characters
// and emits unigrams followed by bigrams.
func analyze(text string) []string {
	var words []string
	for _, w := range textnorm.Tokens(textnorm.MatchingKey(text)) {
		if utf8.RuneCountInString(w) >= 2 {
			words = append(words, w)
		}
	}

	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

func dot(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}
