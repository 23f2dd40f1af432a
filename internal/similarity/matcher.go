package similarity

import (
	"sort"
	"strings"
)

// Matcher answers nearest-question queries over a fixed corpus.
type Matcher struct {
	vectorizer *Vectorizer
	rows       []Vector
	questions  []string
}

// Scored is one ranked corpus position.
type Scored struct {
	Index int
	Score float64
}

// NewMatcher builds the Vector space over questions. It fails with
// *EmptyCorpusError when no question carries a usable term.
func NewMatcher(questions []string) (*Matcher, error) {
	v, rows, err := Fit(questions)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		vectorizer: v,
		rows:       rows,
		questions:  append([]string(nil), questions...),
	}, nil
}

// Len returns the corpus size.
func (m *Matcher) Len() int {
	return len(m.rows)
}

// Question returns the corpus entry at i.
func (m *Matcher) Question(i int) string {
	return m.questions[i]
}

// FindBestMatch returns the index of the closest stored question and its
// cosine similarity in [0, 1]. Empty input yields (-1, 0). Ties go to the
// lowest index.
func (m *Matcher) FindBestMatch(input string) (int, float64) {
	if strings.TrimSpace(input) == "" {
		return -1, 0
	}

	q := m.vectorizer.Transform(input)
	best, bestScore := 0, -1.0
	for i, row := range m.rows {
		if s := dot(q, row); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, clamp(bestScore)
}

// TopK returns up to k corpus positions ordered by descending score.
func (m *Matcher) TopK(input string, k int) []Scored {
	if strings.TrimSpace(input) == "" || k <= 0 {
		return nil
	}

	q := m.vectorizer.Transform(input)
	scored := make([]Scored, len(m.rows))
	for i, row := range m.rows {
		scored[i] = Scored{Index: i, Score: clamp(dot(q, row))}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

func clamp(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
