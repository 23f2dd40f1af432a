package similarity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatcher_EmptyCorpus(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"nil", nil},
		{"blank docs", []string{"", "   "}},
		{"single characters only", []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatcher(tt.docs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyCorpus)

			var ece *EmptyCorpusError
			assert.True(t, errors.As(err, &ece))
			assert.Equal(t, len(tt.docs), ece.Documents)
		})
	}
}

func TestFindBestMatch(t *testing.T) {
	m, err := NewMatcher([]string{
		"what is python",
		"what is django",
		"how to cook pasta",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	idx, score := m.FindBestMatch("what is python")
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 1.0, score, 1e-9)

	idx, score = m.FindBestMatch("tell me about django")
	assert.Equal(t, 1, idx)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)

	idx, _ = m.FindBestMatch("best way to cook pasta")
	assert.Equal(t, 2, idx)
}

func TestFindBestMatch_EmptyInput(t *testing.T) {
	m, err := NewMatcher([]string{"what is python"})
	require.NoError(t, err)

	idx, score := m.FindBestMatch("")
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)

	idx, score = m.FindBestMatch("   ")
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)
}

func TestFindBestMatch_UnknownTerms(t *testing.T) {
	m, err := NewMatcher([]string{"what is python", "how to cook pasta"})
	require.NoError(t, err)

	idx, score := m.FindBestMatch("zebra crossing")
	assert.Equal(t, 0, idx)
	assert.Zero(t, score)
}

func TestFindBestMatch_TiesGoToLowestIndex(t *testing.T) {
	m, err := NewMatcher([]string{"python code", "python code", "rust book"})
	require.NoError(t, err)

	idx, score := m.FindBestMatch("python")
	assert.Equal(t, 0, idx)
	assert.Greater(t, score, 0.0)
}

func TestFit_DropsTermsInMostDocuments(t *testing.T) {
	m, err := NewMatcher([]string{"what is go", "what is rust", "what is java"})
	require.NoError(t, err)

	// "what", "is" and "what is" occur everywhere and are pruned.
	_, score := m.FindBestMatch("what is")
	assert.Zero(t, score)

	idx, score := m.FindBestMatch("is rust fast")
	assert.Equal(t, 1, idx)
	assert.Greater(t, score, 0.0)
}

func TestFit_SingleDocumentKeepsTerms(t *testing.T) {
	v, rows, err := Fit([]string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, 3, v.VocabularySize()) // hello, world, "hello world"
	require.Len(t, rows, 1)
	assert.InDelta(t, 1.0, dot(rows[0], rows[0]), 1e-9)
}

func TestAnalyze(t *testing.T) {
	assert.Equal(t,
		[]string{"what", "is", "python", "what is", "is python"},
		analyze("What is a Python???"),
	)
	assert.Empty(t, analyze("!!"))
}

func TestWeigh_SublinearTF(t *testing.T) {
	v, _, err := Fit([]string{"go go go", "rust"})
	require.NoError(t, err)

	vec := v.Transform("go go go go")
	require.Len(t, vec, 2) // "go" and "go go"
	for _, w := range vec {
		assert.Greater(t, w, 0.0)
	}
	assert.InDelta(t, 1.0, dot(vec, vec), 1e-9)
}

func TestTopK(t *testing.T) {
	m, err := NewMatcher([]string{"what is python", "what is django", "how to cook pasta"})
	require.NoError(t, err)

	top := m.TopK("what is python", 2)
	require.Len(t, top, 2)
	assert.Equal(t, 0, top[0].Index)
	assert.GreaterOrEqual(t, top[0].Score, top[1].Score)

	assert.Nil(t, m.TopK("", 2))
	assert.Len(t, m.TopK("python", 10), 3)
}
