package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{name: "both empty", a: nil, b: []string{}, want: 1.0},
		{name: "left empty", a: nil, b: []string{"a"}, want: 0.0},
		{name: "right empty", a: []string{"a"}, b: nil, want: 0.0},
		{name: "identical", a: []string{"a", "b", "c"}, b: []string{"c", "b", "a"}, want: 1.0},
		{name: "disjoint", a: []string{"a"}, b: []string{"b"}, want: 0.0},
		{name: "partial", a: []string{"a", "b", "c", "d", "e"}, b: []string{"a", "b", "c", "x", "y"}, want: 3.0 / 7.0},
		{name: "duplicates count once", a: []string{"a", "a", "b"}, b: []string{"a", "b"}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, Jaccard(tt.b, tt.a), 1e-9, "symmetric")
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestJaccardScenarioTwoRounds(t *testing.T) {
	got := Jaccard([]string{"a", "b", "c", "d", "e"}, []string{"a", "b", "c", "x", "y"})
	assert.Equal(t, 0.4286, math.Round(got*10000)/10000)
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	_, ok := BestMatch(NewSet([]string{"a"}), nil)
	assert.False(t, ok)
}

func TestBestMatchHighestScore(t *testing.T) {
	target := NewSet([]string{"a", "b", "c"})
	candidates := []Candidate{
		NewCandidate("low", []string{"a", "x", "y"}),
		NewCandidate("high", []string{"a", "b", "c"}),
	}

	m, ok := BestMatch(target, candidates)
	require.True(t, ok)
	assert.Equal(t, "high", m.Id)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 1.0, m.Score)
}

func TestBestMatchEqualScorePrefersLarger(t *testing.T) {
	// Both candidates score 0.5 against {a, b}; "big" has more notes.
	target := NewSet([]string{"a", "b"})
	small := NewCandidate("aaa", []string{"a"})
	big := NewCandidate("zzz", []string{"a", "b", "c", "d"})

	for _, cands := range [][]Candidate{{small, big}, {big, small}} {
		m, ok := BestMatch(target, cands)
		require.True(t, ok)
		assert.Equal(t, "zzz", m.Id)
		assert.InDelta(t, 0.5, m.Score, 1e-9)
		assert.Equal(t, 4, m.Size)
	}
}

func TestBestMatchEqualScoreAndSizePrefersSmallerId(t *testing.T) {
	target := NewSet([]string{"a", "b", "c", "d"})
	c1 := NewCandidate("id-b", []string{"a", "b"})
	c2 := NewCandidate("id-a", []string{"c", "d"})
	c3 := NewCandidate("id-0", []string{"a", "b", "x", "y"})

	for _, cands := range [][]Candidate{{c1, c2, c3}, {c3, c2, c1}, {c2, c3, c1}} {
		m, ok := BestMatch(target, cands)
		require.True(t, ok)
		assert.Equal(t, "id-a", m.Id)
		assert.InDelta(t, 0.5, m.Score, 1e-9)
	}
}

func TestBetter(t *testing.T) {
	assert.True(t, Better(Match{Id: "b", Score: 0.6, Size: 1}, Match{Id: "a", Score: 0.5, Size: 9}))
	assert.True(t, Better(Match{Id: "z", Score: 0.4, Size: 5}, Match{Id: "a", Score: 0.4, Size: 2}))
	assert.True(t, Better(Match{Id: "a", Score: 0.4, Size: 2}, Match{Id: "b", Score: 0.4, Size: 2}))
	assert.False(t, Better(Match{Id: "b", Score: 0.4, Size: 2}, Match{Id: "a", Score: 0.4, Size: 2}))
}
