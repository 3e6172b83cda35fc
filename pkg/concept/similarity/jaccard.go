// Package similarity scores overlap between note-id sets.
package similarity

// Set is a set of note identifiers.
type Set map[string]struct{}

func NewSet(ids []string) Set {
	set := make(Set, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B|. Two empty sets are identical (1.0),
// an empty set against a non-empty one scores 0.
func (s Set) Jaccard(other Set) float64 {
	if len(s) == 0 && len(other) == 0 {
		return 1.0
	}
	if len(s) == 0 || len(other) == 0 {
		return 0.0
	}

	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for id := range small {
		if _, ok := large[id]; ok {
			intersection++
		}
	}
	union := len(s) + len(other) - intersection
	return float64(intersection) / float64(union)
}

// Jaccard is the slice form of Set.Jaccard. Duplicate ids count once.
func Jaccard(a, b []string) float64 {
	return NewSet(a).Jaccard(NewSet(b))
}

// Candidate is a set that may be matched against a target.
type Candidate struct {
	Id    string
	Notes Set
}

func NewCandidate(id string, noteIds []string) Candidate {
	return Candidate{Id: id, Notes: NewSet(noteIds)}
}

// Match is the winner of BestMatch.
type Match struct {
	Index int
	Id    string
	Score float64
	Size  int
}

// BestMatch picks the candidate most similar to target.
// Ties go to the larger candidate, then to the lexicographically smaller id,
// so the result never depends on candidate order.
func BestMatch(target Set, candidates []Candidate) (Match, bool) {
	if len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Index: -1}
	for i, c := range candidates {
		m := Match{Index: i, Id: c.Id, Score: target.Jaccard(c.Notes), Size: len(c.Notes)}
		if best.Index < 0 || Better(m, best) {
			best = m
		}
	}
	return best, true
}

// Better reports whether a beats b under score, then size, then id ordering.
func Better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.Id < b.Id
}
