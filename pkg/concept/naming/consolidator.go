package naming

import (
	"sort"
	"strings"
	"time"

	"ai-concept-engine/internal/entity"

	"github.com/google/uuid"
)

const FallbackConceptName = "Untitled Concept"

// MergeMap is an immutable absorbed -> absorber mapping.
type MergeMap struct {
	into map[string]string
}

// BuildMergeMap claims merge targets in result order. A target already claimed
// keeps its first absorber. Targets outside known, self merges and claims that
// would close a cycle are ignored. Only the first result per cluster is read.
func BuildMergeMap(results []entity.ConceptNamingResult, known map[string]struct{}) MergeMap {
	into := make(map[string]string)
	seen := make(map[string]struct{}, len(results))

	for _, r := range results {
		if _, ok := known[r.ClusterId]; !ok {
			continue
		}
		if _, dup := seen[r.ClusterId]; dup {
			continue
		}
		seen[r.ClusterId] = struct{}{}

		for _, target := range r.SuggestedMerges {
			if target == r.ClusterId {
				continue
			}
			if _, ok := known[target]; !ok {
				continue
			}
			if _, claimed := into[target]; claimed {
				continue
			}
			if reaches(into, r.ClusterId, target) {
				continue
			}
			into[target] = r.ClusterId
		}
	}
	return MergeMap{into: into}
}

// reaches reports whether following absorber links from id lands on target.
func reaches(into map[string]string, id, target string) bool {
	for {
		next, ok := into[id]
		if !ok {
			return false
		}
		if next == target {
			return true
		}
		id = next
	}
}

// AbsorbedInto returns the direct absorber of id.
func (m MergeMap) AbsorbedInto(id string) (string, bool) {
	absorber, ok := m.into[id]
	return absorber, ok
}

func (m MergeMap) IsAbsorbed(id string) bool {
	_, ok := m.into[id]
	return ok
}

// Root follows absorber links to the cluster that finally owns id.
func (m MergeMap) Root(id string) string {
	for {
		next, ok := m.into[id]
		if !ok {
			return id
		}
		id = next
	}
}

func (m MergeMap) Len() int {
	return len(m.into)
}

// MisfitSet is the union of misfit note ids across all results.
type MisfitSet map[string]struct{}

func CollectMisfits(results []entity.ConceptNamingResult) MisfitSet {
	set := make(MisfitSet)
	for _, r := range results {
		for _, m := range r.MisfitNotes {
			if m.NoteId != "" {
				set[m.NoteId] = struct{}{}
			}
		}
	}
	return set
}

func (s MisfitSet) Contains(noteId string) bool {
	_, ok := s[noteId]
	return ok
}

// Ids returns the misfit ids sorted.
func (s MisfitSet) Ids() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type ConsolidateOptions struct {
	FallbackName  string
	FallbackScore float64
	NewId         func() uuid.UUID
	Now           func() time.Time
}

func DefaultConsolidateOptions() ConsolidateOptions {
	return ConsolidateOptions{
		FallbackName:  FallbackConceptName,
		FallbackScore: DefaultQuizzability,
		NewId:         uuid.New,
		Now:           time.Now,
	}
}

// Consolidation is the result of folding naming results back into clusters.
type Consolidation struct {
	// Concepts are new candidates in cluster input order, one per surviving root cluster.
	Concepts []*entity.TrackedConcept
	// ByCluster indexes Concepts by their cluster id.
	ByCluster map[string]*entity.TrackedConcept
	// Results holds the first naming result per known cluster.
	Results  map[string]entity.ConceptNamingResult
	MergeMap MergeMap
	Misfits  MisfitSet
	// MisfitsRemoved counts distinct note ids actually dropped from some cluster.
	MisfitsRemoved int
	// EmptyClusterIds are root clusters left with no notes.
	EmptyClusterIds []string
	// FallbackClusterIds are root clusters that had no naming result.
	FallbackClusterIds []string
}

// Consolidate merges absorbed clusters into their roots, removes misfits and
// builds one named concept candidate per non-empty root cluster.
func Consolidate(clusters []*entity.Cluster, results []entity.ConceptNamingResult, opts ConsolidateOptions) *Consolidation {
	if opts.NewId == nil {
		opts.NewId = uuid.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FallbackName == "" {
		opts.FallbackName = FallbackConceptName
	}

	ordered := make([]*entity.Cluster, 0, len(clusters))
	known := make(map[string]struct{}, len(clusters))
	for _, c := range clusters {
		if c == nil {
			continue
		}
		if _, dup := known[c.Id]; dup {
			continue
		}
		known[c.Id] = struct{}{}
		ordered = append(ordered, c)
	}

	byCluster := make(map[string]entity.ConceptNamingResult, len(results))
	for _, r := range results {
		if _, ok := known[r.ClusterId]; !ok {
			continue
		}
		if _, dup := byCluster[r.ClusterId]; !dup {
			byCluster[r.ClusterId] = r
		}
	}

	mergeMap := BuildMergeMap(results, known)
	misfits := CollectMisfits(results)

	// Group member clusters under their root, keeping input order.
	members := make(map[string][]*entity.Cluster, len(ordered))
	for _, c := range ordered {
		root := mergeMap.Root(c.Id)
		members[root] = append(members[root], c)
	}

	out := &Consolidation{
		Concepts:           []*entity.TrackedConcept{},
		ByCluster:          make(map[string]*entity.TrackedConcept),
		Results:            byCluster,
		MergeMap:           mergeMap,
		Misfits:            misfits,
		EmptyClusterIds:    []string{},
		FallbackClusterIds: []string{},
	}

	removed := make(map[string]struct{})
	now := opts.Now()
	for _, c := range ordered {
		if mergeMap.IsAbsorbed(c.Id) {
			continue
		}

		noteIds := make([]string, 0)
		seenNotes := make(map[string]struct{})
		for _, m := range members[c.Id] {
			for _, n := range m.NoteIds {
				if misfits.Contains(n) {
					removed[n] = struct{}{}
					continue
				}
				if _, dup := seenNotes[n]; dup {
					continue
				}
				seenNotes[n] = struct{}{}
				noteIds = append(noteIds, n)
			}
		}

		if len(noteIds) == 0 {
			out.EmptyClusterIds = append(out.EmptyClusterIds, c.Id)
			continue
		}

		name, score := fallbackName(c, opts.FallbackName), opts.FallbackScore
		if r, ok := byCluster[c.Id]; ok {
			name, score = r.CanonicalName, r.QuizzabilityScore
		} else {
			out.FallbackClusterIds = append(out.FallbackClusterIds, c.Id)
		}

		concept := &entity.TrackedConcept{
			Id:                opts.NewId(),
			CanonicalName:     name,
			NoteIds:           noteIds,
			QuizzabilityScore: ClampScore(score),
			ClusterId:         c.Id,
			Metadata:          entity.ConceptMetadata{CreatedAt: now, LastUpdated: now},
			EvolutionHistory:  []entity.EvolutionEvent{},
		}
		out.Concepts = append(out.Concepts, concept)
		out.ByCluster[c.Id] = concept
	}
	out.MisfitsRemoved = len(removed)
	return out
}

func fallbackName(c *entity.Cluster, placeholder string) string {
	for _, name := range c.CandidateNames {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return placeholder
}
