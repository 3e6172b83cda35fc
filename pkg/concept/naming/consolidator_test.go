package naming

import (
	"sort"
	"testing"
	"time"

	"ai-concept-engine/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func namingResult(clusterId, name string, score float64, merges ...string) entity.ConceptNamingResult {
	return entity.ConceptNamingResult{
		ClusterId:         clusterId,
		CanonicalName:     name,
		QuizzabilityScore: score,
		SuggestedMerges:   merges,
	}
}

func testOptions() ConsolidateOptions {
	opts := DefaultConsolidateOptions()
	opts.Now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return opts
}

func TestBuildMergeMapFirstWriterWins(t *testing.T) {
	results := []entity.ConceptNamingResult{
		namingResult("a", "A", 0.8, "c"),
		namingResult("b", "B", 0.8, "c", "d"),
	}

	mm := BuildMergeMap(results, knownSet("a", "b", "c", "d"))

	into, ok := mm.AbsorbedInto("c")
	require.True(t, ok)
	assert.Equal(t, "a", into)
	into, ok = mm.AbsorbedInto("d")
	require.True(t, ok)
	assert.Equal(t, "b", into)
	assert.Equal(t, 2, mm.Len())
}

func TestBuildMergeMapIgnoresUnknownSelfAndCycles(t *testing.T) {
	results := []entity.ConceptNamingResult{
		namingResult("a", "A", 0.8, "a", "ghost", "b"),
		namingResult("b", "B", 0.8, "a"),
		namingResult("ghost", "G", 0.8, "a"),
	}

	mm := BuildMergeMap(results, knownSet("a", "b"))

	assert.Equal(t, 1, mm.Len())
	assert.True(t, mm.IsAbsorbed("b"))
	assert.False(t, mm.IsAbsorbed("a"))
	assert.False(t, mm.IsAbsorbed("ghost"))
}

func TestBuildMergeMapChainsResolveToRoot(t *testing.T) {
	results := []entity.ConceptNamingResult{
		namingResult("b", "B", 0.8, "c"),
		namingResult("a", "A", 0.8, "b"),
		// c -> a would close a loop c -> b -> a -> c.
		namingResult("c", "C", 0.8, "a"),
	}

	mm := BuildMergeMap(results, knownSet("a", "b", "c"))

	assert.Equal(t, "a", mm.Root("c"))
	assert.Equal(t, "a", mm.Root("b"))
	assert.Equal(t, "a", mm.Root("a"))
	assert.False(t, mm.IsAbsorbed("a"))
}

func TestBuildMergeMapDuplicateResultFirstWins(t *testing.T) {
	results := []entity.ConceptNamingResult{
		namingResult("a", "A", 0.8),
		namingResult("a", "A again", 0.8, "b"),
	}

	mm := BuildMergeMap(results, knownSet("a", "b"))

	assert.Equal(t, 0, mm.Len())
}

func TestConsolidateMergesSameTopic(t *testing.T) {
	clusters := []*entity.Cluster{
		{Id: "cluster-1", NoteIds: []string{"n1", "n2"}},
		{Id: "cluster-2", NoteIds: []string{"n3", "n4", "n2"}},
	}
	results := []entity.ConceptNamingResult{
		namingResult("cluster-1", "React Development", 0.85, "cluster-2"),
		namingResult("cluster-2", "React Development", 0.8),
	}

	out := Consolidate(clusters, results, testOptions())

	require.Len(t, out.Concepts, 1)
	c := out.Concepts[0]
	assert.Equal(t, "cluster-1", c.ClusterId)
	assert.Equal(t, "React Development", c.CanonicalName)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, c.NoteIds)
	assert.Equal(t, 0.85, c.QuizzabilityScore)
	assert.NotEqual(t, uuid.Nil, c.Id)
	assert.Same(t, c, out.ByCluster["cluster-1"])
	assert.Empty(t, out.FallbackClusterIds)
}

func TestConsolidateAllMisfitsProducesNothing(t *testing.T) {
	clusters := []*entity.Cluster{{Id: "c1", NoteIds: []string{"a", "b"}}}
	results := []entity.ConceptNamingResult{{
		ClusterId:         "c1",
		CanonicalName:     "Noise",
		QuizzabilityScore: 0.7,
		MisfitNotes:       []entity.MisfitNote{{NoteId: "a"}, {NoteId: "b"}},
	}}

	out := Consolidate(clusters, results, testOptions())

	assert.Empty(t, out.Concepts)
	assert.Equal(t, []string{"c1"}, out.EmptyClusterIds)
	assert.Equal(t, 2, out.MisfitsRemoved)
}

func TestConsolidateMisfitRemovedFromEveryCluster(t *testing.T) {
	clusters := []*entity.Cluster{
		{Id: "c1", NoteIds: []string{"a", "x"}},
		{Id: "c2", NoteIds: []string{"b", "x"}},
	}
	results := []entity.ConceptNamingResult{
		{ClusterId: "c1", CanonicalName: "One", QuizzabilityScore: 0.6, MisfitNotes: []entity.MisfitNote{{NoteId: "x"}}},
		namingResult("c2", "Two", 0.6),
	}

	out := Consolidate(clusters, results, testOptions())

	require.Len(t, out.Concepts, 2)
	assert.Equal(t, []string{"a"}, out.Concepts[0].NoteIds)
	assert.Equal(t, []string{"b"}, out.Concepts[1].NoteIds)
	assert.Equal(t, 1, out.MisfitsRemoved)
}

func TestConsolidateFallbackNaming(t *testing.T) {
	clusters := []*entity.Cluster{
		{Id: "c1", NoteIds: []string{"a"}, CandidateNames: []string{"  ", "Kubernetes"}},
		{Id: "c2", NoteIds: []string{"b"}},
	}

	out := Consolidate(clusters, nil, testOptions())

	require.Len(t, out.Concepts, 2)
	assert.Equal(t, "Kubernetes", out.Concepts[0].CanonicalName)
	assert.Equal(t, FallbackConceptName, out.Concepts[1].CanonicalName)
	assert.Equal(t, 0.5, out.Concepts[0].QuizzabilityScore)
	assert.True(t, out.Concepts[0].IsQuizzable())
	assert.Equal(t, []string{"c1", "c2"}, out.FallbackClusterIds)
}

func TestConsolidateClampsAndIgnoresUnknownResults(t *testing.T) {
	clusters := []*entity.Cluster{{Id: "c1", NoteIds: []string{"a"}}}
	results := []entity.ConceptNamingResult{
		namingResult("zz", "Stray", 0.9),
		namingResult("c1", "Over", 3.2),
		namingResult("c1", "Second", 0.1),
	}

	out := Consolidate(clusters, results, testOptions())

	require.Len(t, out.Concepts, 1)
	assert.Equal(t, "Over", out.Concepts[0].CanonicalName)
	assert.Equal(t, 1.0, out.Concepts[0].QuizzabilityScore)
}

func TestConsolidateDegenerateInputs(t *testing.T) {
	out := Consolidate(nil, nil, testOptions())
	assert.Empty(t, out.Concepts)
	assert.Empty(t, out.EmptyClusterIds)

	out = Consolidate([]*entity.Cluster{{Id: "c1"}, nil}, nil, testOptions())
	assert.Empty(t, out.Concepts)
	assert.Equal(t, []string{"c1"}, out.EmptyClusterIds)
}

func TestConsolidateConservesNotes(t *testing.T) {
	clusters := []*entity.Cluster{
		{Id: "c1", NoteIds: []string{"a", "b", "c"}},
		{Id: "c2", NoteIds: []string{"d", "e"}},
		{Id: "c3", NoteIds: []string{"f"}},
		{Id: "c4", NoteIds: []string{"g", "h"}},
		{Id: "c5", NoteIds: []string{"i"}},
	}
	results := []entity.ConceptNamingResult{
		{ClusterId: "c1", CanonicalName: "One", QuizzabilityScore: 0.9, SuggestedMerges: []string{"c2"}, MisfitNotes: []entity.MisfitNote{{NoteId: "b"}}},
		{ClusterId: "c3", CanonicalName: "Three", QuizzabilityScore: 0.2, MisfitNotes: []entity.MisfitNote{{NoteId: "f"}}},
		{ClusterId: "c4", CanonicalName: "Four", QuizzabilityScore: 0.6, SuggestedMerges: []string{"c1"}},
	}

	out := Consolidate(clusters, results, testOptions())

	covered := make(map[string]struct{})
	for _, c := range out.Concepts {
		require.NotEmpty(t, c.NoteIds)
		for _, n := range c.NoteIds {
			covered[n] = struct{}{}
		}
	}
	for id := range out.Misfits {
		covered[id] = struct{}{}
	}
	var got []string
	for id := range covered {
		got = append(got, id)
	}
	sort.Strings(got)

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, got)
	// c4 absorbed c1 which had absorbed c2.
	require.Contains(t, out.ByCluster, "c4")
	assert.Equal(t, []string{"a", "c", "d", "e", "g", "h"}, out.ByCluster["c4"].NoteIds)
	assert.Equal(t, []string{"c3"}, out.EmptyClusterIds)
	assert.Equal(t, []string{"b", "f"}, out.Misfits.Ids())
}
