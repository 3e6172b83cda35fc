package evolution

import (
	"fmt"
	"math/rand"
	"testing"

	"ai-concept-engine/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cluster(id string, notes ...string) *entity.Cluster {
	return &entity.Cluster{Id: id, NoteIds: notes}
}

func TestDetectIdenticalClusterIsRename(t *testing.T) {
	old := []*entity.Cluster{cluster("c1", "a", "b", "c", "d", "e")}
	next := []*entity.Cluster{cluster("c2", "a", "b", "c", "d", "e")}

	res := Detect(old, next, DefaultConfig())

	require.Len(t, res.Evolutions, 1)
	ev := res.Evolutions[0]
	assert.Equal(t, "c1", ev.OldClusterId)
	require.NotNil(t, ev.NewClusterId)
	assert.Equal(t, "c2", *ev.NewClusterId)
	assert.Equal(t, entity.EvolutionRename, ev.Type)
	assert.Equal(t, 1.0, ev.OverlapScore)
	assert.Empty(t, res.Dissolved)
	assert.Empty(t, res.NewClusterIds)
}

func TestDetectPartialOverlapIsRemap(t *testing.T) {
	old := []*entity.Cluster{cluster("c1", "a", "b", "c", "d", "e")}
	next := []*entity.Cluster{cluster("c2", "a", "b", "c", "x", "y")}

	res := Detect(old, next, DefaultConfig())

	require.Len(t, res.Evolutions, 1)
	assert.Equal(t, entity.EvolutionRemap, res.Evolutions[0].Type)
	assert.InDelta(t, 0.4286, res.Evolutions[0].OverlapScore, 1e-4)
}

func TestDetectEmptyInputs(t *testing.T) {
	res := Detect(nil, nil, DefaultConfig())
	assert.Empty(t, res.Evolutions)
	assert.Empty(t, res.Dissolved)
	assert.Empty(t, res.NewClusterIds)

	res = Detect(nil, []*entity.Cluster{cluster("n1", "a")}, DefaultConfig())
	assert.Empty(t, res.Evolutions)
	assert.Equal(t, []string{"n1"}, res.NewClusterIds)
}

func TestDetectNoCandidatesDissolves(t *testing.T) {
	res := Detect([]*entity.Cluster{cluster("c1", "a")}, nil, DefaultConfig())

	require.Len(t, res.Evolutions, 1)
	assert.Equal(t, entity.EvolutionDissolved, res.Evolutions[0].Type)
	assert.Nil(t, res.Evolutions[0].NewClusterId)
	assert.Equal(t, 0.0, res.Evolutions[0].OverlapScore)
	assert.Equal(t, []string{"c1"}, res.Dissolved)
}

func TestDetectClassificationBoundaries(t *testing.T) {
	cfg := Config{RenameThreshold: 0.5, RemapThreshold: 0.25}
	tests := []struct {
		name string
		old  []string
		new  []string
		want entity.EvolutionType
	}{
		// 2 shared of 4 in the union = 0.5
		{name: "exactly rename threshold", old: []string{"a", "b", "c"}, new: []string{"a", "b", "d"}, want: entity.EvolutionRename},
		// 1 shared of 4 = 0.25
		{name: "exactly remap threshold", old: []string{"a", "b"}, new: []string{"a", "c", "d"}, want: entity.EvolutionRemap},
		// 1 shared of 5 = 0.2
		{name: "just below remap threshold", old: []string{"a", "b", "c"}, new: []string{"a", "d", "e"}, want: entity.EvolutionDissolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Detect([]*entity.Cluster{cluster("old", tt.old...)}, []*entity.Cluster{cluster("new", tt.new...)}, cfg)
			require.Len(t, res.Evolutions, 1)
			assert.Equal(t, tt.want, res.Evolutions[0].Type)
		})
	}
}

func TestDetectDissolvedMatchDoesNotClaimNewCluster(t *testing.T) {
	old := []*entity.Cluster{cluster("c1", "a", "b", "c", "d", "e")}
	next := []*entity.Cluster{cluster("n1", "a", "v", "w", "x", "y", "z")}

	res := Detect(old, next, DefaultConfig())

	assert.Equal(t, entity.EvolutionDissolved, res.Evolutions[0].Type)
	assert.Nil(t, res.Evolutions[0].NewClusterId)
	assert.Equal(t, []string{"n1"}, res.NewClusterIds)
}

func TestDetectManyToOne(t *testing.T) {
	old := []*entity.Cluster{
		cluster("react-hooks", "h1", "h2", "h3"),
		cluster("react-state", "s1", "s2", "s3"),
	}
	next := []*entity.Cluster{cluster("react", "h1", "h2", "h3", "s1", "s2", "s3")}

	res := Detect(old, next, DefaultConfig())

	require.Len(t, res.Evolutions, 2)
	for _, ev := range res.Evolutions {
		require.NotNil(t, ev.NewClusterId)
		assert.Equal(t, "react", *ev.NewClusterId)
		assert.Equal(t, entity.EvolutionRemap, ev.Type)
	}
	assert.Empty(t, res.NewClusterIds)
}

func TestDetectIsDeterministicUnderReordering(t *testing.T) {
	old := []*entity.Cluster{
		cluster("o1", "a", "b", "c", "d"),
		cluster("o2", "e", "f", "g"),
		cluster("o3", "h", "i"),
		cluster("o4", "z"),
	}
	next := []*entity.Cluster{
		cluster("n1", "a", "b"),
		cluster("n2", "c", "d"),
		cluster("n3", "e", "f", "g", "q"),
		cluster("n4", "h", "i", "j"),
		cluster("n5", "h", "i", "k"),
		cluster("n6", "unrelated"),
	}

	want := Detect(old, next, DefaultConfig())

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*entity.Cluster(nil), next...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Detect(old, shuffled, DefaultConfig())
		assert.Equal(t, want.Evolutions, got.Evolutions, fmt.Sprintf("permutation %d", i))
		assert.Equal(t, want.Dissolved, got.Dissolved)
		assert.ElementsMatch(t, want.NewClusterIds, got.NewClusterIds)
	}

	// o1 ties between n1 and n2 (0.5, size 2); n1 wins on id.
	require.NotNil(t, want.Evolutions[0].NewClusterId)
	assert.Equal(t, "n1", *want.Evolutions[0].NewClusterId)
	// o3 ties between n4 and n5 (2/3, size 3); n4 wins on id.
	require.NotNil(t, want.Evolutions[2].NewClusterId)
	assert.Equal(t, "n4", *want.Evolutions[2].NewClusterId)
	assert.Equal(t, []string{"o4"}, want.Dissolved)
}

func TestDetectSingleWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	old := []*entity.Cluster{cluster("o1", "a"), cluster("o2", "b")}
	next := []*entity.Cluster{cluster("n1", "a"), cluster("n2", "b")}

	res := Detect(old, next, cfg)

	require.Len(t, res.Evolutions, 2)
	assert.Equal(t, "o1", res.Evolutions[0].OldClusterId)
	assert.Equal(t, "o2", res.Evolutions[1].OldClusterId)
	assert.Equal(t, map[entity.EvolutionType]int{entity.EvolutionRename: 2}, res.Counts())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{RenameThreshold: 0.1, RemapThreshold: 0.5}.Validate())
	assert.Error(t, Config{RenameThreshold: 1.5, RemapThreshold: 0.5}.Validate())
	assert.Error(t, Config{RenameThreshold: 0.6, RemapThreshold: -0.1}.Validate())
}
