// Package evolution relates successive clustering runs and carries tracked
// concepts across them.
package evolution

import (
	"runtime"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/pkg/concept/similarity"

	"golang.org/x/sync/errgroup"
)

// DetectionResult is the outcome of matching an old cluster set against a new one.
type DetectionResult struct {
	// Evolutions holds exactly one record per old cluster, in old-cluster order.
	Evolutions []entity.ClusterEvolution
	// Dissolved lists old cluster ids that matched nothing well enough.
	Dissolved []string
	// NewClusterIds lists new clusters that were nobody's best match, in input order.
	NewClusterIds []string
}

// Counts tallies evolution records per type.
func (r *DetectionResult) Counts() map[entity.EvolutionType]int {
	counts := map[entity.EvolutionType]int{}
	for _, ev := range r.Evolutions {
		counts[ev.Type]++
	}
	return counts
}

// Detect pairs every old cluster with its best new cluster and classifies the pair.
//
// Matching is greedy per old cluster: several old clusters may pick the same new
// cluster, and no global assignment is attempted.
func Detect(oldClusters, newClusters []*entity.Cluster, cfg Config) *DetectionResult {
	result := &DetectionResult{
		Evolutions:    make([]entity.ClusterEvolution, len(oldClusters)),
		Dissolved:     []string{},
		NewClusterIds: []string{},
	}

	candidates := make([]similarity.Candidate, 0, len(newClusters))
	for _, c := range newClusters {
		if c == nil {
			continue
		}
		candidates = append(candidates, similarity.NewCandidate(c.Id, c.NoteIds))
	}

	// Each worker writes only its own slot, so the output order is fixed by input order.
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, old := range oldClusters {
		i, old := i, old
		g.Go(func() error {
			result.Evolutions[i] = evolve(old, candidates, cfg)
			return nil
		})
	}
	_ = g.Wait()

	selected := make(map[string]bool)
	for _, ev := range result.Evolutions {
		if ev.Type == entity.EvolutionDissolved {
			result.Dissolved = append(result.Dissolved, ev.OldClusterId)
			continue
		}
		if ev.NewClusterId != nil {
			selected[*ev.NewClusterId] = true
		}
	}
	for _, c := range candidates {
		if !selected[c.Id] {
			result.NewClusterIds = append(result.NewClusterIds, c.Id)
		}
	}

	return result
}

// evolve classifies one old cluster. A dissolved record keeps the best score it
// found but never names a new cluster.
func evolve(old *entity.Cluster, candidates []similarity.Candidate, cfg Config) entity.ClusterEvolution {
	var oldId string
	var notes []string
	if old != nil {
		oldId = old.Id
		notes = old.NoteIds
	}

	match, ok := similarity.BestMatch(similarity.NewSet(notes), candidates)
	if !ok {
		return entity.ClusterEvolution{
			OldClusterId: oldId,
			OverlapScore: 0,
			Type:         entity.EvolutionDissolved,
		}
	}

	evolutionType := cfg.Classify(match.Score)
	ev := entity.ClusterEvolution{
		OldClusterId: oldId,
		OverlapScore: match.Score,
		Type:         evolutionType,
	}
	if evolutionType != entity.EvolutionDissolved {
		newId := match.Id
		ev.NewClusterId = &newId
	}
	return ev
}
