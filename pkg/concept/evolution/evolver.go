package evolution

import (
	"time"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/pkg/concept/similarity"
)

type Action string

const (
	ActionUnchanged Action = "unchanged"
	ActionRenamed   Action = "renamed"
	ActionRemapped  Action = "remapped"
	ActionDissolved Action = "dissolved"
)

// EvolveResult is the outcome for one tracked concept. Concept is nil when dissolved.
type EvolveResult struct {
	Concept     *entity.TrackedConcept
	Action      Action
	WasModified bool
	// PreviousClusterId is the cluster the concept pointed at before evolving.
	PreviousClusterId string
}

type ActionCounts = entity.ActionCounts

// Evolver applies cluster evolutions to tracked concepts.
type Evolver struct {
	now func() time.Time
}

func NewEvolver() *Evolver {
	return &Evolver{now: time.Now}
}

// WithClock swaps the time source, mostly for tests.
func (e *Evolver) WithClock(now func() time.Time) *Evolver {
	e.now = now
	return e
}

// IndexByOldCluster builds the read-only lookup used by EvolveConcept.
// If an old cluster appears twice the first record wins.
func IndexByOldCluster(evolutions []entity.ClusterEvolution) map[string]entity.ClusterEvolution {
	lookup := make(map[string]entity.ClusterEvolution, len(evolutions))
	for _, ev := range evolutions {
		if _, exists := lookup[ev.OldClusterId]; !exists {
			lookup[ev.OldClusterId] = ev
		}
	}
	return lookup
}

// EvolveConcept moves one concept through the unchanged/renamed/remapped/dissolved states.
// newNames maps new cluster ids to freshly generated names and is consulted only on remap.
// The input concept is never modified.
func (e *Evolver) EvolveConcept(
	concept *entity.TrackedConcept,
	lookup map[string]entity.ClusterEvolution,
	newNames map[string]string,
) EvolveResult {
	if concept == nil {
		return EvolveResult{Action: ActionDissolved}
	}

	ev, found := lookup[concept.ClusterId]
	if !found {
		return EvolveResult{Concept: concept, Action: ActionUnchanged, PreviousClusterId: concept.ClusterId}
	}

	// A rename or remap without a target cannot be applied; treat it as dissolved.
	if ev.Type == entity.EvolutionDissolved || ev.NewClusterId == nil {
		return EvolveResult{Action: ActionDissolved, WasModified: true, PreviousClusterId: concept.ClusterId}
	}

	now := e.now()
	next := concept.Clone()
	next.ClusterId = *ev.NewClusterId
	next.Metadata.LastUpdated = now

	toCluster := *ev.NewClusterId
	next.EvolutionHistory = append(next.EvolutionHistory, entity.EvolutionEvent{
		Ts:           now,
		FromCluster:  concept.ClusterId,
		ToCluster:    &toCluster,
		Type:         ev.Type,
		OverlapScore: ev.OverlapScore,
	})

	action := ActionRenamed
	if ev.Type == entity.EvolutionRemap {
		action = ActionRemapped
		if name, ok := newNames[toCluster]; ok && name != "" {
			next.CanonicalName = name
		}
	}

	return EvolveResult{Concept: next, Action: action, WasModified: true, PreviousClusterId: concept.ClusterId}
}

// EvolveBatch evolves every concept independently and returns one result per input,
// in input order.
func (e *Evolver) EvolveBatch(
	concepts []*entity.TrackedConcept,
	evolutions []entity.ClusterEvolution,
	newNames map[string]string,
) []EvolveResult {
	lookup := IndexByOldCluster(evolutions)
	results := make([]EvolveResult, len(concepts))
	for i, c := range concepts {
		results[i] = e.EvolveConcept(c, lookup, newNames)
	}
	return results
}

// EvolveAgainst is EvolveBatch with a content guard: a concept whose notes share
// nothing with the previous cluster of the same id is left unchanged, since the
// id was reused by an unrelated cluster.
func (e *Evolver) EvolveAgainst(
	concepts []*entity.TrackedConcept,
	previous []*entity.Cluster,
	evolutions []entity.ClusterEvolution,
	newNames map[string]string,
) []EvolveResult {
	lookup := IndexByOldCluster(evolutions)
	prev := make(map[string]*entity.Cluster, len(previous))
	for _, cl := range previous {
		if cl != nil {
			if _, exists := prev[cl.Id]; !exists {
				prev[cl.Id] = cl
			}
		}
	}

	results := make([]EvolveResult, len(concepts))
	for i, c := range concepts {
		if c != nil && !SharesNotes(c, prev[c.ClusterId]) {
			results[i] = e.EvolveConcept(c, nil, newNames)
			continue
		}
		results[i] = e.EvolveConcept(c, lookup, newNames)
	}
	return results
}

// SharesNotes reports whether a concept overlaps the cluster it references.
// A missing cluster or a concept without notes counts as sharing.
func SharesNotes(c *entity.TrackedConcept, cl *entity.Cluster) bool {
	if cl == nil || len(c.NoteIds) == 0 {
		return true
	}
	return similarity.Jaccard(c.NoteIds, cl.NoteIds) > 0
}

// Survivors returns the non-dissolved results of a batch, in order.
func Survivors(results []EvolveResult) []EvolveResult {
	out := make([]EvolveResult, 0, len(results))
	for _, r := range results {
		if r.Concept != nil {
			out = append(out, r)
		}
	}
	return out
}

func CountActions(results []EvolveResult) ActionCounts {
	var counts ActionCounts
	for _, r := range results {
		switch r.Action {
		case ActionUnchanged:
			counts.Unchanged++
		case ActionRenamed:
			counts.Renamed++
		case ActionRemapped:
			counts.Remapped++
		case ActionDissolved:
			counts.Dissolved++
		}
	}
	return counts
}
