// Package pipeline runs one full re-clustering pass: summarize, name, consolidate,
// evolve previous concepts and reconcile the two.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/pkg/concept/evolution"
	"ai-concept-engine/pkg/concept/naming"
	"ai-concept-engine/pkg/concept/similarity"
	"ai-concept-engine/pkg/concept/summary"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const tracerName = "ai-concept-engine/pipeline"

// Input is one re-clustering pass. PreviousClusters and PreviousConcepts may be empty.
type Input struct {
	Clusters         []*entity.Cluster
	Titles           summary.TitleLookup
	PreviousClusters []*entity.Cluster
	PreviousConcepts []*entity.TrackedConcept
}

type Output struct {
	// Concepts is the surviving tracked-concept set: carried concepts first, in
	// their input order, then newly created ones in cluster order.
	Concepts []*entity.TrackedConcept
	// RemovedConceptIds are previous concepts that did not survive the pass.
	RemovedConceptIds []uuid.UUID
	Evolutions        []entity.ClusterEvolution
	Misfits           []string
	BatchErrors       []error
	Stats             entity.RunStats
}

type Coordinator struct {
	namer   naming.Namer
	cfg     Config
	logger  logger.ILogger
	tracer  trace.Tracer
	evolver *evolution.Evolver
	now     func() time.Time
	newId   func() uuid.UUID
}

func NewCoordinator(namer naming.Namer, cfg Config, log logger.ILogger) (*Coordinator, error) {
	if namer == nil {
		return nil, errors.New("pipeline: namer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Coordinator{
		namer:   namer,
		cfg:     cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		evolver: evolution.NewEvolver(),
		now:     time.Now,
		newId:   uuid.New,
	}, nil
}

// WithClock swaps the time source for evolution events and new concepts.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	c.evolver.WithClock(now)
	return c
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

// Run executes one pass. Only context cancellation aborts it; failed naming
// batches fall back to default naming and are reported in BatchErrors.
func (c *Coordinator) Run(ctx context.Context, in Input) (*Output, error) {
	started := c.now()
	ctx, span := c.tracer.Start(ctx, "concept.run", trace.WithAttributes(
		attribute.Int("clusters", len(in.Clusters)),
		attribute.Int("previous_concepts", len(in.PreviousConcepts)),
	))
	defer span.End()

	summaries := summary.Summarize(in.Clusters, in.Titles, c.cfg.Summary)
	batches := summary.Batch(summaries, c.cfg.BatchSize)

	estimated := 0
	for _, s := range summaries {
		estimated += summary.EstimateTokens(s)
	}
	c.logger.Info(logger.ModulePipeline, "Starting concept run", map[string]interface{}{
		"clusters":          len(in.Clusters),
		"batches":           len(batches),
		"estimated_tokens":  estimated,
		"previous_concepts": len(in.PreviousConcepts),
	})

	responses, batchErrs, err := c.nameBatches(ctx, batches)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run aborted")
		return nil, err
	}

	// Fold responses in submission order so first-writer-wins is reproducible.
	var results []entity.ConceptNamingResult
	var usage entity.TokenUsage
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		results = append(results, resp.Results...)
		usage = usage.Add(resp.Usage)
	}

	opts := naming.DefaultConsolidateOptions()
	opts.Now = c.now
	opts.NewId = c.newId
	cons := naming.Consolidate(in.Clusters, results, opts)

	survivors, stats := c.evolve(in, cons)
	out := &Output{
		Evolutions:  stats.evolutions,
		Misfits:     cons.Misfits.Ids(),
		BatchErrors: batchErrs,
	}
	reconciled := c.reconcile(survivors, cons)

	out.Concepts = reconciled.concepts
	out.RemovedConceptIds = removedIds(in.PreviousConcepts, out.Concepts)

	failed := 0
	for _, e := range batchErrs {
		if e != nil {
			failed++
		}
	}

	out.Stats = entity.RunStats{
		TotalClusters:      len(in.Clusters),
		TotalConcepts:      len(out.Concepts),
		NewConcepts:        reconciled.created,
		CarriedConcepts:    len(out.Concepts) - reconciled.created,
		FoldedConcepts:     reconciled.folded,
		DestroyedConcepts:  reconciled.destroyed,
		Batches:            len(batches),
		FailedBatches:      failed,
		FallbackNamed:      len(cons.FallbackClusterIds),
		EmptyClusters:      len(cons.EmptyClusterIds),
		MergedClusters:     cons.MergeMap.Len(),
		MisfitNotesRemoved: cons.MisfitsRemoved,
		EstimatedTokens:    estimated,
		Usage:              usage,
		EstimatedCostUSD:   c.cfg.EstimateCost(usage.InputTokens, usage.OutputTokens),
		Evolution:          stats.actions,
		NewClusters:        stats.newClusters,
		DissolvedClusters:  stats.dissolved,
		DurationMillis:     c.now().Sub(started).Milliseconds(),
	}
	for _, concept := range out.Concepts {
		if concept.IsQuizzable() {
			out.Stats.QuizzableConcepts++
		} else {
			out.Stats.NonQuizzable++
		}
	}

	span.SetAttributes(
		attribute.Int("concepts", out.Stats.TotalConcepts),
		attribute.Int("failed_batches", failed),
		attribute.Int("tokens", usage.Total()),
	)
	c.logger.Info(logger.ModulePipeline, "Concept run finished", map[string]interface{}{
		"concepts":       out.Stats.TotalConcepts,
		"new":            out.Stats.NewConcepts,
		"failed_batches": failed,
		"misfits":        out.Stats.MisfitNotesRemoved,
		"tokens":         usage.Total(),
		"cost_usd":       out.Stats.EstimatedCostUSD,
	})
	return out, nil
}

// nameBatches calls the namer for every batch with bounded concurrency. Results
// and errors land in the batch's own slot.
func (c *Coordinator) nameBatches(ctx context.Context, batches [][]entity.ClusterSummary) ([]*naming.Response, []error, error) {
	responses := make([]*naming.Response, len(batches))
	batchErrs := make([]error, len(batches))

	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			bctx, span := c.tracer.Start(gctx, "concept.name_batch", trace.WithAttributes(
				attribute.Int("batch", i),
				attribute.Int("clusters", len(batch)),
			))
			defer span.End()

			resp, err := c.namer.NameClusters(bctx, batch)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, "naming failed")
				batchErrs[i] = &naming.ProtocolError{BatchIndex: i, Err: err}
				c.logger.Warn(logger.ModulePipeline, "Naming batch failed, using fallback names", map[string]interface{}{
					"batch":    i,
					"clusters": len(batch),
					"error":    err.Error(),
				})
				return nil
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("naming batches: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("naming batches: %w", err)
	}
	return responses, batchErrs, nil
}

type evolveStats struct {
	evolutions  []entity.ClusterEvolution
	actions     evolution.ActionCounts
	newClusters int
	dissolved   int
}

func (c *Coordinator) evolve(in Input, cons *naming.Consolidation) ([]evolution.EvolveResult, evolveStats) {
	var stats evolveStats
	if len(in.PreviousConcepts) == 0 && len(in.PreviousClusters) == 0 {
		stats.evolutions = []entity.ClusterEvolution{}
		stats.newClusters = len(in.Clusters)
		return nil, stats
	}

	detection := evolution.Detect(in.PreviousClusters, in.Clusters, c.cfg.Evolution)

	// A remapped concept takes the name the collaborator gave its new cluster.
	newNames := make(map[string]string)
	for _, ev := range detection.Evolutions {
		if ev.Type != entity.EvolutionRemap || ev.NewClusterId == nil {
			continue
		}
		if r, ok := cons.Results[cons.MergeMap.Root(*ev.NewClusterId)]; ok {
			newNames[*ev.NewClusterId] = r.CanonicalName
		}
	}

	results := c.evolver.EvolveAgainst(in.PreviousConcepts, in.PreviousClusters, detection.Evolutions, newNames)
	stats.evolutions = detection.Evolutions
	stats.actions = evolution.CountActions(results)
	stats.newClusters = len(detection.NewClusterIds)
	stats.dissolved = len(detection.Dissolved)

	c.logger.Debug(logger.ModuleEvolution, "Evolution detected", map[string]interface{}{
		"renamed":   stats.actions.Renamed,
		"remapped":  stats.actions.Remapped,
		"dissolved": stats.actions.Dissolved,
		"unchanged": stats.actions.Unchanged,
	})
	return evolution.Survivors(results), stats
}

type reconcileResult struct {
	concepts  []*entity.TrackedConcept
	created   int
	folded    int
	destroyed int
}

// reconcile attaches surviving concepts to this run's consolidated candidates.
// Evolved concepts are attached to the candidate of their new cluster. An
// unchanged concept is attached only when a candidate with its cluster id also
// overlaps its notes by at least the remap threshold; otherwise it is carried
// as is, even when a new cluster reuses that id. An attached survivor follows
// its cluster's absorber; the first survivor to reach a cluster owns it and
// later ones are folded away. Evolved survivors whose cluster came out empty
// are destroyed. Candidates nobody claimed become new concepts.
func (c *Coordinator) reconcile(survivors []evolution.EvolveResult, cons *naming.Consolidation) reconcileResult {
	res := reconcileResult{concepts: make([]*entity.TrackedConcept, 0, len(survivors)+len(cons.Concepts))}
	claimed := make(map[string]bool)
	now := c.now()

	for _, r := range survivors {
		s := r.Concept
		root := cons.MergeMap.Root(s.ClusterId)
		candidate, ok := cons.ByCluster[root]
		if r.Action == evolution.ActionUnchanged &&
			(!ok || claimed[root] || similarity.Jaccard(s.NoteIds, candidate.NoteIds) < c.cfg.Evolution.RemapThreshold) {
			res.concepts = append(res.concepts, s)
			continue
		}
		if !ok {
			res.destroyed++
			continue
		}
		if claimed[root] {
			res.folded++
			continue
		}
		claimed[root] = true

		next := s.Clone()
		changed := false
		if root != s.ClusterId {
			to := root
			next.EvolutionHistory = append(next.EvolutionHistory, entity.EvolutionEvent{
				Ts:           now,
				FromCluster:  s.ClusterId,
				ToCluster:    &to,
				Type:         entity.EvolutionRemap,
				OverlapScore: similarity.Jaccard(s.NoteIds, candidate.NoteIds),
			})
			next.ClusterId = root
			changed = true
		}
		if !slices.Equal(next.NoteIds, candidate.NoteIds) {
			next.NoteIds = append([]string{}, candidate.NoteIds...)
			changed = true
		}
		// Fallback scores never overwrite a real one.
		if _, named := cons.Results[root]; named && next.QuizzabilityScore != candidate.QuizzabilityScore {
			next.QuizzabilityScore = candidate.QuizzabilityScore
			changed = true
		}
		if changed {
			next.Metadata.LastUpdated = now
		}
		res.concepts = append(res.concepts, next)
	}

	for _, candidate := range cons.Concepts {
		if claimed[candidate.ClusterId] {
			continue
		}
		res.concepts = append(res.concepts, candidate)
		res.created++
	}
	return res
}

func removedIds(previous, current []*entity.TrackedConcept) []uuid.UUID {
	alive := make(map[uuid.UUID]struct{}, len(current))
	for _, c := range current {
		alive[c.Id] = struct{}{}
	}
	removed := []uuid.UUID{}
	for _, p := range previous {
		if p == nil {
			continue
		}
		if _, ok := alive[p.Id]; !ok {
			removed = append(removed, p.Id)
		}
	}
	return removed
}
