package contract

import (
	"context"

	"ai-concept-engine/internal/entity"

	"github.com/google/uuid"
)

// ConceptFilter narrows FindAll and Count. Zero values mean no restriction.
type ConceptFilter struct {
	Quizzable *bool
	ClusterId string
	Search    string
	Limit     int
	Offset    int
}

type ConceptRepository interface {
	// Sync upserts and deletes in one step so a run is never half persisted.
	Sync(ctx context.Context, upserts []*entity.TrackedConcept, deletes []uuid.UUID) error
	SaveAll(ctx context.Context, concepts []*entity.TrackedConcept) error
	DeleteByIds(ctx context.Context, ids []uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.TrackedConcept, error)
	FindAll(ctx context.Context, filter ConceptFilter) ([]*entity.TrackedConcept, error)
	Count(ctx context.Context, filter ConceptFilter) (int64, error)
}

// SnapshotStore keeps the cluster set of the previous run.
type SnapshotStore interface {
	LoadClusters(ctx context.Context) ([]*entity.Cluster, error)
	SaveClusters(ctx context.Context, clusters []*entity.Cluster) error
}

type RunRepository interface {
	Save(ctx context.Context, report *entity.RunReport) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.RunReport, error)
	Latest(ctx context.Context) (*entity.RunReport, error)
	List(ctx context.Context, limit int) ([]*entity.RunReport, error)
}
