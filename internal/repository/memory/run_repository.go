package memory

import (
	"context"
	"sort"
	"sync"

	"ai-concept-engine/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultRunHistory = 20

// RunRepository keeps the most recent run reports.
type RunRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
	limit int
}

func NewRunRepository(limit int) *RunRepository {
	if limit <= 0 {
		limit = DefaultRunHistory
	}
	return &RunRepository{
		cache: cache.New(cache.NoExpiration, 0),
		limit: limit,
	}
}

func (r *RunRepository) Save(ctx context.Context, report *entity.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *report
	r.cache.Set(report.Id.String(), &cp, cache.NoExpiration)

	reports := r.sorted()
	for _, old := range reports[min(r.limit, len(reports)):] {
		r.cache.Delete(old.Id.String())
	}
	return nil
}

func (r *RunRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.RunReport, error) {
	if x, found := r.cache.Get(id.String()); found {
		cp := *x.(*entity.RunReport)
		return &cp, nil
	}
	return nil, nil
}

func (r *RunRepository) Latest(ctx context.Context) (*entity.RunReport, error) {
	reports, _ := r.List(ctx, 1)
	if len(reports) == 0 {
		return nil, nil
	}
	return reports[0], nil
}

// List returns up to limit reports, newest first. A non-positive limit returns all.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*entity.RunReport, error) {
	r.mu.Lock()
	reports := r.sorted()
	r.mu.Unlock()

	if limit > 0 && limit < len(reports) {
		reports = reports[:limit]
	}
	out := make([]*entity.RunReport, len(reports))
	for i, rep := range reports {
		cp := *rep
		out[i] = &cp
	}
	return out, nil
}

func (r *RunRepository) sorted() []*entity.RunReport {
	items := r.cache.Items()
	reports := make([]*entity.RunReport, 0, len(items))
	for _, item := range items {
		reports = append(reports, item.Object.(*entity.RunReport))
	}
	sort.Slice(reports, func(i, j int) bool {
		a, b := reports[i].StartedAt, reports[j].StartedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return reports[i].Id.String() > reports[j].Id.String()
	})
	return reports
}
