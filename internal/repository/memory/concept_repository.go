package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ConceptRepository keeps tracked concepts in process memory. Stored values are
// cloned on the way in and out.
type ConceptRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewConceptRepository() *ConceptRepository {
	// Concepts never expire; no janitor needed.
	return &ConceptRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *ConceptRepository) Sync(ctx context.Context, upserts []*entity.TrackedConcept, deletes []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save(upserts)
	r.delete(deletes)
	return nil
}

func (r *ConceptRepository) SaveAll(ctx context.Context, concepts []*entity.TrackedConcept) error {
	return r.Sync(ctx, concepts, nil)
}

func (r *ConceptRepository) DeleteByIds(ctx context.Context, ids []uuid.UUID) error {
	return r.Sync(ctx, nil, ids)
}

func (r *ConceptRepository) save(concepts []*entity.TrackedConcept) {
	for _, c := range concepts {
		if c == nil {
			continue
		}
		r.cache.Set(c.Id.String(), c.Clone(), cache.NoExpiration)
	}
}

func (r *ConceptRepository) delete(ids []uuid.UUID) {
	for _, id := range ids {
		r.cache.Delete(id.String())
	}
}

func (r *ConceptRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.TrackedConcept, error) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*entity.TrackedConcept).Clone(), nil
	}
	return nil, nil
}

func (r *ConceptRepository) FindAll(ctx context.Context, filter contract.ConceptFilter) ([]*entity.TrackedConcept, error) {
	matched := r.matching(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*entity.TrackedConcept{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	out := make([]*entity.TrackedConcept, len(matched))
	for i, c := range matched {
		out[i] = c.Clone()
	}
	return out, nil
}

func (r *ConceptRepository) Count(ctx context.Context, filter contract.ConceptFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

// matching returns the stored concepts that pass the filter, oldest first.
func (r *ConceptRepository) matching(filter contract.ConceptFilter) []*entity.TrackedConcept {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*entity.TrackedConcept
	for _, item := range r.cache.Items() {
		c := item.Object.(*entity.TrackedConcept)
		if filter.Quizzable != nil && c.IsQuizzable() != *filter.Quizzable {
			continue
		}
		if filter.ClusterId != "" && c.ClusterId != filter.ClusterId {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.CanonicalName), search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Metadata.CreatedAt, out[j].Metadata.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Id.String() < out[j].Id.String()
	})
	return out
}
