package implementation

import (
	"context"
	"errors"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/mapper"
	"ai-concept-engine/internal/model"
	"ai-concept-engine/internal/repository/contract"
	"ai-concept-engine/internal/repository/scope"
	"ai-concept-engine/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConceptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConceptMapper
}

func NewConceptRepository(db *gorm.DB) contract.ConceptRepository {
	return &ConceptRepositoryImpl{
		db:     db,
		mapper: mapper.NewConceptMapper(),
	}
}

// filterSpecs translates a filter into specifications. Pagination is left to the caller.
func (r *ConceptRepositoryImpl) filterSpecs(filter contract.ConceptFilter) specification.All {
	var specs specification.All
	if filter.Quizzable != nil {
		specs = append(specs, specification.QuizzableConcepts{Quizzable: *filter.Quizzable})
	}
	if filter.ClusterId != "" {
		specs = append(specs, specification.ByClusterId{ClusterId: filter.ClusterId})
	}
	if filter.Search != "" {
		specs = append(specs, specification.ConceptNameSearch{Query: filter.Search})
	}
	return specs
}

func (r *ConceptRepositoryImpl) Sync(ctx context.Context, upserts []*entity.TrackedConcept, deletes []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.save(tx, upserts); err != nil {
			return err
		}
		return r.delete(tx, deletes)
	})
}

func (r *ConceptRepositoryImpl) SaveAll(ctx context.Context, concepts []*entity.TrackedConcept) error {
	return r.save(r.db.WithContext(ctx), concepts)
}

func (r *ConceptRepositoryImpl) DeleteByIds(ctx context.Context, ids []uuid.UUID) error {
	return r.delete(r.db.WithContext(ctx), ids)
}

func (r *ConceptRepositoryImpl) save(db *gorm.DB, concepts []*entity.TrackedConcept) error {
	if len(concepts) == 0 {
		return nil
	}
	// Save on a keyed slice upserts every column, which also clears deleted_at.
	return db.Unscoped().Save(r.mapper.ToModels(concepts)).Error
}

func (r *ConceptRepositoryImpl) delete(db *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return specification.ByIDs{IDs: ids}.Apply(db).Delete(&model.TrackedConcept{}).Error
}

func (r *ConceptRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.TrackedConcept, error) {
	var m model.TrackedConcept
	query := specification.ByID{ID: id}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ConceptRepositoryImpl) FindAll(ctx context.Context, filter contract.ConceptFilter) ([]*entity.TrackedConcept, error) {
	var models []*model.TrackedConcept
	specs := r.filterSpecs(filter)
	if filter.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: filter.Limit, Offset: filter.Offset})
	}
	query := specs.Apply(r.db.WithContext(ctx).Scopes(scope.OldestFirst))
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ConceptRepositoryImpl) Count(ctx context.Context, filter contract.ConceptFilter) (int64, error) {
	var count int64
	query := r.filterSpecs(filter).Apply(r.db.WithContext(ctx).Model(&model.TrackedConcept{}))
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
