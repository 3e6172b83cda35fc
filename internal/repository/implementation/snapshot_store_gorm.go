package implementation

import (
	"context"
	"errors"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/mapper"
	"ai-concept-engine/internal/model"
	"ai-concept-engine/internal/repository/contract"
	"ai-concept-engine/internal/repository/scope"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SnapshotStoreGorm appends one row per run and reads the newest.
type SnapshotStoreGorm struct {
	db     *gorm.DB
	mapper *mapper.ClusterMapper
}

func NewSnapshotStoreGorm(db *gorm.DB) contract.SnapshotStore {
	return &SnapshotStoreGorm{
		db:     db,
		mapper: mapper.NewClusterMapper(),
	}
}

func (s *SnapshotStoreGorm) LoadClusters(ctx context.Context) ([]*entity.Cluster, error) {
	var m model.ClusterSnapshot
	err := s.db.WithContext(ctx).Scopes(scope.NewestFirst).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.mapper.ToEntities(m.Clusters.Data()), nil
}

func (s *SnapshotStoreGorm) SaveClusters(ctx context.Context, clusters []*entity.Cluster) error {
	m := &model.ClusterSnapshot{
		Clusters: datatypes.NewJSONType(s.mapper.ToRecords(clusters)),
	}
	return s.db.WithContext(ctx).Create(m).Error
}
