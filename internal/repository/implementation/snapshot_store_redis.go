package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/mapper"
	"ai-concept-engine/internal/model"
	"ai-concept-engine/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const DefaultSnapshotKey = "concept:snapshot:clusters"

// SnapshotStoreRedis keeps the previous cluster set as one JSON blob.
type SnapshotStoreRedis struct {
	rdb    *redis.Client
	key    string
	mapper *mapper.ClusterMapper
}

func NewSnapshotStoreRedis(rdb *redis.Client, key string) contract.SnapshotStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStoreRedis{
		rdb:    rdb,
		key:    key,
		mapper: mapper.NewClusterMapper(),
	}
}

func (s *SnapshotStoreRedis) LoadClusters(ctx context.Context) ([]*entity.Cluster, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cluster snapshot: %w", err)
	}
	var records []model.ClusterRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode cluster snapshot: %w", err)
	}
	return s.mapper.ToEntities(records), nil
}

func (s *SnapshotStoreRedis) SaveClusters(ctx context.Context, clusters []*entity.Cluster) error {
	raw, err := json.Marshal(s.mapper.ToRecords(clusters))
	if err != nil {
		return fmt.Errorf("encode cluster snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save cluster snapshot: %w", err)
	}
	return nil
}
