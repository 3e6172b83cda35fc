package memory

import (
	"context"

	"ai-concept-engine/internal/entity"

	"github.com/patrickmn/go-cache"
)

const snapshotKey = "clusters"

type SnapshotStore struct {
	cache *cache.Cache
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *SnapshotStore) LoadClusters(ctx context.Context) ([]*entity.Cluster, error) {
	if x, found := s.cache.Get(snapshotKey); found {
		return copyClusters(x.([]*entity.Cluster)), nil
	}
	return nil, nil
}

func (s *SnapshotStore) SaveClusters(ctx context.Context, clusters []*entity.Cluster) error {
	s.cache.Set(snapshotKey, copyClusters(clusters), cache.NoExpiration)
	return nil
}

func copyClusters(clusters []*entity.Cluster) []*entity.Cluster {
	out := make([]*entity.Cluster, 0, len(clusters))
	for _, c := range clusters {
		if c == nil {
			continue
		}
		cp := *c
		cp.NoteIds = append([]string(nil), c.NoteIds...)
		out = append(out, &cp)
	}
	return out
}
