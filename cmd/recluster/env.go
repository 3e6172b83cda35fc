package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ai-concept-engine/internal/bootstrap"
	"ai-concept-engine/internal/config"
	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/repository/contract"
	"ai-concept-engine/internal/repository/memory"
	"ai-concept-engine/pkg/database"

	"gorm.io/gorm"
)

// stateFile lets the CLI carry concepts between invocations without a database.
type stateFile struct {
	Clusters []*entity.Cluster        `json:"clusters"`
	Concepts []*entity.TrackedConcept `json:"concepts"`
}

type stores struct {
	concepts  contract.ConceptRepository
	snapshots contract.SnapshotStore
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config, log logger.ILogger, statePath string) (*stores, error) {
	if statePath != "" {
		concepts := memory.NewConceptRepository()
		snapshots := memory.NewSnapshotStore()
		state, err := readState(statePath)
		if err != nil {
			return nil, err
		}
		if err := concepts.SaveAll(ctx, state.Concepts); err != nil {
			return nil, err
		}
		if err := snapshots.SaveClusters(ctx, state.Clusters); err != nil {
			return nil, err
		}
		return &stores{concepts: concepts, snapshots: snapshots, close: func() {}}, nil
	}

	var db *gorm.DB
	if cfg.Database.Connection != "" {
		conn, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		db = conn
	}
	rdb := bootstrap.NewRedisClient(cfg.App.RedisURL, log)
	concepts, snapshots := bootstrap.Stores(db, rdb)
	return &stores{
		concepts:  concepts,
		snapshots: snapshots,
		close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
		},
	}, nil
}

func readState(path string) (*stateFile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &stateFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	var state stateFile
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	return &state, nil
}

func writeState(ctx context.Context, path string, s *stores) error {
	concepts, err := s.concepts.FindAll(ctx, contract.ConceptFilter{})
	if err != nil {
		return err
	}
	clusters, err := s.snapshots.LoadClusters(ctx)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(stateFile{Clusters: clusters, Concepts: concepts}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
