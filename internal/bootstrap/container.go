package bootstrap

import (
	"context"
	"fmt"

	"ai-concept-engine/internal/config"
	"ai-concept-engine/internal/controller"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/pkg/serverutils"
	"ai-concept-engine/internal/repository/contract"
	"ai-concept-engine/internal/repository/implementation"
	"ai-concept-engine/internal/repository/memory"
	"ai-concept-engine/internal/service"
	"ai-concept-engine/pkg/concept/evolution"
	"ai-concept-engine/pkg/concept/naming"
	"ai-concept-engine/pkg/concept/pipeline"
	"ai-concept-engine/pkg/concept/summary"
	"ai-concept-engine/pkg/events"
	"ai-concept-engine/pkg/llm/factory"

	pktNats "ai-concept-engine/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventTopic = "concept.events"

type Container struct {
	Logger logger.ILogger

	ConceptController controller.IConceptController

	// Background services, started by main.
	ConceptService  service.IConceptService
	ConsumerService service.IConsumerService
	NatsSubscriber  *pktNats.Subscriber

	closers []func()
}

// PipelineConfig maps environment settings onto the engine config.
func PipelineConfig(cfg *config.Config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.BatchSize = cfg.Concept.BatchSize
	pc.Concurrency = cfg.Concept.Concurrency
	pc.Summary = summary.Config{
		MaxRepresentativeTitles: cfg.Concept.MaxRepresentativeTitles,
		MaxCommonTags:           cfg.Concept.MaxCommonTags,
		MaxTitleRunes:           cfg.Concept.MaxTitleRunes,
	}
	pc.Evolution = evolution.Config{
		RenameThreshold: cfg.Concept.RenameThreshold,
		RemapThreshold:  cfg.Concept.RemapThreshold,
		Workers:         cfg.Concept.Concurrency,
	}
	pc.InputPricePerMillion = cfg.Ai.InputPricePerMillion
	pc.OutputPricePerMillion = cfg.Ai.OutputPricePerMillion
	return pc
}

// NewNamer picks the naming collaborator. "rules" needs no model server.
func NewNamer(cfg *config.Config, log logger.ILogger) (naming.Namer, error) {
	if cfg.Ai.LLMProvider == "rules" {
		return naming.NewRuleNamer(naming.DefaultRules()), nil
	}

	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}
	provider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:  cfg.Ai.LLMProvider,
		ModelName: cfg.Ai.LLMModel,
		BaseURL:   baseURL,
		APIKey:    cfg.Ai.OpenAIAPIKey,
	})
	if err != nil {
		return nil, err
	}
	return naming.NewLLMNamer(provider, log), nil
}

// Stores picks gorm when a database is given, memory otherwise. Redis, when
// reachable, holds the cluster snapshot.
func Stores(db *gorm.DB, rdb *redis.Client) (contract.ConceptRepository, contract.SnapshotStore) {
	var concepts contract.ConceptRepository = memory.NewConceptRepository()
	var snapshots contract.SnapshotStore = memory.NewSnapshotStore()
	if db != nil {
		concepts = implementation.NewConceptRepository(db)
		snapshots = implementation.NewSnapshotStoreGorm(db)
	}
	if rdb != nil {
		snapshots = implementation.NewSnapshotStoreRedis(rdb, "")
	}
	return concepts, snapshots
}

func NewRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(logger.ModuleConcept, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn(logger.ModuleConcept, "Redis unreachable, snapshots stay local", map[string]interface{}{"error": err})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	publishers := events.MultiPublisher{events.NewChannelPublisher(pubSub, eventTopic)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(logger.ModuleEvents, "NATS publisher disabled", map[string]interface{}{"error": err})
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(logger.ModuleEvents, "NATS subscriber disabled", map[string]interface{}{"error": err})
		} else {
			c.NatsSubscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Storage
	rdb := NewRedisClient(cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	concepts, snapshots := Stores(db, rdb)

	// Engine
	namer, err := NewNamer(cfg, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("naming collaborator: %w", err)
	}
	coordinator, err := pipeline.NewCoordinator(namer, PipelineConfig(cfg), sysLogger)
	if err != nil {
		return nil, err
	}
	sysLogger.Info(logger.ModuleConcept, "Concept engine ready", map[string]interface{}{
		"namer":    cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
		"database": db != nil,
		"redis":    rdb != nil,
	})

	// Services
	c.ConceptService = service.NewConceptService(service.ConceptServiceDeps{
		Coordinator: coordinator,
		Concepts:    concepts,
		Snapshots:   snapshots,
		Runs:        memory.NewRunRepository(cfg.Concept.RunHistory),
		Titles:      memory.NewTitleCache(memory.DefaultTitleTTL),
		Publisher:   publishers,
		RunQueue:    pubSub,
		RunTopic:    cfg.App.RunTopic,
		Logger:      sysLogger,
	})
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.RunTopic, c.ConceptService, sysLogger)

	// Controllers
	c.ConceptController = controller.NewConceptController(c.ConceptService, serverutils.NewJwtMiddleware(cfg.App.JWTSecret))

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
