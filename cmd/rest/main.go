package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-concept-engine/internal/bootstrap"
	"ai-concept-engine/internal/config"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/server"
	"ai-concept-engine/internal/tracer"
	"ai-concept-engine/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Tracer (no-op unless OTEL_ENABLED)
	shutdownTracer := tracer.InitTracer(tracer.Config{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
	}, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Database (optional, concepts stay in memory without it)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background consumers
	if err := container.ConsumerService.Consume(ctx); err != nil {
		sysLogger.Error(logger.ModuleConcept, "Run consumer failed to start", map[string]interface{}{"error": err})
	}
	if container.NatsSubscriber != nil {
		if err := container.ConsumerService.ConsumeClusterUpdates(ctx, container.NatsSubscriber); err != nil {
			sysLogger.Error(logger.ModuleEvents, "Cluster update subscription failed", map[string]interface{}{"error": err})
		}
	}

	// 6. Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		sysLogger.Error(logger.ModuleHTTP, "Server stopped", map[string]interface{}{"error": err})
	}
}
