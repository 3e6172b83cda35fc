package main

import (
	"log"
	"os"

	"ai-concept-engine/internal/model"
	"ai-concept-engine/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Running AutoMigrate for concept tables...")

	models := []interface{}{
		&model.TrackedConcept{},
		&model.ClusterSnapshot{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// GIN index for note membership lookups.
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_tracked_concepts_note_ids ON tracked_concepts USING GIN (note_ids);`
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Printf("Warn: Failed to create note_ids index: %v", err)
	}

	log.Println("✅ Success: Database migration completed.")
}
