package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Concept  ConceptConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables JetStream publishing
	RedisURL           string // empty keeps cluster snapshots in memory
	JWTSecret          string
	RunTopic           string
}

type DatabaseConfig struct {
	Connection string // empty keeps concepts in memory
}

type AIConfig struct {
	LLMProvider           string // "ollama", "openai" or "rules"
	LLMModel              string
	OllamaBaseURL         string
	OpenAIBaseURL         string
	OpenAIAPIKey          string
	InputPricePerMillion  float64
	OutputPricePerMillion float64
}

type ConceptConfig struct {
	RenameThreshold         float64
	RemapThreshold          float64
	BatchSize               int
	Concurrency             int
	MaxRepresentativeTitles int
	MaxCommonTags           int
	MaxTitleRunes           int
	RunHistory              int
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "concept-engine.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			RunTopic:           getEnv("CONCEPT_RUN_TOPIC", "concept.runs"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:           getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:              getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
			OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
			InputPricePerMillion:  getEnvAsFloat("LLM_INPUT_PRICE_PER_MILLION", 0),
			OutputPricePerMillion: getEnvAsFloat("LLM_OUTPUT_PRICE_PER_MILLION", 0),
		},
		Concept: ConceptConfig{
			RenameThreshold:         getEnvAsFloat("CONCEPT_RENAME_THRESHOLD", 0.6),
			RemapThreshold:          getEnvAsFloat("CONCEPT_REMAP_THRESHOLD", 0.2),
			BatchSize:               getEnvAsInt("CONCEPT_BATCH_SIZE", 10),
			Concurrency:             getEnvAsInt("CONCEPT_CONCURRENCY", 3),
			MaxRepresentativeTitles: getEnvAsInt("CONCEPT_MAX_TITLES", 5),
			MaxCommonTags:           getEnvAsInt("CONCEPT_MAX_TAGS", 5),
			MaxTitleRunes:           getEnvAsInt("CONCEPT_MAX_TITLE_RUNES", 80),
			RunHistory:              getEnvAsInt("CONCEPT_RUN_HISTORY", 20),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
