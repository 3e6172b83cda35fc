package pipeline

import (
	"fmt"

	"ai-concept-engine/pkg/concept/evolution"
	"ai-concept-engine/pkg/concept/summary"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	BatchSize   int `validate:"gte=1"`
	Concurrency int `validate:"gte=1"`

	Summary   summary.Config
	Evolution evolution.Config

	// USD per million tokens.
	InputPricePerMillion  float64 `validate:"gte=0"`
	OutputPricePerMillion float64 `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   10,
		Concurrency: 3,
		Summary:     summary.DefaultConfig(),
		Evolution:   evolution.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return c.Evolution.Validate()
}

// EstimateCost prices token usage with the configured rates.
func (c Config) EstimateCost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPricePerMillion + float64(outputTokens)*c.OutputPricePerMillion) / 1_000_000
}
