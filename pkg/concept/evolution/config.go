package evolution

import (
	"fmt"

	"ai-concept-engine/internal/entity"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultRenameThreshold = 0.6
	DefaultRemapThreshold  = 0.2
)

// Config holds the classification thresholds for one detection run.
type Config struct {
	RenameThreshold float64 `validate:"gte=0,lte=1,gtefield=RemapThreshold"`
	RemapThreshold  float64 `validate:"gte=0,lte=1"`
	// Workers bounds the fan-out over old clusters. Zero means GOMAXPROCS.
	Workers int `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		RenameThreshold: DefaultRenameThreshold,
		RemapThreshold:  DefaultRemapThreshold,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid evolution config: %w", err)
	}
	return nil
}

// Classify maps an overlap score to an evolution type.
func (c Config) Classify(score float64) entity.EvolutionType {
	switch {
	case score >= c.RenameThreshold:
		return entity.EvolutionRename
	case score >= c.RemapThreshold:
		return entity.EvolutionRemap
	default:
		return entity.EvolutionDissolved
	}
}
