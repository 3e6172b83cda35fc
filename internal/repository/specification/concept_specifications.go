package specification

import (
	"strings"

	"ai-concept-engine/internal/entity"

	"gorm.io/gorm"
)

// ByClusterId filters concepts by their current cluster
type ByClusterId struct {
	ClusterId string
}

func (s ByClusterId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cluster_id = ?", s.ClusterId)
}

// QuizzableConcepts keeps concepts on one side of the quizzability threshold
type QuizzableConcepts struct {
	Quizzable bool
}

func (s QuizzableConcepts) Apply(db *gorm.DB) *gorm.DB {
	if s.Quizzable {
		return db.Where("quizzability_score >= ?", entity.QuizzableThreshold)
	}
	return db.Where("quizzability_score < ?", entity.QuizzableThreshold)
}

// ConceptNameSearch is a case-insensitive substring match on the canonical name
type ConceptNameSearch struct {
	Query string
}

func (s ConceptNameSearch) Apply(db *gorm.DB) *gorm.DB {
	q := strings.TrimSpace(s.Query)
	if q == "" {
		return db
	}
	return db.Where("canonical_name ILIKE ?", "%"+escapeLike(q)+"%")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
