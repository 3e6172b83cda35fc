package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConceptEvolutionRecord struct {
	Ts           time.Time `json:"ts"`
	FromCluster  string    `json:"fromCluster"`
	ToCluster    *string   `json:"toCluster"`
	Type         string    `json:"type"`
	OverlapScore float64   `json:"overlapScore"`
}

type TrackedConcept struct {
	Id                uuid.UUID                                   `gorm:"type:uuid;primaryKey"`
	CanonicalName     string                                      `gorm:"type:varchar(255);not null;index"`
	ClusterId         string                                      `gorm:"type:varchar(255);not null;index"`
	QuizzabilityScore float64                                     `gorm:"not null;default:0.5"`
	NoteIds           datatypes.JSONSlice[string]                 `gorm:"type:jsonb"`
	EvolutionHistory  datatypes.JSONSlice[ConceptEvolutionRecord] `gorm:"type:jsonb"`
	CreatedAt         time.Time
	LastUpdated       time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (TrackedConcept) TableName() string {
	return "tracked_concepts"
}

// ClusterSnapshot holds the cluster set of the last completed run.
type ClusterSnapshot struct {
	Id        uint                                `gorm:"primaryKey"`
	Clusters  datatypes.JSONType[[]ClusterRecord] `gorm:"type:jsonb"`
	CreatedAt time.Time                           `gorm:"autoCreateTime"`
}

type ClusterRecord struct {
	Id             string    `json:"id"`
	NoteIds        []string  `json:"noteIds"`
	CandidateNames []string  `json:"candidateNames,omitempty"`
	DominantTags   []string  `json:"dominantTags,omitempty"`
	FolderPath     string    `json:"folderPath,omitempty"`
	LinkDensity    float64   `json:"linkDensity"`
	CreatedAt      time.Time `json:"createdAt"`
	Reasons        []string  `json:"reasons,omitempty"`
}

func (ClusterSnapshot) TableName() string {
	return "cluster_snapshots"
}
