package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ActionCounts tallies what happened to previously tracked concepts.
type ActionCounts struct {
	Unchanged int `json:"unchanged"`
	Renamed   int `json:"renamed"`
	Remapped  int `json:"remapped"`
	Dissolved int `json:"dissolved"`
}

type RunStats struct {
	TotalClusters      int          `json:"totalClusters"`
	TotalConcepts      int          `json:"totalConcepts"`
	QuizzableConcepts  int          `json:"quizzableConcepts"`
	NonQuizzable       int          `json:"nonQuizzableConcepts"`
	NewConcepts        int          `json:"newConcepts"`
	CarriedConcepts    int          `json:"carriedConcepts"`
	FoldedConcepts     int          `json:"foldedConcepts"`
	DestroyedConcepts  int          `json:"destroyedConcepts"`
	Batches            int          `json:"batches"`
	FailedBatches      int          `json:"failedBatches"`
	FallbackNamed      int          `json:"fallbackNamed"`
	EmptyClusters      int          `json:"emptyClusters"`
	MergedClusters     int          `json:"mergedClusters"`
	MisfitNotesRemoved int          `json:"misfitNotesRemoved"`
	EstimatedTokens    int          `json:"estimatedPromptTokens"`
	Usage              TokenUsage   `json:"usage"`
	EstimatedCostUSD   float64      `json:"estimatedCostUsd"`
	Evolution          ActionCounts `json:"evolution"`
	NewClusters        int          `json:"newClusters"`
	DissolvedClusters  int          `json:"dissolvedClusters"`
	DurationMillis     int64        `json:"durationMillis"`
}

// RunReport records one re-clustering pass.
type RunReport struct {
	Id         uuid.UUID `json:"id"`
	Trigger    string    `json:"trigger"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Stats      RunStats  `json:"stats"`
}
