package dto

import (
	"fmt"
	"time"

	"ai-concept-engine/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type ClusterRequest struct {
	Id             string    `json:"id" validate:"required"`
	NoteIds        []string  `json:"note_ids"`
	CandidateNames []string  `json:"candidate_names"`
	DominantTags   []string  `json:"dominant_tags"`
	FolderPath     string    `json:"folder_path"`
	LinkDensity    float64   `json:"link_density" validate:"gte=0"`
	CreatedAt      time.Time `json:"created_at"`
	Reasons        []string  `json:"reasons"`
}

// RunRequest is one re-clustering pass. Titles may be partial; titles sent by
// earlier requests are remembered.
type RunRequest struct {
	Clusters []ClusterRequest  `json:"clusters" validate:"dive"`
	Titles   map[string]string `json:"titles"`
	Trigger  string            `json:"trigger"`
}

// Validate checks the request's struct tags. Used by the messaging and CLI
// paths; HTTP handlers go through serverutils.ValidateRequest.
func (r RunRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid run request: %w", err)
	}
	return nil
}

// RunMessage is what travels on the async run topic.
type RunMessage struct {
	RunId   uuid.UUID  `json:"run_id"`
	Request RunRequest `json:"request"`
}

type EnqueueRunResponse struct {
	RunId  uuid.UUID        `json:"run_id"`
	Status entity.RunStatus `json:"status"`
}

type ConceptResponse struct {
	Id                uuid.UUID               `json:"id"`
	CanonicalName     string                  `json:"canonical_name"`
	ClusterId         string                  `json:"cluster_id"`
	NoteIds           []string                `json:"note_ids"`
	QuizzabilityScore float64                 `json:"quizzability_score"`
	IsQuizzable       bool                    `json:"is_quizzable"`
	CreatedAt         time.Time               `json:"created_at"`
	LastUpdated       time.Time               `json:"last_updated"`
	EvolutionHistory  []entity.EvolutionEvent `json:"evolution_history"`
}

type ListConceptsQuery struct {
	Quizzable *bool  `query:"quizzable"`
	ClusterId string `query:"cluster_id"`
	Search    string `query:"q"`
	Page      int    `query:"page" validate:"gte=0"`
	PageSize  int    `query:"page_size" validate:"gte=0,lte=200"`
}

type ConceptListResponse struct {
	Items    []*ConceptResponse `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

type RunReportResponse struct {
	Id         uuid.UUID        `json:"id"`
	Trigger    string           `json:"trigger"`
	Status     entity.RunStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Stats      entity.RunStats  `json:"stats"`
}

type RunResponse struct {
	Report            *RunReportResponse        `json:"report"`
	Concepts          []*ConceptResponse        `json:"concepts"`
	RemovedConceptIds []uuid.UUID               `json:"removed_concept_ids"`
	Evolutions        []entity.ClusterEvolution `json:"evolutions"`
	Misfits           []string                  `json:"misfits"`
	BatchErrors       []string                  `json:"batch_errors"`
}

func ToClusterEntities(reqs []ClusterRequest) []*entity.Cluster {
	clusters := make([]*entity.Cluster, len(reqs))
	for i, r := range reqs {
		clusters[i] = &entity.Cluster{
			Id:             r.Id,
			NoteIds:        r.NoteIds,
			CandidateNames: r.CandidateNames,
			DominantTags:   r.DominantTags,
			FolderPath:     r.FolderPath,
			LinkDensity:    r.LinkDensity,
			CreatedAt:      r.CreatedAt,
			Reasons:        r.Reasons,
		}
	}
	return clusters
}

func NewConceptResponse(c *entity.TrackedConcept) *ConceptResponse {
	history := c.EvolutionHistory
	if history == nil {
		history = []entity.EvolutionEvent{}
	}
	return &ConceptResponse{
		Id:                c.Id,
		CanonicalName:     c.CanonicalName,
		ClusterId:         c.ClusterId,
		NoteIds:           c.NoteIds,
		QuizzabilityScore: c.QuizzabilityScore,
		IsQuizzable:       c.IsQuizzable(),
		CreatedAt:         c.Metadata.CreatedAt,
		LastUpdated:       c.Metadata.LastUpdated,
		EvolutionHistory:  history,
	}
}

func NewConceptResponses(concepts []*entity.TrackedConcept) []*ConceptResponse {
	out := make([]*ConceptResponse, len(concepts))
	for i, c := range concepts {
		out[i] = NewConceptResponse(c)
	}
	return out
}

func NewRunReportResponse(r *entity.RunReport) *RunReportResponse {
	if r == nil {
		return nil
	}
	return &RunReportResponse{
		Id:         r.Id,
		Trigger:    r.Trigger,
		Status:     r.Status,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Stats:      r.Stats,
	}
}
