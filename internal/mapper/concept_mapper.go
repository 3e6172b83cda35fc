package mapper

import (
	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/model"

	"gorm.io/datatypes"
)

type ConceptMapper struct{}

func NewConceptMapper() *ConceptMapper {
	return &ConceptMapper{}
}

func (m *ConceptMapper) ToEntity(c *model.TrackedConcept) *entity.TrackedConcept {
	if c == nil {
		return nil
	}

	noteIds := make([]string, len(c.NoteIds))
	copy(noteIds, c.NoteIds)

	history := make([]entity.EvolutionEvent, len(c.EvolutionHistory))
	for i, r := range c.EvolutionHistory {
		history[i] = entity.EvolutionEvent{
			Ts:           r.Ts,
			FromCluster:  r.FromCluster,
			ToCluster:    r.ToCluster,
			Type:         entity.EvolutionType(r.Type),
			OverlapScore: r.OverlapScore,
		}
	}

	return &entity.TrackedConcept{
		Id:                c.Id,
		CanonicalName:     c.CanonicalName,
		NoteIds:           noteIds,
		QuizzabilityScore: c.QuizzabilityScore,
		ClusterId:         c.ClusterId,
		Metadata: entity.ConceptMetadata{
			CreatedAt:   c.CreatedAt,
			LastUpdated: c.LastUpdated,
		},
		EvolutionHistory: history,
	}
}

func (m *ConceptMapper) ToModel(c *entity.TrackedConcept) *model.TrackedConcept {
	if c == nil {
		return nil
	}

	history := make([]model.ConceptEvolutionRecord, len(c.EvolutionHistory))
	for i, ev := range c.EvolutionHistory {
		history[i] = model.ConceptEvolutionRecord{
			Ts:           ev.Ts,
			FromCluster:  ev.FromCluster,
			ToCluster:    ev.ToCluster,
			Type:         string(ev.Type),
			OverlapScore: ev.OverlapScore,
		}
	}

	return &model.TrackedConcept{
		Id:                c.Id,
		CanonicalName:     c.CanonicalName,
		ClusterId:         c.ClusterId,
		QuizzabilityScore: c.QuizzabilityScore,
		NoteIds:           datatypes.JSONSlice[string](append([]string{}, c.NoteIds...)),
		EvolutionHistory:  datatypes.JSONSlice[model.ConceptEvolutionRecord](history),
		CreatedAt:         c.Metadata.CreatedAt,
		LastUpdated:       c.Metadata.LastUpdated,
	}
}

func (m *ConceptMapper) ToEntities(concepts []*model.TrackedConcept) []*entity.TrackedConcept {
	entities := make([]*entity.TrackedConcept, len(concepts))
	for i, c := range concepts {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ConceptMapper) ToModels(concepts []*entity.TrackedConcept) []*model.TrackedConcept {
	models := make([]*model.TrackedConcept, len(concepts))
	for i, c := range concepts {
		models[i] = m.ToModel(c)
	}
	return models
}

type ClusterMapper struct{}

func NewClusterMapper() *ClusterMapper {
	return &ClusterMapper{}
}

func (m *ClusterMapper) ToRecords(clusters []*entity.Cluster) []model.ClusterRecord {
	records := make([]model.ClusterRecord, 0, len(clusters))
	for _, c := range clusters {
		if c == nil {
			continue
		}
		records = append(records, model.ClusterRecord{
			Id:             c.Id,
			NoteIds:        c.NoteIds,
			CandidateNames: c.CandidateNames,
			DominantTags:   c.DominantTags,
			FolderPath:     c.FolderPath,
			LinkDensity:    c.LinkDensity,
			CreatedAt:      c.CreatedAt,
			Reasons:        c.Reasons,
		})
	}
	return records
}

func (m *ClusterMapper) ToEntities(records []model.ClusterRecord) []*entity.Cluster {
	clusters := make([]*entity.Cluster, len(records))
	for i, r := range records {
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
