package entity

import (
	"time"

	"github.com/google/uuid"
)

// QuizzableThreshold is the score at or above which a concept is considered quizzable.
const QuizzableThreshold = 0.4

// Cluster is one group of notes produced by the upstream clustering pass.
// The engine never mutates clusters.
type Cluster struct {
	Id             string    `json:"id"`
	NoteIds        []string  `json:"noteIds"`
	CandidateNames []string  `json:"candidateNames,omitempty"`
	DominantTags   []string  `json:"dominantTags,omitempty"`
	FolderPath     string    `json:"folderPath,omitempty"`
	LinkDensity    float64   `json:"linkDensity"`
	CreatedAt      time.Time `json:"createdAt"`
	Reasons        []string  `json:"reasons,omitempty"`
}

type EvolutionType string

const (
	EvolutionRename    EvolutionType = "rename"
	EvolutionRemap     EvolutionType = "remap"
	EvolutionDissolved EvolutionType = "dissolved"
)

// ClusterEvolution links one old cluster to at most one new cluster.
type ClusterEvolution struct {
	OldClusterId string        `json:"oldClusterId"`
	NewClusterId *string       `json:"newClusterId"`
	OverlapScore float64       `json:"overlapScore"`
	Type         EvolutionType `json:"type"`
}

// EvolutionEvent is one entry of a concept's audit trail.
type EvolutionEvent struct {
	Ts           time.Time     `json:"ts"`
	FromCluster  string        `json:"fromCluster"`
	ToCluster    *string       `json:"toCluster"`
	Type         EvolutionType `json:"type"`
	OverlapScore float64       `json:"overlapScore"`
}

type ConceptMetadata struct {
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TrackedConcept is the long-lived, identity-bearing concept.
// EvolutionHistory is append-only.
type TrackedConcept struct {
	Id                uuid.UUID        `json:"id"`
	CanonicalName     string           `json:"canonicalName"`
	NoteIds           []string         `json:"noteIds"`
	QuizzabilityScore float64          `json:"quizzabilityScore"`
	ClusterId         string           `json:"clusterId"`
	Metadata          ConceptMetadata  `json:"metadata"`
	EvolutionHistory  []EvolutionEvent `json:"evolutionHistory"`
}

func (c *TrackedConcept) IsQuizzable() bool {
	return c.QuizzabilityScore >= QuizzableThreshold
}

// Clone returns a deep copy so callers can change a concept without touching the original.
func (c *TrackedConcept) Clone() *TrackedConcept {
	if c == nil {
		return nil
	}
	out := *c
	out.NoteIds = append([]string(nil), c.NoteIds...)
	out.EvolutionHistory = make([]EvolutionEvent, len(c.EvolutionHistory))
	for i, ev := range c.EvolutionHistory {
		if ev.ToCluster != nil {
			to := *ev.ToCluster
			ev.ToCluster = &to
		}
		out.EvolutionHistory[i] = ev
	}
	return &out
}

type MisfitNote struct {
	NoteId string `json:"noteId"`
	Reason string `json:"reason"`
}

// ConceptNamingResult is what the naming collaborator returns for one cluster.
type ConceptNamingResult struct {
	ClusterId          string       `json:"clusterId"`
	CanonicalName      string       `json:"canonicalName"`
	QuizzabilityScore  float64      `json:"quizzabilityScore"`
	NonQuizzableReason string       `json:"nonQuizzableReason,omitempty"`
	SuggestedMerges    []string     `json:"suggestedMerges"`
	MisfitNotes        []MisfitNote `json:"misfitNotes"`
}

func (r ConceptNamingResult) IsQuizzable() bool {
	return r.QuizzabilityScore >= QuizzableThreshold
}

// ClusterSummary is the compact view of a cluster sent to the naming collaborator.
type ClusterSummary struct {
	ClusterId            string   `json:"clusterId"`
	CandidateNames       []string `json:"candidateNames"`
	RepresentativeTitles []string `json:"representativeTitles"`
	// RepresentativeNotes holds the same samples as RepresentativeTitles, with their note ids.
	RepresentativeNotes []NoteSample `json:"representativeNotes"`
	CommonTags          []string     `json:"commonTags"`
	FolderPath          string       `json:"folderPath"`
	NoteCount           int          `json:"noteCount"`
}

type NoteSample struct {
	NoteId string `json:"noteId"`
	Title  string `json:"title"`
}

type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
