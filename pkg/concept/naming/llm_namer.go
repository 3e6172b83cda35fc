package naming

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/pkg/llm"
)

const namingSystemPrompt = `You name clusters of personal notes for a spaced-repetition app.
For every cluster you receive, return one JSON object with:
- "clusterId": the id you were given, unchanged
- "canonicalName": a short, specific topic name (2-5 words)
- "quizzabilityScore": 0.0-1.0, how well the notes support flashcard questions
- "nonQuizzableReason": only when the score is below 0.4
- "suggestedMerges": ids of OTHER clusters in this request that cover the same topic and should be absorbed into this one
- "misfitNotes": [{"noteId": "...", "reason": "..."}] for listed notes that clearly do not belong; copy the noteId exactly as given, leave empty otherwise
Respond with a single JSON array and nothing else.`

// LLMNamer asks an LLM provider to name a batch of cluster summaries.
type LLMNamer struct {
	provider llm.LLMProvider
	logger   logger.ILogger
	options  []llm.Option
}

var _ Namer = (*LLMNamer)(nil)

func NewLLMNamer(provider llm.LLMProvider, log logger.ILogger, options ...llm.Option) *LLMNamer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &LLMNamer{
		provider: provider,
		logger:   log,
		options:  append([]llm.Option{llm.WithTemperature(0.2)}, options...),
	}
}

type promptNote struct {
	NoteId string `json:"noteId,omitempty"`
	Title  string `json:"title"`
}

type promptCluster struct {
	ClusterId      string       `json:"clusterId"`
	CandidateNames []string     `json:"candidateNames,omitempty"`
	Notes          []promptNote `json:"notes"`
	CommonTags     []string     `json:"commonTags,omitempty"`
	FolderPath     string       `json:"folderPath,omitempty"`
	NoteCount      int          `json:"noteCount"`
}

// BuildPrompt renders the user message for one batch. Sampled notes carry their
// ids so misfits can be reported against them.
func BuildPrompt(summaries []entity.ClusterSummary) (string, error) {
	clusters := make([]promptCluster, len(summaries))
	for i, s := range summaries {
		notes := make([]promptNote, 0, len(s.RepresentativeTitles))
		if len(s.RepresentativeNotes) > 0 {
			for _, n := range s.RepresentativeNotes {
				notes = append(notes, promptNote{NoteId: n.NoteId, Title: n.Title})
			}
		} else {
			for _, t := range s.RepresentativeTitles {
				notes = append(notes, promptNote{Title: t})
			}
		}
		clusters[i] = promptCluster{
			ClusterId:      s.ClusterId,
			CandidateNames: s.CandidateNames,
			Notes:          notes,
			CommonTags:     s.CommonTags,
			FolderPath:     s.FolderPath,
			NoteCount:      s.NoteCount,
		}
	}

	payload, err := json.MarshalIndent(clusters, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summaries: %w", err)
	}
	return fmt.Sprintf("Name these %d clusters:\n%s", len(summaries), payload), nil
}

func (n *LLMNamer) NameClusters(ctx context.Context, summaries []entity.ClusterSummary) (*Response, error) {
	if len(summaries) == 0 {
		return &Response{Results: []entity.ConceptNamingResult{}}, nil
	}

	prompt, err := BuildPrompt(summaries)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		{Role: "system", Content: namingSystemPrompt},
		{Role: "user", Content: prompt},
	}

	reply, err := n.provider.Chat(ctx, messages, n.options...)
	if err != nil {
		n.logger.Error(logger.ModuleNaming, "LLM naming call failed", map[string]interface{}{
			"clusters": len(summaries),
			"error":    err,
		})
		return nil, fmt.Errorf("naming call: %w", err)
	}

	parsed, err := ParseResponse(reply.Content)
	if err != nil {
		n.logger.Warn(logger.ModuleNaming, "Unparseable naming response", map[string]interface{}{
			"clusters": len(summaries),
			"error":    err.Error(),
			"length":   len(reply.Content),
		})
		return nil, err
	}

	parsed.Usage = entity.TokenUsage{
		InputTokens:  reply.Usage.InputTokens,
		OutputTokens: reply.Usage.OutputTokens,
	}

	n.logger.Debug(logger.ModuleNaming, "Batch named", map[string]interface{}{
		"clusters":      len(summaries),
		"results":       len(parsed.Results),
		"input_tokens":  parsed.Usage.InputTokens,
		"output_tokens": parsed.Usage.OutputTokens,
	})
	return parsed, nil
}
