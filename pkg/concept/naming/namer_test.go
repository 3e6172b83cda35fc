package naming

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"ai-concept-engine/internal/entity"
	"ai-concept-engine/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply    string
	usage    llm.Usage
	err      error
	messages []llm.Message
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.ChatResponse, error) {
	f.messages = history
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply, Usage: f.usage}, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	resp, err := f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func summaries(ids ...string) []entity.ClusterSummary {
	out := make([]entity.ClusterSummary, len(ids))
	for i, id := range ids {
		out[i] = entity.ClusterSummary{ClusterId: id, RepresentativeTitles: []string{"title " + id}, NoteCount: 3}
	}
	return out
}

func TestLLMNamerParsesReplyAndUsage(t *testing.T) {
	provider := &fakeProvider{
		reply: "Here you go:\n" + `[{"clusterId":"c1","canonicalName":"Go Concurrency","quizzabilityScore":0.9}]`,
		usage: llm.Usage{InputTokens: 120, OutputTokens: 30},
	}

	resp, err := NewLLMNamer(provider, nil).NameClusters(context.Background(), summaries("c1"))

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Go Concurrency", resp.Results[0].CanonicalName)
	assert.Equal(t, entity.TokenUsage{InputTokens: 120, OutputTokens: 30}, resp.Usage)

	require.Len(t, provider.messages, 2)
	assert.Equal(t, "system", provider.messages[0].Role)
	assert.Contains(t, provider.messages[1].Content, `"clusterId": "c1"`)
	assert.Contains(t, provider.messages[1].Content, "Name these 1 clusters")
}

func TestLLMNamerErrors(t *testing.T) {
	_, err := NewLLMNamer(&fakeProvider{err: errors.New("connection refused")}, nil).
		NameClusters(context.Background(), summaries("c1"))
	assert.ErrorContains(t, err, "connection refused")

	_, err = NewLLMNamer(&fakeProvider{reply: "sorry, no idea"}, nil).
		NameClusters(context.Background(), summaries("c1"))
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestLLMNamerEmptyBatchSkipsCall(t *testing.T) {
	provider := &fakeProvider{err: errors.New("must not be called")}

	resp, err := NewLLMNamer(provider, nil).NameClusters(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Nil(t, provider.messages)
}

func TestRuleNamerInjectedRules(t *testing.T) {
	rules := []NamingRule{
		{Pattern: regexp.MustCompile(`(?i)rust`), Name: "Rust", Quizzability: 0.9},
		{Pattern: regexp.MustCompile(`(?i)diary`), Name: "Diary", Quizzability: 0.1, NonQuizzableReason: "private"},
	}
	input := []entity.ClusterSummary{
		{ClusterId: "c1", RepresentativeTitles: []string{"Rust ownership"}},
		{ClusterId: "c2", CommonTags: []string{"diary"}},
		{ClusterId: "c3", RepresentativeTitles: []string{"Borrow checker in rust"}},
		{ClusterId: "c4", CandidateNames: []string{"Gardening"}},
		{ClusterId: "c5", CommonTags: []string{"#machine-learning"}},
		{ClusterId: "c6"},
		{ClusterId: "c7"},
	}

	resp, err := NewRuleNamer(rules).NameClusters(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, resp.Results, 7)
	assert.Equal(t, "Rust", resp.Results[0].CanonicalName)
	assert.Equal(t, []string{"c3"}, resp.Results[0].SuggestedMerges)
	assert.Equal(t, "Diary", resp.Results[1].CanonicalName)
	assert.Equal(t, "private", resp.Results[1].NonQuizzableReason)
	assert.Equal(t, "Gardening", resp.Results[3].CanonicalName)
	assert.Equal(t, "Machine Learning", resp.Results[4].CanonicalName)
	assert.Equal(t, FallbackConceptName, resp.Results[5].CanonicalName)
	// Placeholder names are never merged together.
	assert.Empty(t, resp.Results[5].SuggestedMerges)
	assert.Equal(t, DefaultQuizzability, resp.Results[6].QuizzabilityScore)
	assert.Equal(t, entity.TokenUsage{}, resp.Usage)
}

func TestDefaultRulesAreFresh(t *testing.T) {
	a := DefaultRules()
	a[0].Name = "mutated"
	assert.NotEqual(t, "mutated", DefaultRules()[0].Name)

	resp, err := NewRuleNamer(DefaultRules()).NameClusters(context.Background(), []entity.ClusterSummary{
		{ClusterId: "c1", RepresentativeTitles: []string{"useEffect hooks cleanup"}},
		{ClusterId: "c2", RepresentativeTitles: []string{"Daily journal 2026-01-02"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "React Development", resp.Results[0].CanonicalName)
	assert.True(t, resp.Results[0].IsQuizzable())
	assert.False(t, resp.Results[1].IsQuizzable())
}

func TestRuleNamerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRuleNamer(DefaultRules()).NameClusters(ctx, summaries("c1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPromptListsEverySummary(t *testing.T) {
	prompt, err := BuildPrompt(summaries("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(prompt, `"clusterId"`))
}

func TestBuildPromptCarriesNoteIds(t *testing.T) {
	prompt, err := BuildPrompt([]entity.ClusterSummary{{
		ClusterId:            "c1",
		RepresentativeTitles: []string{"Pasta dough"},
		RepresentativeNotes:  []entity.NoteSample{{NoteId: "food/pasta.md", Title: "Pasta dough"}},
		NoteCount:            4,
	}})

	require.NoError(t, err)
	assert.Contains(t, prompt, `"noteId": "food/pasta.md"`)
	assert.Contains(t, prompt, `"title": "Pasta dough"`)
	assert.Equal(t, 1, strings.Count(prompt, "Pasta dough"))
}

func TestLLMNamerReturnsMisfitsForPromptedNotes(t *testing.T) {
	provider := &fakeProvider{
		reply: `[{"clusterId":"c1","canonicalName":"Baking","quizzabilityScore":0.8,"misfitNotes":[{"noteId":"react/hooks.md","reason":"not food"}]}]`,
	}
	batch := []entity.ClusterSummary{{
		ClusterId: "c1",
		RepresentativeNotes: []entity.NoteSample{
			{NoteId: "food/bread.md", Title: "Sourdough"},
			{NoteId: "react/hooks.md", Title: "useEffect cleanup"},
		},
		NoteCount: 2,
	}}

	resp, err := NewLLMNamer(provider, nil).NameClusters(context.Background(), batch)

	require.NoError(t, err)
	require.Len(t, provider.messages, 2)
	assert.Contains(t, provider.messages[1].Content, "react/hooks.md")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []entity.MisfitNote{{NoteId: "react/hooks.md", Reason: "not food"}}, resp.Results[0].MisfitNotes)
}
