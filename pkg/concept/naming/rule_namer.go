package naming

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"ai-concept-engine/internal/entity"
)

// NamingRule maps a pattern over a summary's titles, tags and candidate names to a concept name.
type NamingRule struct {
	Pattern            *regexp.Regexp
	Name               string
	Quizzability       float64
	NonQuizzableReason string
}

// DefaultRules returns a fresh rule set on every call.
func DefaultRules() []NamingRule {
	return []NamingRule{
		{Pattern: regexp.MustCompile(`(?i)\b(react|jsx|hooks?|redux)\b`), Name: "React Development", Quizzability: 0.8},
		{Pattern: regexp.MustCompile(`(?i)\b(golang|goroutines?|go modules?)\b`), Name: "Go Programming", Quizzability: 0.8},
		{Pattern: regexp.MustCompile(`(?i)\b(sql|postgres(ql)?|database|indexes|indexing)\b`), Name: "Databases", Quizzability: 0.75},
		{Pattern: regexp.MustCompile(`(?i)\b(kubernetes|k8s|docker|containers?)\b`), Name: "Container Infrastructure", Quizzability: 0.7},
		{Pattern: regexp.MustCompile(`(?i)\b(recipes?|cooking|baking)\b`), Name: "Cooking", Quizzability: 0.5},
		{Pattern: regexp.MustCompile(`(?i)\b(meetings?|standup|agenda|1:1)\b`), Name: "Meeting Notes", Quizzability: 0.2, NonQuizzableReason: "meeting records are time-bound"},
		{Pattern: regexp.MustCompile(`(?i)\b(journal|diary|daily)\b`), Name: "Daily Journal", Quizzability: 0.1, NonQuizzableReason: "personal log entries"},
		{Pattern: regexp.MustCompile(`(?i)\b(todo|groceries|shopping)\b`), Name: "Task Lists", Quizzability: 0.05, NonQuizzableReason: "checklists are not study material"},
	}
}

// RuleNamer names clusters offline with an injected rule set. Clusters in the
// same batch that end up with the same name are suggested as merges into the
// first of them.
type RuleNamer struct {
	rules []NamingRule
}

var _ Namer = (*RuleNamer)(nil)

func NewRuleNamer(rules []NamingRule) *RuleNamer {
	return &RuleNamer{rules: append([]NamingRule(nil), rules...)}
}

func (n *RuleNamer) NameClusters(ctx context.Context, summaries []entity.ClusterSummary) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]entity.ConceptNamingResult, 0, len(summaries))
	firstByName := make(map[string]int)
	for _, s := range summaries {
		result := n.nameOne(s)
		key := strings.ToLower(result.CanonicalName)
		if idx, ok := firstByName[key]; ok && result.CanonicalName != FallbackConceptName {
			results[idx].SuggestedMerges = append(results[idx].SuggestedMerges, s.ClusterId)
		} else {
			firstByName[key] = len(results)
		}
		results = append(results, result)
	}
	return &Response{Results: results}, nil
}

func (n *RuleNamer) nameOne(s entity.ClusterSummary) entity.ConceptNamingResult {
	result := entity.ConceptNamingResult{
		ClusterId:         s.ClusterId,
		QuizzabilityScore: DefaultQuizzability,
		SuggestedMerges:   []string{},
		MisfitNotes:       []entity.MisfitNote{},
	}

	haystack := strings.Join(append(append(append([]string{}, s.RepresentativeTitles...), s.CommonTags...), s.CandidateNames...), " ")
	for _, rule := range n.rules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(haystack) {
			continue
		}
		result.CanonicalName = rule.Name
		result.QuizzabilityScore = ClampScore(rule.Quizzability)
		if !result.IsQuizzable() {
			result.NonQuizzableReason = rule.NonQuizzableReason
		}
		return result
	}

	result.CanonicalName = firstNonEmpty(s.CandidateNames)
	if result.CanonicalName == "" {
		result.CanonicalName = titleCase(firstNonEmpty(s.CommonTags))
	}
	if result.CanonicalName == "" {
		result.CanonicalName = FallbackConceptName
	}
	return result
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func titleCase(tag string) string {
	words := strings.FieldsFunc(strings.TrimPrefix(tag, "#"), func(r rune) bool {
		return r == '-' || r == '_' || r == '/' || r == ' '
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
