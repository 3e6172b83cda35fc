package naming

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"ai-concept-engine/internal/entity"

	"github.com/go-playground/validator/v10"
)

const DefaultQuizzability = 0.5

var (
	ErrNoJSON       = errors.New("no JSON payload found in naming response")
	ErrNotArray     = errors.New("naming response payload is not a JSON array")
	ErrInvalidJSON  = errors.New("naming response payload is not valid JSON")
	ErrMissingField = errors.New("naming result is missing clusterId or canonicalName")
)

var validate = validator.New()

// ProtocolError marks a naming batch whose exchange failed, either in transport
// or because the response was structurally broken.
type ProtocolError struct {
	BatchIndex int
	Err        error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("naming batch %d: %v", e.BatchIndex, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Response is what a naming collaborator returns for one batch.
type Response struct {
	Results []entity.ConceptNamingResult `json:"results"`
	Usage   entity.TokenUsage            `json:"usage"`
}

type wireResult struct {
	ClusterId          json.RawMessage `json:"clusterId"`
	CanonicalName      json.RawMessage `json:"canonicalName"`
	QuizzabilityScore  json.RawMessage `json:"quizzabilityScore"`
	NonQuizzableReason json.RawMessage `json:"nonQuizzableReason"`
	SuggestedMerges    json.RawMessage `json:"suggestedMerges"`
	MisfitNotes        json.RawMessage `json:"misfitNotes"`
}

type requiredFields struct {
	ClusterId     string `validate:"required"`
	CanonicalName string `validate:"required"`
}

type wireMisfit struct {
	NoteId string `json:"noteId" validate:"required"`
	Reason string `json:"reason"`
}

// ParseResponse extracts the first balanced JSON span from raw model output and
// decodes it into naming results. Structural problems are errors; bad optional
// fields degrade per element.
func ParseResponse(raw string) (*Response, error) {
	span, ok := FirstJSONSpan(raw)
	if !ok {
		return nil, ErrNoJSON
	}
	if span[0] != '[' {
		return nil, ErrNotArray
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(span), &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	results := make([]entity.ConceptNamingResult, 0, len(elements))
	for i, el := range elements {
		result, err := decodeResult(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		results = append(results, result)
	}
	return &Response{Results: results}, nil
}

func decodeResult(el json.RawMessage) (entity.ConceptNamingResult, error) {
	var w wireResult
	if err := json.Unmarshal(el, &w); err != nil {
		return entity.ConceptNamingResult{}, ErrMissingField
	}

	req := requiredFields{
		ClusterId:     strings.TrimSpace(decodeString(w.ClusterId)),
		CanonicalName: strings.TrimSpace(decodeString(w.CanonicalName)),
	}
	if err := validate.Struct(req); err != nil {
		return entity.ConceptNamingResult{}, ErrMissingField
	}

	result := entity.ConceptNamingResult{
		ClusterId:         req.ClusterId,
		CanonicalName:     req.CanonicalName,
		QuizzabilityScore: decodeScore(w.QuizzabilityScore),
		SuggestedMerges:   decodeStringList(w.SuggestedMerges),
		MisfitNotes:       decodeMisfits(w.MisfitNotes),
	}
	if !result.IsQuizzable() {
		result.NonQuizzableReason = decodeString(w.NonQuizzableReason)
	}
	return result, nil
}

func decodeString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func decodeScore(raw json.RawMessage) float64 {
	var f *float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil || f == nil {
		return DefaultQuizzability
	}
	return ClampScore(*f)
}

func decodeStringList(raw json.RawMessage) []string {
	out := []string{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		if s := strings.TrimSpace(decodeString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeMisfits(raw json.RawMessage) []entity.MisfitNote {
	out := []entity.MisfitNote{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var m wireMisfit
		if json.Unmarshal(item, &m) != nil {
			continue
		}
		m.NoteId = strings.TrimSpace(m.NoteId)
		if validate.Struct(m) != nil {
			continue
		}
		out = append(out, entity.MisfitNote{NoteId: m.NoteId, Reason: m.Reason})
	}
	return out
}

// ClampScore forces a quizzability score into [0, 1].
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return DefaultQuizzability
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// FirstJSONSpan returns the first balanced [...] or {...} substring of s.
// Brackets inside JSON strings are ignored. An opener that never balances is
// skipped and the search continues after it.
func FirstJSONSpan(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '[' && s[start] != '{' {
			continue
		}
		if end, ok := balancedEnd(s, start); ok {
			return s[start : end+1], true
		}
	}
	return "", false
}

func balancedEnd(s string, start int) (int, bool) {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
