// Package summary turns raw clusters into compact summaries for the naming collaborator.
package summary

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"ai-concept-engine/internal/entity"
)

const (
	DefaultMaxRepresentativeTitles = 5
	DefaultMaxCommonTags           = 5
	DefaultMaxTitleRunes           = 80
)

// TitleLookup resolves a note id to its title.
type TitleLookup interface {
	Title(noteId string) (string, bool)
}

// MapTitleLookup is a TitleLookup over a plain map.
type MapTitleLookup map[string]string

func (m MapTitleLookup) Title(noteId string) (string, bool) {
	title, ok := m[noteId]
	return title, ok
}

type Config struct {
	MaxRepresentativeTitles int `validate:"gte=1"`
	MaxCommonTags           int `validate:"gte=0"`
	MaxTitleRunes           int `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		MaxRepresentativeTitles: DefaultMaxRepresentativeTitles,
		MaxCommonTags:           DefaultMaxCommonTags,
		MaxTitleRunes:           DefaultMaxTitleRunes,
	}
}

// Summarize builds one summary per cluster, in input order.
// Notes without a title are skipped from the samples but still counted.
func Summarize(clusters []*entity.Cluster, lookup TitleLookup, cfg Config) []entity.ClusterSummary {
	summaries := make([]entity.ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		if c == nil {
			continue
		}

		var titles, noteIds []string
		if lookup != nil {
			for _, noteId := range c.NoteIds {
				title, ok := lookup.Title(noteId)
				if !ok || strings.TrimSpace(title) == "" {
					continue
				}
				titles = append(titles, truncateRunes(strings.TrimSpace(title), cfg.MaxTitleRunes))
				noteIds = append(noteIds, noteId)
			}
		}

		picked := SelectDiverse(titles, cfg.MaxRepresentativeTitles)
		samples := make([]entity.NoteSample, len(picked))
		sampleTitles := make([]string, len(picked))
		for i, idx := range picked {
			samples[i] = entity.NoteSample{NoteId: noteIds[idx], Title: titles[idx]}
			sampleTitles[i] = titles[idx]
		}

		tags := c.DominantTags
		if cfg.MaxCommonTags >= 0 && len(tags) > cfg.MaxCommonTags {
			tags = tags[:cfg.MaxCommonTags]
		}

		summaries = append(summaries, entity.ClusterSummary{
			ClusterId:            c.Id,
			CandidateNames:       nonNil(c.CandidateNames),
			RepresentativeTitles: sampleTitles,
			RepresentativeNotes:  samples,
			CommonTags:           append([]string{}, tags...),
			FolderPath:           c.FolderPath,
			NoteCount:            len(c.NoteIds),
		})
	}
	return summaries
}

// SelectDiverseTitles keeps the first title, then repeatedly adds the title whose
// minimum word overlap with the titles already picked is lowest. Ties keep input order.
func SelectDiverseTitles(titles []string, max int) []string {
	picked := SelectDiverse(titles, max)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = titles[idx]
	}
	return out
}

// SelectDiverse is SelectDiverseTitles returning indexes into titles, in pick order.
func SelectDiverse(titles []string, max int) []int {
	if max <= 0 || len(titles) == 0 {
		return []int{}
	}
	if len(titles) <= max {
		all := make([]int, len(titles))
		for i := range all {
			all[i] = i
		}
		return all
	}

	words := make([]map[string]struct{}, len(titles))
	for i, t := range titles {
		words[i] = wordSet(t)
	}

	selected := []int{0}
	used := make([]bool, len(titles))
	used[0] = true
	// nearest[i] is the minimum overlap of title i with the selected titles.
	nearest := make([]float64, len(titles))
	for i := range titles {
		nearest[i] = WordOverlap(words[i], words[0])
	}

	for len(selected) < max {
		pick := -1
		for i := range titles {
			if used[i] {
				continue
			}
			if pick < 0 || nearest[i] < nearest[pick] {
				pick = i
			}
		}
		if pick < 0 {
			break
		}
		used[pick] = true
		selected = append(selected, pick)
		for i := range titles {
			if !used[i] {
				if s := WordOverlap(words[i], words[pick]); s < nearest[i] {
					nearest[i] = s
				}
			}
		}
	}

	return selected
}

// WordOverlap is the Jaccard index of two lowercase word sets.
func WordOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		set[w] = struct{}{}
	}
	return set
}

// EstimateTokens gives a rough token count for a summary (about four characters per token).
func EstimateTokens(s entity.ClusterSummary) int {
	chars := len(s.ClusterId) + len(s.FolderPath) + 48
	for _, group := range [][]string{s.CandidateNames, s.RepresentativeTitles, s.CommonTags} {
		for _, v := range group {
			chars += len(v) + 4
		}
	}
	for _, n := range s.RepresentativeNotes {
		chars += len(n.NoteId) + 12
	}
	return (chars + 3) / 4
}

// Batch splits summaries into order-preserving chunks of at most size items.
func Batch(summaries []entity.ClusterSummary, size int) [][]entity.ClusterSummary {
	if len(summaries) == 0 {
		return [][]entity.ClusterSummary{}
	}
	if size <= 0 {
		size = len(summaries)
	}
	batches := make([][]entity.ClusterSummary, 0, (len(summaries)+size-1)/size)
	for start := 0; start < len(summaries); start += size {
		end := start + size
		if end > len(summaries) {
			end = len(summaries)
		}
		batches = append(batches, summaries[start:end:end])
	}
	return batches
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
