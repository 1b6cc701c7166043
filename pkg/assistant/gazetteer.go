package assistant

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CitySource returns the known city names
type CitySource func(ctx context.Context) ([]string, error)

// Gazetteer finds city names from a fixed list inside a message.
// It stands in for the NER service when none is configured.
type Gazetteer struct {
	source CitySource
}

// NewGazetteer creates a gazetteer over the cities returned by source
func NewGazetteer(source CitySource) *Gazetteer {
	return &Gazetteer{source: source}
}

type span struct {
	start, end int
}

// Entities returns every known city mentioned in text, labelled GPE, in the
// order they appear. Overlapping names resolve to the longest match.
func (g *Gazetteer) Entities(ctx context.Context, text string) ([]Entity, error) {
	cities, err := g.source(ctx)
	if err != nil {
		return nil, err
	}
	return Match(text, cities), nil
}

// Warm waits until the city list is available
func (g *Gazetteer) Warm(ctx context.Context) error {
	_, err := g.source(ctx)
	return err
}

// Match is the lookup behind Gazetteer.Entities
func Match(text string, cities []string) []Entity {
	lower := strings.ToLower(text)
	var spans []span
	for _, city := range cities {
		name := strings.ToLower(strings.TrimSpace(city))
		if name == "" {
			continue
		}
		for offset := 0; ; {
			i := strings.Index(lower[offset:], name)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(name)
			if atWordBoundary(lower, start, end) {
				spans = append(spans, span{start, end})
			}
			offset = start + 1
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	// case folding can change byte lengths; fall back to the folded text then
	original := text
	if len(original) != len(lower) {
		original = lower
	}

	entities := []Entity{}
	last := -1
	for _, s := range spans {
		if s.start < last {
			continue
		}
		entities = append(entities, Entity{Text: original[s.start:s.end], Label: LabelGPE})
		last = s.end
	}
	return entities
}

func atWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'
}
