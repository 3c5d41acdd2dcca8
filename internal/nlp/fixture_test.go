package nlp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FreiFahren/nlp-service/internal/ner"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

// testTopology is a small cut of the Berlin network, enough for every
// correction rule: an interchange (Osloerstraße), a ring pair sharing track,
// a single-line station (Rathaus Steglitz), a synonym (Zoo) and a tram line.
func testTopology(t *testing.T) *topology.Topology {
	t.Helper()

	stations := map[string]topology.Station{
		"U-Wit":  {Name: "Wittenau", Lines: []string{"U8"}},
		"U-Osl":  {Name: "Osloerstraße", Lines: []string{"U8", "U9"}},
		"U-Alex": {Name: "Alexanderplatz", Lines: []string{"U8", "U2", "12"}},
		"U-Her":  {Name: "Hermannplatz", Lines: []string{"U8"}},
		"SU-Hst": {Name: "Hermannstraße", Lines: []string{"U8", "S41", "S42"}},
		"U-Teg":  {Name: "Alt-Tegel", Lines: []string{"U6"}},
		"U-Ksp":  {Name: "Kurt-Schumacher-Platz", Lines: []string{"U6"}},
		"U-Meh":  {Name: "Mehringdamm", Lines: []string{"U6"}},
		"SU-Tmp": {Name: "Tempelhof", Lines: []string{"U6", "S41", "S42"}},
		"U-Mar":  {Name: "Alt-Mariendorf", Lines: []string{"U6"}},
		"U-Zoo":  {Name: "Zoologischer Garten", Lines: []string{"U9", "U2", "12"}},
		"U-Rsg":  {Name: "Rathaus Steglitz", Lines: []string{"U9"}},
		"S-Suk":  {Name: "Südkreuz", Lines: []string{"S41", "S42"}},
	}

	lines := map[string][]string{
		"U8":  {"U-Wit", "U-Osl", "U-Alex", "U-Her", "SU-Hst"},
		"U6":  {"U-Teg", "U-Ksp", "U-Meh", "SU-Tmp", "U-Mar"},
		"U9":  {"U-Osl", "U-Zoo", "U-Rsg"},
		"U2":  {"U-Zoo", "U-Alex"},
		"S41": {"SU-Tmp", "SU-Hst", "S-Suk"},
		"S42": {"SU-Tmp", "SU-Hst", "S-Suk"},
		"12":  {"U-Alex", "U-Zoo"},
	}

	synonyms := map[string][]string{
		"Zoologischer Garten": {"zoo", "zoologischer"},
	}

	topo, err := topology.New(stations, lines, synonyms, []string{"S41", "S42"})
	require.NoError(t, err)
	return topo
}

// stubTagger stands in for the sequence tagger. Exact keys take precedence,
// then substring rules in order, and a single-word input falls back to
// itself, which is what a tagger does on an isolated station mention.
type stubTagger struct {
	exact map[string][]string
	rules []stubRule
}

type stubRule struct {
	substr string
	spans  []string
}

func (s stubTagger) Tag(_ context.Context, text string) ([]string, error) {
	if spans, ok := s.exact[text]; ok {
		return spans, nil
	}
	for _, rule := range s.rules {
		if strings.Contains(text, rule.substr) {
			return rule.spans, nil
		}
	}
	if words := strings.Fields(text); len(words) == 1 {
		return words, nil
	}
	return nil, nil
}

// defaultTagger covers the end-to-end scenarios.
func defaultTagger() ner.Tagger {
	return stubTagger{
		rules: []stubRule{
			{"merhingdam", []string{"merhingdam"}},
			{"hermannstraße", []string{"hermannstraße"}},
			{"hermannplatz", []string{"hermannplatz"}},
			{"alexanderplatz", []string{"alexanderplatz"}},
			{"tempelhof", []string{"tempelhof"}},
			{"zoo", []string{"zoo"}},
		},
	}
}

func testPipeline(t *testing.T) (*Extractor, *Verifier) {
	t.Helper()
	topo := testTopology(t)
	extractor := NewExtractor(topo, defaultTagger(), 75)
	return extractor, NewVerifier(topo, extractor)
}
