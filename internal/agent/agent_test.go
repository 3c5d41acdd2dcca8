package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/nlp"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

type submission struct {
	line, stationID, directionID string
	timestamp                    time.Time
}

type fakeCatalog struct {
	ids         map[string]string
	failLookups bool
	submissions []submission
}

func (f *fakeCatalog) SearchStation(_ context.Context, name string) models.Lookup {
	if f.failLookups {
		return models.Lookup{Status: models.LookupFailed, Err: errors.New("backend down")}
	}
	if id, ok := f.ids[name]; ok {
		return models.Lookup{Status: models.LookupResolved, ID: id}
	}
	return models.Lookup{Status: models.LookupNotFound}
}

func (f *fakeCatalog) SubmitReport(_ context.Context, line, stationID, directionID string, ts time.Time) error {
	f.submissions = append(f.submissions, submission{line, stationID, directionID, ts})
	return nil
}

type wordTagger struct{}

func (wordTagger) Tag(_ context.Context, text string) ([]string, error) {
	if strings.Contains(text, "hermannplatz") {
		return []string{"hermannplatz"}, nil
	}
	if words := strings.Fields(text); len(words) == 1 {
		return words, nil
	}
	return nil, nil
}

func newTestAgent(t *testing.T, cat Catalog) *Agent {
	t.Helper()
	topo, err := topology.New(
		map[string]topology.Station{
			"U-Wit": {Name: "Wittenau", Lines: []string{"U8"}},
			"U-Her": {Name: "Hermannplatz", Lines: []string{"U8"}},
			"U-Hst": {Name: "Hermannstraße", Lines: []string{"U8"}},
		},
		map[string][]string{"U8": {"U-Wit", "U-Her", "U-Hst"}},
		nil, nil,
	)
	require.NoError(t, err)

	extractor := nlp.NewExtractor(topo, wordTagger{}, 75)
	verifier := nlp.NewVerifier(topo, extractor)
	return New(extractor, verifier, cat, 5*time.Second)
}

func TestProcessMessageSubmitsResolvedReport(t *testing.T) {
	cat := &fakeCatalog{ids: map[string]string{
		"Hermannplatz": "U-Her",
		"Wittenau":     "U-Wit",
	}}
	a := newTestAgent(t, cat)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 42, 0, time.UTC)
	err := a.ProcessMessage(context.Background(), receivedAt, "2x Hellblau U8 Hermannplatz Richtung Wittenau am Bahnsteig")
	require.NoError(t, err)

	require.Len(t, cat.submissions, 1)
	got := cat.submissions[0]
	assert.Equal(t, "U8", got.line)
	assert.Equal(t, "U-Her", got.stationID)
	assert.Equal(t, "U-Wit", got.directionID)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC), got.timestamp, "seconds are truncated")
}

func TestProcessMessageGuardRejects(t *testing.T) {
	cat := &fakeCatalog{}
	a := newTestAgent(t, cat)

	err := a.ProcessMessage(context.Background(), time.Now(), "http://spam.example U8 Hermannplatz")
	require.NoError(t, err)
	assert.Empty(t, cat.submissions)
}

func TestProcessMessageNothingFound(t *testing.T) {
	cat := &fakeCatalog{}
	a := newTestAgent(t, cat)

	err := a.ProcessMessage(context.Background(), time.Now(), "guten morgen zusammen")
	require.NoError(t, err)
	assert.Empty(t, cat.submissions)
}

func TestProcessMessageUnknownStationKeepsLine(t *testing.T) {
	cat := &fakeCatalog{ids: map[string]string{}}
	a := newTestAgent(t, cat)

	err := a.ProcessMessage(context.Background(), time.Now(), "Kontrolle U8 Hermannplatz")
	require.NoError(t, err)

	require.Len(t, cat.submissions, 1)
	assert.Equal(t, "U8", cat.submissions[0].line)
	assert.Empty(t, cat.submissions[0].stationID, "unknown name degrades to a null id")
}

func TestProcessMessageLookupFailure(t *testing.T) {
	cat := &fakeCatalog{failLookups: true}
	a := newTestAgent(t, cat)

	err := a.ProcessMessage(context.Background(), time.Now(), "Kontrolle U8 Hermannplatz")
	require.Error(t, err)
	assert.Empty(t, cat.submissions)
}
