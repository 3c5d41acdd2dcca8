package nlp

import (
	"context"

	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/ner"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

// Extractor turns a screened chat message into a sighting candidate. It is
// stateless apart from the immutable topology and the tagger, so one
// instance serves all workers.
type Extractor struct {
	topo      *topology.Topology
	tagger    ner.Tagger
	threshold int
}

// NewExtractor creates an extractor. threshold is the fuzzy-match cutoff in
// [0, 100]; 75 is the tuned production value.
func NewExtractor(topo *topology.Topology, tagger ner.Tagger, threshold int) *Extractor {
	return &Extractor{topo: topo, tagger: tagger, threshold: threshold}
}

// Extract runs line, direction and station detection over the message. The
// returned candidate is empty when nothing was found; the caller checks
// Empty() and drops the message. Only tagger failures surface as errors.
func (e *Extractor) Extract(ctx context.Context, text string) (models.Candidate, error) {
	line := e.detectLine(text)

	normalized := normalizeText(text)
	direction, residual, err := e.findDirection(ctx, normalized, line)
	if err != nil {
		return models.Candidate{}, err
	}

	station, secret, err := e.findStation(ctx, residual, line, direction == "")
	if err != nil {
		return models.Candidate{}, err
	}
	if direction == "" {
		direction = secret
	}

	return models.Candidate{Line: line, Station: station, Direction: direction}, nil
}
