package nlp

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

// ringKeywords are whole words that imply the ring line without naming it.
var ringKeywords = map[string]bool{"ring": true, "ringbahn": true}

// implicitRingLine is the line assumed when a message says "ring" without
// naming S41 or S42. Both share every station, so either works for the
// report; S41 is the convention.
const implicitRingLine = "S41"

// Verifier refines an extracted candidate with topology knowledge: ring-line
// handling, direction plausibility, the station-is-actually-direction
// pattern and sole-line inference. Verification never fails; ambiguity is
// resolved by clearing fields.
type Verifier struct {
	topo      *topology.Topology
	extractor *Extractor
}

// NewVerifier creates a verifier that re-runs the extractor's station
// detection when a correction needs it.
func NewVerifier(topo *topology.Topology, extractor *Extractor) *Verifier {
	return &Verifier{topo: topo, extractor: extractor}
}

// Verify applies the correction rules in order and returns the refined
// candidate. Idempotent: verifying an already-verified candidate changes
// nothing.
func (v *Verifier) Verify(ctx context.Context, cand models.Candidate, text string) models.Candidate {
	normalized := normalizeText(text)

	// A bare "ring"/"ringbahn" mention names the ring line implicitly. This
	// runs before the directionless rule so implicit ring reports get their
	// direction cleared too.
	if cand.Line == "" && mentionsRing(text) {
		cand.Line = implicitRingLine
	}

	if cand.Line != "" && v.topo.HasLine(cand.Line) {
		cand = v.correctDirection(cand)
	}

	// Ring lines have no terminus, so a direction is meaningless.
	if v.topo.IsRing(cand.Line) {
		cand.Direction = ""
	}

	cand = v.directionAsName(ctx, cand, normalized)

	// A station served by exactly one line pins the line down.
	if cand.Station != "" && cand.Line == "" {
		if lines := v.topo.LinesThroughStation(cand.Station); len(lines) == 1 {
			cand.Line = lines[0]
		}
	}

	return cand
}

func mentionsRing(text string) bool {
	stripped := strings.NewReplacer(",", "", ".", "").Replace(strings.ToLower(text))
	for _, word := range strings.Fields(stripped) {
		if ringKeywords[word] {
			return true
		}
	}
	return false
}

// correctDirection sanity-checks the direction against the line geometry. A
// terminus is always plausible. A mid-line direction is re-read as the side
// of the line the train moves toward ("Alexanderplatz richtung Ostkreuz"
// really heads for the end terminus); a direction not on the line at all is
// dropped.
func (v *Verifier) correctDirection(cand models.Candidate) models.Candidate {
	if cand.Direction == "" {
		return cand
	}

	names := v.topo.LineStations(cand.Line)
	if cand.Direction == names[0] || cand.Direction == names[len(names)-1] {
		return cand
	}

	stationIdx := indexOf(names, cand.Station)
	directionIdx := indexOf(names, cand.Direction)
	if stationIdx >= 0 && directionIdx >= 0 {
		if stationIdx < directionIdx {
			cand.Direction = names[len(names)-1]
		} else {
			cand.Direction = names[0]
		}
		return cand
	}

	cand.Direction = ""
	return cand
}

// directionAsName handles "U8 Hermannstraße", which almost always means "U8
// Richtung Hermannstraße": when the token right after the line mention
// resolves to a terminus of that line, that token is the direction, and the
// true station is re-detected in the remaining text.
func (v *Verifier) directionAsName(ctx context.Context, cand models.Candidate, text string) models.Candidate {
	if cand.Direction == "" || cand.Station == "" || cand.Line == "" || !v.topo.HasLine(cand.Line) {
		return cand
	}

	first, last, ok := v.topo.Termini(cand.Line)
	if !ok {
		return cand
	}

	line := strings.ToLower(cand.Line)
	lineIdx := strings.LastIndex(text, line)
	if lineIdx < 0 {
		return cand
	}
	afterWords := strings.Fields(text[lineIdx+len(line):])
	if len(afterWords) == 0 {
		return cand
	}

	found, _, err := v.extractor.findStation(ctx, afterWords[0], cand.Line, false)
	if err != nil {
		log.Warn().Err(err).Msg("direction-as-name check skipped")
		return cand
	}
	if found == "" || (found != first && found != last) {
		return cand
	}

	withoutDirection := removeDirectionAndKeyword(text, line, afterWords[0])
	newStation, _, err := v.extractor.findStation(ctx, withoutDirection, cand.Line, false)
	if err != nil {
		log.Warn().Err(err).Msg("direction-as-name check skipped")
		return cand
	}
	if newStation == "" {
		return cand
	}

	cand.Direction = found
	cand.Station = newStation
	return cand
}

func indexOf(names []string, target string) int {
	for i, name := range names {
		if name == target {
			return i
		}
	}
	return -1
}
