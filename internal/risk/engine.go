package risk

import (
	"sort"
	"time"

	"github.com/FreiFahren/nlp-service/internal/models"
)

// Engine scores segments against a report set. It precomputes two indices
// over the flat segment slice: per-line segment lists sorted by rank for the
// spatial walk, and endpoint-pair groups for colocation propagation. The
// engine is immutable after construction and safe for concurrent Predict
// calls.
type Engine struct {
	segments  []models.Segment
	byLine    map[string][]int // line id -> segment indices, ascending rank
	colocated map[string][]int // endpoint key -> segment indices
	params    Params
}

// NewEngine builds the indices for the given segment set.
func NewEngine(segments []models.Segment, params Params) *Engine {
	e := &Engine{
		segments:  segments,
		byLine:    make(map[string][]int),
		colocated: make(map[string][]int),
		params:    params,
	}
	for i, seg := range segments {
		e.byLine[seg.LineID] = append(e.byLine[seg.LineID], i)
		key := seg.EndpointKey()
		e.colocated[key] = append(e.colocated[key], i)
	}
	for _, idxs := range e.byLine {
		sort.Slice(idxs, func(a, b int) bool {
			return e.segments[idxs[a]].Rank < e.segments[idxs[b]].Rank
		})
	}
	return e
}

// channels accumulates the three risk components of one segment. Each is
// clamped to [0, 1] after every contribution so a burst of reports saturates
// instead of overflowing.
type channels struct {
	direct   float64
	bidirect float64
	line     float64
}

func (c *channels) add(direct, bidirect, line float64) {
	c.direct = clamp01(c.direct + direct)
	c.bidirect = clamp01(c.bidirect + bidirect)
	c.line = clamp01(c.line + line)
}

func (c channels) total() float64 {
	total := c.direct + c.bidirect + c.line
	if total > 1 {
		return 1
	}
	return total
}

// Predict maps every segment with non-green risk to its color. The result
// is a pure function of (reports, now): reports combine through sums and
// maxima only, so their order does not matter. Reports on unknown lines are
// dropped; a station that is no endpoint on its line degrades the report to
// line-wide.
func (e *Engine) Predict(reports []models.Report, now time.Time) map[string]string {
	risks := e.risks(reports, now)

	colors := make(map[string]string)
	for i, seg := range e.segments {
		if color := quantize(risks[i]); color != ColorGreen {
			colors[seg.Sid] = color
		}
	}
	return colors
}

// risks computes the per-segment risk vector, colocation already propagated.
func (e *Engine) risks(reports []models.Report, now time.Time) []float64 {
	acc := make([]channels, len(e.segments))

	for _, report := range reports {
		age := now.Sub(report.Timestamp).Seconds()
		for _, line := range report.Lines {
			idxs, ok := e.byLine[line]
			if !ok {
				continue
			}
			e.accumulate(acc, report, line, idxs, age)
		}
	}

	risks := make([]float64, len(e.segments))
	for i := range acc {
		risks[i] = acc[i].total()
	}

	// A sighting on shared track endangers every line using it: colocated
	// segments all take the maximum risk of the group.
	for _, group := range e.colocated {
		highest := 0.0
		for _, idx := range group {
			if risks[idx] > highest {
				highest = risks[idx]
			}
		}
		for _, idx := range group {
			risks[idx] = highest
		}
	}
	return risks
}

func (e *Engine) accumulate(acc []channels, report models.Report, line string, idxs []int, age float64) {
	anchorRank, anchored := e.anchorRank(report.StationID, idxs)

	directBase := 0.0
	if report.DirectionID != "" {
		directBase = 0.8
	}
	bidirectBase := 1.0
	if report.DirectionID != "" {
		bidirectBase = 0.2
	}
	if report.IsMulti() {
		// Sightings spanning several lines are vague; only the
		// bidirectional channel is discounted for them.
		bidirectBase *= 0.2
	}
	lineBase := 0.1
	if report.StationID != "" {
		lineBase = 0.05
	}

	directT := directBase * e.params.Direct.temporalDecay(age)
	bidirectT := bidirectBase * e.params.Bidirect.temporalDecay(age)
	lineT := lineBase * e.params.Line.temporalDecay(age)

	if !anchored {
		// No usable station: the report speaks for the whole line, spread
		// uniformly with no spatial falloff.
		for _, idx := range idxs {
			acc[idx].add(0, 0, lineT)
		}
		return
	}

	for _, idx := range idxs {
		distance := e.segments[idx].Rank - anchorRank
		acc[idx].add(
			directT*e.params.Direct.spatialDecay(distance),
			bidirectT*e.params.Bidirect.spatialDecay(distance),
			lineT*e.params.Line.spatialDecay(distance),
		)
	}
}

// anchorRank finds the rank of the first segment (in rank order) touching
// the report's station. Reports without a station, or with one that is no
// endpoint on this line, have no anchor.
func (e *Engine) anchorRank(stationID string, idxs []int) (int, bool) {
	if stationID == "" {
		return 0, false
	}
	for _, idx := range idxs {
		seg := e.segments[idx]
		if seg.FromStationID == stationID || seg.ToStationID == stationID {
			return seg.Rank, true
		}
	}
	return 0, false
}
