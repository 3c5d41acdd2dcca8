// Package topology holds the static transit network: stations, ordered
// lines, the synonym table and the segment list. Everything here is loaded
// once at startup and immutable afterwards, which is what lets the
// extraction pipeline and the risk engine run lock-free.
package topology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FreiFahren/nlp-service/internal/models"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Station is one stop of the network. Lines lists the line ids that stop
// here; every entry must exist in the line table.
type Station struct {
	ID          string
	Name        string
	Coordinates Coordinates
	Lines       []string
}

// PoolEntry is one searchable name of the station detection pool: a
// lowercased station name or synonym together with the canonical station
// name it resolves to.
type PoolEntry struct {
	Text      string
	Canonical string
}

// Topology is the immutable network model.
type Topology struct {
	stations     map[string]Station  // by station id
	stationIDs   map[string]string   // normalized name -> station id
	lineIDs      map[string][]string // line id -> ordered station ids
	lineNames    map[string][]string // line id -> ordered station names
	synonyms     map[string][]string // canonical station name -> synonyms
	ringLines    map[string]bool
	segments     []models.Segment
	sortedLines  []string // line ids, descending length then lexicographic
	sortedCanons []string // canonical station names, sorted
}

// New assembles and validates a topology. lines maps line ids to ordered
// station id sequences; synonyms maps canonical station names to alternate
// spellings. Synonym conflicts between distinct stations are resolved here:
// the station that comes first in canonical name order keeps the synonym.
func New(stations map[string]Station, lines map[string][]string, synonyms map[string][]string, ringLines []string) (*Topology, error) {
	t := &Topology{
		stations:   make(map[string]Station, len(stations)),
		stationIDs: make(map[string]string, len(stations)),
		lineIDs:    make(map[string][]string, len(lines)),
		lineNames:  make(map[string][]string, len(lines)),
		synonyms:   make(map[string][]string),
		ringLines:  make(map[string]bool, len(ringLines)),
	}

	for id, station := range stations {
		station.ID = id
		t.stations[id] = station
		t.stationIDs[normalizeName(station.Name)] = id
	}

	for line, stationSeq := range lines {
		if len(stationSeq) < 2 {
			return nil, fmt.Errorf("line %s has %d stations, need at least 2", line, len(stationSeq))
		}
		names := make([]string, len(stationSeq))
		for i, stationID := range stationSeq {
			station, ok := t.stations[stationID]
			if !ok {
				return nil, fmt.Errorf("line %s references unknown station %s", line, stationID)
			}
			names[i] = station.Name
		}
		t.lineIDs[line] = stationSeq
		t.lineNames[line] = names
	}

	for id, station := range t.stations {
		for _, line := range station.Lines {
			if _, ok := t.lineIDs[line]; !ok {
				return nil, fmt.Errorf("station %s references unknown line %s", id, line)
			}
		}
	}

	// Resolve synonym conflicts deterministically: first canonical name in
	// sorted order claims the synonym.
	claimed := make(map[string]string)
	canons := make([]string, 0, len(synonyms))
	for canonical := range synonyms {
		canons = append(canons, canonical)
	}
	sort.Strings(canons)
	for _, canonical := range canons {
		for _, synonym := range synonyms[canonical] {
			lowered := strings.ToLower(synonym)
			if _, taken := claimed[lowered]; taken {
				continue
			}
			claimed[lowered] = canonical
			t.synonyms[canonical] = append(t.synonyms[canonical], synonym)
		}
	}

	for line := range t.lineIDs {
		t.sortedLines = append(t.sortedLines, line)
	}
	sort.Slice(t.sortedLines, func(i, j int) bool {
		if len(t.sortedLines[i]) != len(t.sortedLines[j]) {
			return len(t.sortedLines[i]) > len(t.sortedLines[j])
		}
		return t.sortedLines[i] < t.sortedLines[j]
	})

	for _, station := range t.stations {
		t.sortedCanons = append(t.sortedCanons, station.Name)
	}
	sort.Strings(t.sortedCanons)

	for _, line := range ringLines {
		t.ringLines[line] = true
	}

	return t, nil
}

// SetSegments attaches the segment list, computing ranks from the line
// station order. Segments on lines missing from the line table keep their
// enumeration order as rank.
func (t *Topology) SetSegments(segments []models.Segment) error {
	perLine := make(map[string]int)
	for i := range segments {
		seg := &segments[i]
		if seq, ok := t.lineIDs[seg.LineID]; ok {
			rank := indexOf(seq, seg.FromStationID)
			if rank < 0 {
				return fmt.Errorf("segment %s: station %s not on line %s", seg.Sid, seg.FromStationID, seg.LineID)
			}
			seg.Rank = rank
		} else {
			seg.Rank = perLine[seg.LineID]
		}
		perLine[seg.LineID]++
	}
	t.segments = segments
	return nil
}

// Segments returns the attached segment list.
func (t *Topology) Segments() []models.Segment {
	return t.segments
}

// Lines returns all line ids sorted by descending length, the order the line
// detector probes them in.
func (t *Topology) Lines() []string {
	return t.sortedLines
}

// HasLine reports whether the line id is part of the network.
func (t *Topology) HasLine(line string) bool {
	_, ok := t.lineIDs[line]
	return ok
}

// IsRing reports whether the line is a closed loop without real termini.
func (t *Topology) IsRing(line string) bool {
	return t.ringLines[line]
}

// LineStations returns the ordered station names of a line, or nil for an
// unknown line.
func (t *Topology) LineStations(line string) []string {
	return t.lineNames[line]
}

// Termini returns the first and last station name of a line. Meaningless for
// ring lines; callers check IsRing first.
func (t *Topology) Termini(line string) (string, string, bool) {
	names := t.lineNames[line]
	if len(names) == 0 {
		return "", "", false
	}
	return names[0], names[len(names)-1], true
}

// StationPool returns the fuzzy-match candidate pool: lowercased station
// names and synonyms, each mapped to its canonical station name. When line
// is non-empty, the pool is restricted to stations on that line.
func (t *Topology) StationPool(line string) []PoolEntry {
	var pool []PoolEntry
	add := func(name string) {
		pool = append(pool, PoolEntry{Text: strings.ToLower(name), Canonical: name})
		for _, synonym := range t.synonyms[name] {
			pool = append(pool, PoolEntry{Text: strings.ToLower(synonym), Canonical: name})
		}
	}

	if line != "" {
		for _, name := range t.lineNames[strings.ToUpper(line)] {
			add(name)
		}
		return pool
	}
	for _, name := range t.sortedCanons {
		add(name)
	}
	return pool
}

// LinesThroughStation returns the lines serving the named station, matching
// the name case- and whitespace-insensitively as the sole-line rule does.
func (t *Topology) LinesThroughStation(name string) []string {
	id, ok := t.stationIDs[normalizeName(name)]
	if !ok {
		return nil
	}
	return t.stations[id].Lines
}

// StationName returns the display name for a station id.
func (t *Topology) StationName(id string) (string, bool) {
	station, ok := t.stations[id]
	return station.Name, ok
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
