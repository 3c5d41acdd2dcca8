package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FreiFahren/nlp-service/internal/models"
)

// StationRecord mirrors the catalog's station representation.
type StationRecord struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Lines       []string    `json:"lines"`
}

// segmentCollection is the GeoJSON feature collection produced by the
// topology preparation scripts. Only the sid property matters here; the
// geometry belongs to the map frontend.
type segmentCollection struct {
	Features []struct {
		Properties struct {
			Sid string `json:"sid"`
		} `json:"properties"`
	} `json:"features"`
}

// LoadFromFiles builds a topology from the static data directory:
// lines.json, stations.json, synonyms.json and, if present, segments.json.
func LoadFromFiles(dataDir string, ringLines []string) (*Topology, error) {
	var lines map[string][]string
	if err := readJSON(filepath.Join(dataDir, "lines.json"), &lines); err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}

	var records map[string]StationRecord
	if err := readJSON(filepath.Join(dataDir, "stations.json"), &records); err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}

	var synonyms map[string][]string
	if err := readJSON(filepath.Join(dataDir, "synonyms.json"), &synonyms); err != nil {
		return nil, fmt.Errorf("loading synonyms: %w", err)
	}

	topo, err := Build(lines, records, synonyms, ringLines)
	if err != nil {
		return nil, err
	}

	segmentsPath := filepath.Join(dataDir, "segments.json")
	if _, err := os.Stat(segmentsPath); err == nil {
		var collection segmentCollection
		if err := readJSON(segmentsPath, &collection); err != nil {
			return nil, fmt.Errorf("loading segments: %w", err)
		}
		segments, err := parseSegments(collection)
		if err != nil {
			return nil, err
		}
		if err := topo.SetSegments(segments); err != nil {
			return nil, err
		}
	}

	return topo, nil
}

// Build assembles a topology from catalog-shaped data, the same records the
// backend serves on /v0/lines and /stations.
func Build(lines map[string][]string, records map[string]StationRecord, synonyms map[string][]string, ringLines []string) (*Topology, error) {
	stations := make(map[string]Station, len(records))
	for id, record := range records {
		stations[id] = Station{
			ID:          id,
			Name:        record.Name,
			Coordinates: record.Coordinates,
			Lines:       record.Lines,
		}
	}
	return New(stations, lines, synonyms, ringLines)
}

// LoadSegments reads just the segment list from the data directory.
func LoadSegments(dataDir string) ([]models.Segment, error) {
	var collection segmentCollection
	if err := readJSON(filepath.Join(dataDir, "segments.json"), &collection); err != nil {
		return nil, err
	}
	return parseSegments(collection)
}

// ParseSid splits a segment id "<line>.<from>:<to>" into its parts.
func ParseSid(sid string) (line, from, to string, err error) {
	lineAndStations := strings.SplitN(sid, ".", 2)
	if len(lineAndStations) != 2 {
		return "", "", "", fmt.Errorf("malformed segment id %q", sid)
	}
	endpoints := strings.SplitN(lineAndStations[1], ":", 2)
	if len(endpoints) != 2 || endpoints[0] == "" || endpoints[1] == "" {
		return "", "", "", fmt.Errorf("malformed segment id %q", sid)
	}
	return lineAndStations[0], endpoints[0], endpoints[1], nil
}

func parseSegments(collection segmentCollection) ([]models.Segment, error) {
	segments := make([]models.Segment, 0, len(collection.Features))
	for _, feature := range collection.Features {
		line, from, to, err := ParseSid(feature.Properties.Sid)
		if err != nil {
			return nil, err
		}
		segments = append(segments, models.Segment{
			Sid:           feature.Properties.Sid,
			LineID:        line,
			FromStationID: from,
			ToStationID:   to,
		})
	}
	return segments, nil
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
