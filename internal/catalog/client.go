// Package catalog talks to the FreiFahren backend: it resolves display names
// to canonical ids, submits finished reports and fetches the station/line
// tables the topology is built from.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/FreiFahren/nlp-service/internal/cache"
	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

// ReportAuthor identifies reports originating from this service ("bot" as
// character codes), the backend's convention for telling automated reports
// from user-submitted ones.
const ReportAuthor = 98111116

// Client is the backend API client. All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	password   string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a backend client. cacheStore may be nil to disable
// lookup memoization.
func NewClient(baseURL, password string, cacheStore *cache.Cache) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		password: password,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: cacheStore,
	}
}

// Lines fetches the line table: line id to ordered station id sequence.
func (c *Client) Lines(ctx context.Context) (map[string][]string, error) {
	var lines map[string][]string
	if err := c.getJSON(ctx, "/v0/lines", &lines); err != nil {
		return nil, fmt.Errorf("fetching lines: %w", err)
	}
	return lines, nil
}

// Stations fetches the station table keyed by station id.
func (c *Client) Stations(ctx context.Context) (map[string]topology.StationRecord, error) {
	var stations map[string]topology.StationRecord
	if err := c.getJSON(ctx, "/stations", &stations); err != nil {
		return nil, fmt.Errorf("fetching stations: %w", err)
	}
	return stations, nil
}

// SearchStation resolves a display name to a station id. The three outcomes
// are distinguished in the returned Lookup: resolved, unknown name, or
// backend failure.
//
// The backend returns the matched station keyed by its id, the same record
// shape as /stations; only the key matters here.
func (c *Client) SearchStation(ctx context.Context, name string) models.Lookup {
	cacheKey := fmt.Sprintf(cache.StationSearchKeyPattern, strings.ToLower(name))
	if c.cache != nil {
		var cached string
		if ok, err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return models.Lookup{Status: models.LookupResolved, ID: cached}
		}
	}

	endpoint := "/v0/stations/search?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return models.Lookup{Status: models.LookupFailed, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Lookup{Status: models.LookupFailed, Err: fmt.Errorf("station search: %w", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result map[string]json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return models.Lookup{Status: models.LookupFailed, Err: fmt.Errorf("decoding station search: %w", err)}
		}
		var id string
		for key := range result {
			id = key
			break
		}
		if id == "" {
			return models.Lookup{Status: models.LookupFailed, Err: fmt.Errorf("station search returned no station for %q", name)}
		}
		if c.cache != nil {
			if err := c.cache.SetJSON(ctx, cacheKey, id, cache.StationSearchTTL); err != nil {
				log.Warn().Err(err).Str("station", name).Msg("failed to cache station lookup")
			}
		}
		return models.Lookup{Status: models.LookupResolved, ID: id}
	case http.StatusNotFound:
		return models.Lookup{Status: models.LookupNotFound}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Lookup{
			Status: models.LookupFailed,
			Err:    fmt.Errorf("station search returned %d: %s", resp.StatusCode, body),
		}
	}
}

// inspectorSubmission is the POST /basics/inspectors request body.
type inspectorSubmission struct {
	Timestamp   string  `json:"timestamp"`
	Line        string  `json:"line"`
	StationID   string  `json:"stationId"`
	DirectionID string  `json:"directionId"`
	Author      int     `json:"author"`
	Message     *string `json:"message"`
}

// SubmitReport posts a resolved sighting to the backend. Empty ids are sent
// as empty strings; the message field is always null so free-text never
// leaves this service.
func (c *Client) SubmitReport(ctx context.Context, line, stationID, directionID string, ts time.Time) error {
	payload := inspectorSubmission{
		Timestamp:   ts.UTC().Format(time.RFC3339),
		Line:        line,
		StationID:   stationID,
		DirectionID: directionID,
		Author:      ReportAuthor,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/basics/inspectors", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Password", c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("report submission returned %d: %s", resp.StatusCode, respBody)
	}

	log.Info().
		Str("line", line).
		Str("station", stationID).
		Str("direction", directionID).
		Msg("report submitted")
	return nil
}

// inspectorRecord is one entry of the recent-sightings feed.
type inspectorRecord struct {
	StationID string   `json:"station_id"`
	Lines     []string `json:"lines"`
	Direction string   `json:"direction"`
	Timestamp string   `json:"timestamp"`
}

// RecentReports fetches the sightings the backend currently considers live
// and converts them into risk engine input. Records with unparseable
// timestamps are skipped with a warning.
func (c *Client) RecentReports(ctx context.Context) ([]models.Report, error) {
	var records []inspectorRecord
	if err := c.getJSON(ctx, "/basics/inspectors", &records); err != nil {
		return nil, fmt.Errorf("fetching recent reports: %w", err)
	}

	reports := make([]models.Report, 0, len(records))
	for _, record := range records {
		ts, err := time.Parse(time.RFC3339, record.Timestamp)
		if err != nil {
			log.Warn().Str("timestamp", record.Timestamp).Msg("skipping report with bad timestamp")
			continue
		}
		reports = append(reports, models.Report{
			StationID:   record.StationID,
			Timestamp:   ts,
			DirectionID: record.Direction,
			Lines:       record.Lines,
		})
	}
	return reports, nil
}

// FetchTopology builds the network model from the backend tables.
func (c *Client) FetchTopology(ctx context.Context, synonyms map[string][]string, ringLines []string) (*topology.Topology, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := c.Stations(ctx)
	if err != nil {
		return nil, err
	}
	return topology.Build(lines, stations, synonyms, ringLines)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
