// Package agent wires the extraction pipeline to the backend: it takes raw
// chat messages, runs guard, extractor and verifier, resolves names to
// catalog ids and submits the finished report.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/FreiFahren/nlp-service/internal/catalog"
	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/nlp"
)

// Catalog is the backend surface the agent needs.
type Catalog interface {
	SearchStation(ctx context.Context, name string) models.Lookup
	SubmitReport(ctx context.Context, line, stationID, directionID string, ts time.Time) error
}

var _ Catalog = (*catalog.Client)(nil)

// Agent processes chat messages end to end. Stateless; one instance serves
// all workers.
type Agent struct {
	extractor *nlp.Extractor
	verifier  *nlp.Verifier
	catalog   Catalog
	timeout   time.Duration
}

// New creates an agent. timeout bounds the processing of one message,
// including every catalog round trip.
func New(extractor *nlp.Extractor, verifier *nlp.Verifier, cat Catalog, timeout time.Duration) *Agent {
	return &Agent{
		extractor: extractor,
		verifier:  verifier,
		catalog:   cat,
		timeout:   timeout,
	}
}

// ProcessMessage runs one message through the pipeline. Messages that fail
// the guard or yield nothing are dropped silently apart from a log record;
// only infrastructure failures surface as errors. The message text itself is
// never logged, only which fields were found.
func (a *Agent) ProcessMessage(ctx context.Context, receivedAt time.Time, text string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if ok, reason := nlp.Screen(text); !ok {
		log.Info().Str("reason", reason).Msg("message not processed")
		return nil
	}

	cand, err := a.extractor.Extract(ctx, text)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}
	if cand.Empty() {
		log.Info().Msg("no line, station or direction found in the message")
		return nil
	}

	cand = a.verifier.Verify(ctx, cand, text)

	stationID, err := a.resolve(ctx, cand.Station)
	if err != nil {
		return err
	}
	directionID, err := a.resolve(ctx, cand.Direction)
	if err != nil {
		return err
	}

	if cand.Line == "" && stationID == "" && directionID == "" {
		log.Info().Msg("nothing resolved, dropping report")
		return nil
	}

	logFound(cand, stationID, directionID)

	timestamp := receivedAt.UTC().Truncate(time.Minute)
	if err := a.catalog.SubmitReport(ctx, cand.Line, stationID, directionID, timestamp); err != nil {
		return fmt.Errorf("submitting report: %w", err)
	}
	return nil
}

// resolve turns a station name into its catalog id. An unknown name keeps
// the report alive with a null id; only transport failures abort.
func (a *Agent) resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	lookup := a.catalog.SearchStation(ctx, name)
	switch lookup.Status {
	case models.LookupResolved:
		return lookup.ID, nil
	case models.LookupNotFound:
		log.Warn().Str("name", name).Msg("station not in catalog")
		return "", nil
	default:
		return "", fmt.Errorf("resolving %q: %w", name, lookup.Err)
	}
}

// logFound records which fields were extracted without their values, so logs
// never carry data that could identify a reporter.
func logFound(cand models.Candidate, stationID, directionID string) {
	var found []string
	if cand.Line != "" {
		found = append(found, "line")
	}
	if stationID != "" {
		found = append(found, "station")
	}
	if directionID != "" {
		found = append(found, "direction")
	}
	log.Info().Strs("found", found).Msg("report extracted")
}
