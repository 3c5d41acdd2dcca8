package nlp

import (
	"context"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/FreiFahren/nlp-service/internal/topology"
)

// findStation resolves the station a text mentions. The tagger proposes
// location spans; each span is fuzzy-matched against the candidate pool
// (restricted to the known line when there is one) and the first span that
// clears the threshold wins, resolved through the synonym table to its
// canonical name.
//
// With wantSecret set and at least two spans, the second span is also
// matched and returned as the implied heading. Chat messages often name the
// next station instead of using a direction keyword; this catches those.
func (e *Extractor) findStation(ctx context.Context, text, line string, wantSecret bool) (station, secret string, err error) {
	pool := e.topo.StationPool(line)
	if len(pool) == 0 {
		pool = e.topo.StationPool("")
	}

	spans, err := e.tagger.Tag(ctx, text)
	if err != nil {
		return "", "", err
	}

	for _, span := range spans {
		found := bestMatch(span, pool, e.threshold)
		if found == "" {
			continue
		}
		if wantSecret && len(spans) > 1 {
			secret = bestMatch(spans[1], pool, e.threshold)
		}
		return found, secret, nil
	}
	return "", "", nil
}

// bestMatch returns the canonical station name of the pool entry most
// similar to the query, or "" when nothing reaches the threshold. WRatio
// backs off to a discounted partial ratio on length-mismatched pairs, so a
// prefix mention ("osloer") still reaches its full name.
func bestMatch(query string, pool []topology.PoolEntry, threshold int) string {
	query = strings.ToLower(query)
	best := -1
	var canonical string
	for _, entry := range pool {
		score := fuzzy.WRatio(query, entry.Text)
		if score > best {
			best = score
			canonical = entry.Canonical
		}
	}
	if best < threshold {
		return ""
	}
	return canonical
}
