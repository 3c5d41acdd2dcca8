package models

import (
	"fmt"
	"time"
)

// Candidate is the outcome of running the extraction pipeline over a single
// chat message. Fields hold display names, not catalog ids; an empty string
// means the field could not be determined. The Verifier refines a Candidate
// in place before the catalog resolver turns names into ids.
type Candidate struct {
	Line      string
	Station   string
	Direction string
}

// Empty reports whether nothing at all was extracted.
func (c Candidate) Empty() bool {
	return c.Line == "" && c.Station == "" && c.Direction == ""
}

func (c Candidate) String() string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf("line=%s station=%s direction=%s",
		orDash(c.Line), orDash(c.Station), orDash(c.Direction))
}

// Report is a resolved inspector sighting as consumed by the risk engine.
// StationID and DirectionID are catalog ids and may be empty; Lines holds the
// line ids the report mentions (typically one).
type Report struct {
	StationID   string
	Timestamp   time.Time
	DirectionID string
	Lines       []string
}

// IsMulti reports whether the report mentions more than one line. Multi-line
// reports are penalized on the bidirectional risk channel.
func (r Report) IsMulti() bool {
	return len(r.Lines) > 1
}

// Segment is one directed edge of a transit line. Sid has the form
// "<line>.<from>:<to>". Rank is the 0-based position of the segment within
// its line's station sequence.
type Segment struct {
	Sid           string
	LineID        string
	FromStationID string
	ToStationID   string
	Rank          int
}

// EndpointKey returns the order-independent station pair identifying the
// physical track, used to find colocated segments of other lines.
func (s Segment) EndpointKey() string {
	if s.FromStationID < s.ToStationID {
		return s.FromStationID + "|" + s.ToStationID
	}
	return s.ToStationID + "|" + s.FromStationID
}

// LookupStatus classifies the outcome of a catalog name lookup.
type LookupStatus int

const (
	// LookupResolved means a single canonical id was found.
	LookupResolved LookupStatus = iota
	// LookupNotFound means the catalog knows no entity with that name. The
	// pipeline continues with the fields that did resolve.
	LookupNotFound
	// LookupFailed means the catalog could not be reached; retry policy is
	// the caller's concern.
	LookupFailed
)

// Lookup is the result of resolving a display name to a catalog id.
type Lookup struct {
	Status LookupStatus
	ID     string
	Err    error
}
