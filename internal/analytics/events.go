package analytics

import "time"

type EventType string

const (
	EventMatch     EventType = "match"
	EventZeroMatch EventType = "zero_match"
	EventScanError EventType = "scan_error"
	EventReload    EventType = "reload"
)

// MatchEvent describes one match call.
type MatchEvent struct {
	Type          EventType `json:"type"`
	ContentID     string    `json:"content_id"`
	TermIDs       []string  `json:"term_ids"`
	FuzzyAdded    int       `json:"fuzzy_added"`
	LatencyMicros int64     `json:"latency_us"`
	CacheHit      bool      `json:"cache_hit"`
	Generation    uint64    `json:"generation"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

// ReloadEvent describes one completed reload.
type ReloadEvent struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Terms      int       `json:"terms"`
	Surfaces   int       `json:"surfaces"`
	Skipped    int       `json:"skipped"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key returns the partition key of an event so every event of one content
// item lands on the same partition.
func Key(event any) string {
	switch e := event.(type) {
	case MatchEvent:
		return e.ContentID
	case ReloadEvent:
		return "reload"
	}
	return "analytics"
}
