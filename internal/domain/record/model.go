package record

import (
	"context"
	"encoding/json"
	"time"
)

// Record is a durably stored event. Created exactly once per dedup key,
// immutable afterwards; retention is not this system's concern.
type Record struct {
	EventID  string          `json:"event_id"`
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"created_at"`
}

// ListFilter narrows the read-side listing. Zero values mean "no filter" /
// server defaults.
type ListFilter struct {
	Topic  string
	Limit  int
	Offset int
}

// Reader is the read-only view over stored records, used by the query
// surface. No dedup logic lives here.
type Reader interface {
	List(ctx context.Context, f ListFilter) ([]*Record, error)
	Count(ctx context.Context) (int64, error)
}
