package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks an envelope that can never be processed: it is missing
// the fields the dedup key is derived from. Retrying cannot fix it.
var ErrMalformed = errors.New("malformed envelope")

// Envelope is the canonical representation of a log event in flight.
// Payload is kept as raw JSON produced by the publisher.
type Envelope struct {
	Topic      string          `json:"topic"`
	EventID    string          `json:"event_id"`
	Timestamp  string          `json:"timestamp"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Validate checks that a dedup key is derivable. Both halves of the composite
// key must be present; everything else is opaque to the pipeline.
func (e *Envelope) Validate() error {
	if e.Topic == "" {
		return fmt.Errorf("%w: missing topic", ErrMalformed)
	}
	if e.EventID == "" {
		return fmt.Errorf("%w: missing event_id", ErrMalformed)
	}
	return nil
}

// DedupKey identifies one logical event regardless of how many times it is
// submitted or redelivered. Two envelopes with the same key are the same
// event even if their payloads differ.
type DedupKey struct {
	Topic   string
	EventID string
}

func (k DedupKey) String() string {
	return k.Topic + "/" + k.EventID
}

func (e *Envelope) DedupKey() DedupKey {
	return DedupKey{Topic: e.Topic, EventID: e.EventID}
}

// Decode parses an envelope off the wire and validates it.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}
