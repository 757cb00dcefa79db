package channel

import (
	"context"
	"errors"

	"aggregator/internal/domain/event"
)

// ErrUnavailable means the delivery infrastructure itself is unreachable.
// It is surfaced to the intake layer; the channel does not retry enqueues
// on the producer's behalf.
var ErrUnavailable = errors.New("channel unavailable")

// Delivery is one dequeue of an envelope by a worker. Ack removes the
// envelope from the deliverable set; Nack returns it for redelivery.
// A delivery that is neither acked nor nacked is redelivered after the
// backend's visibility timeout, so a crashed worker cannot lose data.
type Delivery struct {
	Envelope *event.Envelope

	// Raw carries the wire bytes so malformed payloads can still be acked
	// (poison messages) and so redelivery re-produces the exact original.
	Raw []byte

	Ack  func(ctx context.Context) error
	Nack func(ctx context.Context) error
}

// Channel is a durable, at-least-once, multi-consumer delivery primitive.
// Ordering across distinct dedup keys is not guaranteed.
type Channel interface {
	// Enqueue appends an envelope to the deliverable set. Fails with
	// ErrUnavailable when the backend is unreachable.
	Enqueue(ctx context.Context, env *event.Envelope) error

	// Dequeue blocks until a delivery is available or ctx is done.
	Dequeue(ctx context.Context) (*Delivery, error)

	// Depth reports the current backlog, best effort.
	Depth(ctx context.Context) (int64, error)

	Close() error
}
