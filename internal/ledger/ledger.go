package ledger

import (
	"context"
	"errors"

	"aggregator/internal/domain/event"
)

// ErrUnavailable means the durable store could not be reached. It is
// transient: the caller must retry via redelivery, never ack it as success
// and never confuse it with a duplicate.
var ErrUnavailable = errors.New("storage unavailable")

// Ledger is the single source of truth for "has this event already been
// stored". Commit performs a check-and-insert as one indivisible unit with
// respect to concurrent callers on the same dedup key: exactly one caller
// observes created=true, every other caller observes created=false.
// Payloads are first-write-wins; a duplicate's payload is discarded.
type Ledger interface {
	Commit(ctx context.Context, env *event.Envelope) (created bool, err error)
}
