package memory

import (
	"context"
	"testing"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueAck(t *testing.T) {
	q := NewQueue(4, time.Minute)
	ctx := context.Background()

	env := &event.Envelope{Topic: "t", EventID: "e-1", Payload: []byte(`{}`)}
	require.NoError(t, q.Enqueue(ctx, env))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, d.Envelope)
	assert.Equal(t, env.DedupKey(), d.Envelope.DedupKey())

	require.NoError(t, d.Ack(ctx))

	// Acked deliveries must not come back.
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNackRedelivers(t *testing.T) {
	q := NewQueue(4, time.Minute)
	ctx := context.Background()

	env := &event.Envelope{Topic: "t", EventID: "e-1", Payload: []byte(`{}`)}
	require.NoError(t, q.Enqueue(ctx, env))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Nack(ctx))

	redelivered, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, redelivered.Envelope)
	assert.Equal(t, env.DedupKey(), redelivered.Envelope.DedupKey())
}

func TestVisibilityTimeoutRedelivers(t *testing.T) {
	q := NewQueue(4, 30*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-1"}))

	// Dequeue and never ack, simulating a crashed worker.
	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	redelivered, err := q.Dequeue(waitCtx)
	require.NoError(t, err, "unacked delivery should be redelivered after the visibility timeout")
	require.NotNil(t, redelivered.Envelope)
	require.NoError(t, redelivered.Ack(ctx))
}

func TestMalformedEnvelopeDeliveredAsPoison(t *testing.T) {
	q := NewQueue(4, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &event.Envelope{Topic: "t"})) // no event_id

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, d.Envelope, "no dedup key is derivable")
	assert.NotEmpty(t, d.Raw)
	require.NoError(t, d.Ack(ctx))
}

func TestNackOnFullBufferStillRedelivers(t *testing.T) {
	q := NewQueue(1, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-1"}))
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)

	// Fill the buffer while the first delivery is in flight.
	require.NoError(t, q.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-2"}))

	require.NoError(t, first.Nack(ctx))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		d, err := q.Dequeue(waitCtx)
		cancel()
		require.NoError(t, err, "both envelopes must still be deliverable")
		require.NotNil(t, d.Envelope)
		seen[d.Envelope.EventID] = true
		require.NoError(t, d.Ack(ctx))
	}
	assert.True(t, seen["e-1"], "nacked delivery must not be dropped by a full buffer")
	assert.True(t, seen["e-2"])
}

func TestEnqueueFullBufferIsUnavailable(t *testing.T) {
	q := NewQueue(1, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-1"}))
	err := q.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-2"})
	require.ErrorIs(t, err, channel.ErrUnavailable)
}
