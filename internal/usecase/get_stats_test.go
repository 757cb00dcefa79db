package usecase

import (
	"context"
	"testing"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"
	"aggregator/internal/infrastructure/memory"
	"aggregator/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenChannel struct{}

func (brokenChannel) Enqueue(ctx context.Context, env *event.Envelope) error {
	return channel.ErrUnavailable
}
func (brokenChannel) Dequeue(ctx context.Context) (*channel.Delivery, error) {
	return nil, channel.ErrUnavailable
}
func (brokenChannel) Depth(ctx context.Context) (int64, error) {
	return 0, channel.ErrUnavailable
}
func (brokenChannel) Close() error { return nil }

func TestGetStatsIncludesBacklog(t *testing.T) {
	agg := stats.New()
	queue := memory.NewQueue(8, time.Minute)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-1"}))
	require.NoError(t, queue.Enqueue(ctx, &event.Envelope{Topic: "t", EventID: "e-2"}))
	agg.RecordDelivery()
	agg.RecordUnique()

	dto := NewGetStats(agg, queue).Execute(ctx)
	assert.Equal(t, int64(1), dto.Received)
	assert.Equal(t, int64(1), dto.UniqueProcessed)
	assert.Equal(t, int64(0), dto.DuplicateDropped)
	assert.Equal(t, int64(2), dto.QueueBacklog)
	assert.Equal(t, "healthy", dto.Status)
}

func TestGetStatsDegradedWhenChannelUnreachable(t *testing.T) {
	dto := NewGetStats(stats.New(), brokenChannel{}).Execute(context.Background())
	assert.Equal(t, "degraded", dto.Status)
	assert.Equal(t, int64(0), dto.QueueBacklog)
}

func TestPublishEventValidatesBeforeEnqueue(t *testing.T) {
	queue := memory.NewQueue(8, time.Minute)
	uc := NewPublishEvent(queue)
	ctx := context.Background()

	_, err := uc.Execute(ctx, PublishEventParams{Topic: "t"})
	require.ErrorIs(t, err, event.ErrMalformed)

	id, err := uc.Execute(ctx, PublishEventParams{Topic: "t", EventID: "e-1"})
	require.NoError(t, err)
	assert.Equal(t, "e-1", id)

	depth, _ := queue.Depth(ctx)
	assert.Equal(t, int64(1), depth)
}

func TestPublishEventSurfacesChannelUnavailable(t *testing.T) {
	uc := NewPublishEvent(brokenChannel{})
	_, err := uc.Execute(context.Background(), PublishEventParams{Topic: "t", EventID: "e-1"})
	require.ErrorIs(t, err, channel.ErrUnavailable)
}
