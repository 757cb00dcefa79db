package memory

import (
	"context"
	"sync"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"
)

// Queue is an in-process channel with at-least-once delivery. A dequeued
// item that is neither acked nor nacked within the visibility timeout is
// returned to the queue, mirroring the Redis backend's reclaimer.
type Queue struct {
	items      chan *queueItem
	visibility time.Duration
}

type queueItem struct {
	env *event.Envelope
	raw []byte

	mu    sync.Mutex
	acked bool
	timer *time.Timer
}

func NewQueue(capacity int, visibility time.Duration) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &Queue{
		items:      make(chan *queueItem, capacity),
		visibility: visibility,
	}
}

var _ channel.Channel = (*Queue)(nil)

func (q *Queue) Enqueue(ctx context.Context, env *event.Envelope) error {
	raw, err := env.Encode()
	if err != nil {
		return err
	}

	item := &queueItem{env: env, raw: raw}
	select {
	case q.items <- item:
		return nil
	default:
		// Full buffer looks the same as an unreachable broker to the caller.
		return channel.ErrUnavailable
	}
}

func (q *Queue) Dequeue(ctx context.Context) (*channel.Delivery, error) {
	select {
	case item := <-q.items:
		return q.newDelivery(item), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) newDelivery(item *queueItem) *channel.Delivery {
	item.mu.Lock()
	item.acked = false
	item.timer = time.AfterFunc(q.visibility, func() { q.requeue(item) })
	item.mu.Unlock()

	settle := func(requeue bool) error {
		item.mu.Lock()
		defer item.mu.Unlock()
		if item.acked {
			return nil
		}
		item.acked = true
		if item.timer != nil {
			item.timer.Stop()
		}
		if requeue {
			q.redeliver(item)
		}
		return nil
	}

	var env *event.Envelope
	if item.env != nil && item.env.Validate() == nil {
		env = item.env
	}

	return &channel.Delivery{
		Envelope: env,
		Raw:      item.raw,
		Ack:      func(ctx context.Context) error { return settle(false) },
		Nack:     func(ctx context.Context) error { return settle(true) },
	}
}

func (q *Queue) requeue(item *queueItem) {
	item.mu.Lock()
	if item.acked {
		item.mu.Unlock()
		return
	}
	item.acked = true
	item.mu.Unlock()

	q.redeliver(item)
}

// redeliver returns an item to the deliverable set. A full buffer must not
// lose the item, so the send falls back to blocking off the caller's
// goroutine until a consumer drains space.
func (q *Queue) redeliver(item *queueItem) {
	select {
	case q.items <- item:
	default:
		go func() { q.items <- item }()
	}
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

func (q *Queue) Close() error {
	return nil
}
