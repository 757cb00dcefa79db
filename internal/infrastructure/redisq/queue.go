package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const dequeueBlock = 2 * time.Second

type Config struct {
	QueueKey   string
	Visibility time.Duration
}

// Queue is a Redis-list channel with at-least-once delivery. Enqueue pushes
// onto the main list; Dequeue atomically moves an entry onto a processing
// list where it stays until acked. A sorted set tracks per-delivery
// deadlines so the reclaimer can return stale entries to the main list
// after the visibility timeout (worker crash, missed ack).
type Queue struct {
	client     *redis.Client
	key        string
	processing string
	pending    string
	visibility time.Duration
}

func New(client *redis.Client, cfg Config) *Queue {
	key := cfg.QueueKey
	if key == "" {
		key = "event_queue"
	}
	visibility := cfg.Visibility
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &Queue{
		client:     client,
		key:        key,
		processing: key + ":processing",
		pending:    key + ":pending",
		visibility: visibility,
	}
}

var _ channel.Channel = (*Queue)(nil)

// entry wraps the envelope with a delivery id so that two submissions of
// the same logical event remain distinct entries in the processing
// bookkeeping. Dedup happens at the ledger, not here.
type entry struct {
	ID       string          `json:"id"`
	Envelope json.RawMessage `json:"envelope"`
}

func (q *Queue) Enqueue(ctx context.Context, env *event.Envelope) error {
	raw, err := env.Encode()
	if err != nil {
		return err
	}

	body, err := json.Marshal(entry{ID: uuid.New().String(), Envelope: raw})
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("%w: lpush: %v", channel.ErrUnavailable, err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (*channel.Delivery, error) {
	for {
		body, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", dequeueBlock).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: blmove: %v", channel.ErrUnavailable, err)
		}

		deadline := float64(time.Now().Add(q.visibility).UnixMilli())
		if err := q.client.ZAdd(ctx, q.pending, redis.Z{Score: deadline, Member: body}).Err(); err != nil {
			slog.Warn("failed to track delivery deadline", "error", err)
		}

		return q.newDelivery(body), nil
	}
}

func (q *Queue) newDelivery(body string) *channel.Delivery {
	var ent entry
	var env *event.Envelope
	raw := []byte(body)

	if err := json.Unmarshal(raw, &ent); err == nil && len(ent.Envelope) > 0 {
		raw = ent.Envelope
		env, _ = event.Decode(ent.Envelope)
	} else {
		// Foreign writers push bare envelopes without the delivery wrapper.
		env, _ = event.Decode(raw)
	}

	return &channel.Delivery{
		Envelope: env,
		Raw:      raw,
		Ack: func(ctx context.Context) error {
			pipe := q.client.TxPipeline()
			pipe.LRem(ctx, q.processing, 1, body)
			pipe.ZRem(ctx, q.pending, body)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("%w: ack: %v", channel.ErrUnavailable, err)
			}
			return nil
		},
		Nack: func(ctx context.Context) error {
			pipe := q.client.TxPipeline()
			pipe.LRem(ctx, q.processing, 1, body)
			pipe.ZRem(ctx, q.pending, body)
			pipe.LPush(ctx, q.key, body)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("%w: nack: %v", channel.ErrUnavailable, err)
			}
			return nil
		},
	}
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: llen: %v", channel.ErrUnavailable, err)
	}
	return n, nil
}

func (q *Queue) Close() error {
	return nil
}
