package redisq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunReclaimer periodically returns deliveries whose visibility deadline
// has passed to the main queue. A delivery that was acked between the scan
// and the LRem removes zero entries and is skipped, so an acked envelope is
// never resurrected.
func (q *Queue) RunReclaimer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("queue reclaimer started", "queue", q.key, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.Reclaim(ctx); err != nil {
				slog.Error("reclaim pass failed", "error", err)
			} else if n > 0 {
				slog.Info("requeued stale deliveries", "count", n)
			}
		}
	}
}

// Reclaim performs one pass and reports how many deliveries were requeued.
func (q *Queue) Reclaim(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	stale, err := q.client.ZRangeByScore(ctx, q.pending, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan pending deadlines: %w", err)
	}

	requeued := 0
	for _, body := range stale {
		removed, err := q.client.LRem(ctx, q.processing, 1, body).Result()
		if err != nil {
			return requeued, fmt.Errorf("remove stale delivery: %w", err)
		}
		if err := q.client.ZRem(ctx, q.pending, body).Err(); err != nil {
			return requeued, fmt.Errorf("clear stale deadline: %w", err)
		}
		if removed == 0 {
			// Acked concurrently; nothing to requeue.
			continue
		}
		if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
			return requeued, fmt.Errorf("requeue stale delivery: %w", err)
		}
		requeued++
	}

	return requeued, nil
}
