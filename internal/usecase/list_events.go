package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aggregator/internal/domain/record"

	"github.com/redis/go-redis/v9"
)

// ListEvents serves the read-only stored-events listing. Responses are
// cached in redis with a short TTL so a hot dashboard does not hammer the
// ledger; the cache is optional and the repository is the fallback.
type ListEvents struct {
	redisClient *redis.Client
	reader      record.Reader
}

func NewListEvents(redisClient *redis.Client, reader record.Reader) *ListEvents {
	return &ListEvents{
		redisClient: redisClient,
		reader:      reader,
	}
}

func (uc *ListEvents) Execute(ctx context.Context, f record.ListFilter) ([]*record.Record, error) {
	cacheKey := fmt.Sprintf("events:%s:%d:%d", f.Topic, f.Limit, f.Offset)

	if uc.redisClient != nil {
		val, err := uc.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var records []*record.Record
			if err := json.Unmarshal([]byte(val), &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := uc.reader.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	if uc.redisClient != nil {
		data, _ := json.Marshal(records)
		// TTL kept short so freshly stored events show up quickly
		uc.redisClient.Set(ctx, cacheKey, data, 1*time.Second)
	}

	return records, nil
}
