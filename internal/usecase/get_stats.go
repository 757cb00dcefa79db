package usecase

import (
	"context"
	"log/slog"

	"aggregator/internal/channel"
	"aggregator/internal/stats"
)

type StatsDTO struct {
	Received         int64  `json:"received"`
	UniqueProcessed  int64  `json:"unique_processed"`
	DuplicateDropped int64  `json:"duplicate_dropped"`
	QueueBacklog     int64  `json:"queue_backlog"`
	Status           string `json:"status"`
}

// GetStats exposes the counter snapshot plus the channel backlog.
type GetStats struct {
	agg *stats.Aggregator
	ch  channel.Channel
}

func NewGetStats(agg *stats.Aggregator, ch channel.Channel) *GetStats {
	return &GetStats{agg: agg, ch: ch}
}

func (uc *GetStats) Execute(ctx context.Context) *StatsDTO {
	snap := uc.agg.Snapshot()

	dto := &StatsDTO{
		Received:         snap.Received,
		UniqueProcessed:  snap.Unique,
		DuplicateDropped: snap.Duplicates,
		Status:           "healthy",
	}

	backlog, err := uc.ch.Depth(ctx)
	if err != nil {
		slog.Warn("failed to read queue backlog", "error", err)
		dto.Status = "degraded"
		return dto
	}
	dto.QueueBacklog = backlog

	return dto
}
