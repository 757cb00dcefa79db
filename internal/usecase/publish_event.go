package usecase

import (
	"context"
	"encoding/json"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"
)

// PublishEvent accepts a structured submission and hands it to the channel.
// The 202 it leads to is an acceptance acknowledgment, not a storage
// confirmation: storage happens asynchronously in the worker pool.
type PublishEvent struct {
	ch channel.Channel
}

func NewPublishEvent(ch channel.Channel) *PublishEvent {
	return &PublishEvent{ch: ch}
}

type PublishEventParams struct {
	Topic     string          `json:"topic"`
	EventID   string          `json:"event_id"`
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

func (uc *PublishEvent) Execute(ctx context.Context, params PublishEventParams) (string, error) {
	env := &event.Envelope{
		Topic:      params.Topic,
		EventID:    params.EventID,
		Timestamp:  params.Timestamp,
		Source:     params.Source,
		Payload:    params.Payload,
		ReceivedAt: time.Now().UTC(),
	}

	// Reject structurally broken submissions at the door instead of
	// poisoning the queue with them.
	if err := env.Validate(); err != nil {
		return "", err
	}

	if err := uc.ch.Enqueue(ctx, env); err != nil {
		return "", err
	}

	return env.EventID, nil
}
