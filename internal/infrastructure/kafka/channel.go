package kafka

import (
	"context"
	"fmt"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Channel adapts a Kafka topic to the delivery contract. Consumer-group
// offsets give at-least-once semantics: an offset is committed only on ack.
// Kafka cannot return a single message to a partition, so nack re-produces
// the original bytes to the topic and then commits the fetched offset;
// redelivery therefore loses ordering, which the pipeline does not rely on.
type Channel struct {
	reader  *kafka.Reader
	writer  *kafka.Writer
	tracker *ackTracker
}

func New(cfg Config) *Channel {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: false,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
		StartOffset: kafka.FirstOffset,
	})

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &Channel{reader: reader, writer: writer, tracker: newAckTracker()}
}

var _ channel.Channel = (*Channel)(nil)

func (c *Channel) Enqueue(ctx context.Context, env *event.Envelope) error {
	raw, err := env.Encode()
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(env.DedupKey().String()),
		Value: raw,
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: write message: %v", channel.ErrUnavailable, err)
	}
	return nil
}

func (c *Channel) Dequeue(ctx context.Context) (*channel.Delivery, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: fetch message: %v", channel.ErrUnavailable, err)
	}

	env, _ := event.Decode(msg.Value)
	c.tracker.track(msg)

	return &channel.Delivery{
		Envelope: env,
		Raw:      msg.Value,
		Ack: func(ctx context.Context) error {
			return c.commitSettled(ctx, msg)
		},
		Nack: func(ctx context.Context) error {
			redeliver := kafka.Message{Key: msg.Key, Value: msg.Value}
			if err := c.writer.WriteMessages(ctx, redeliver); err != nil {
				return fmt.Errorf("%w: requeue message: %v", channel.ErrUnavailable, err)
			}
			// The copy is back on the topic, so this offset is settled too.
			return c.commitSettled(ctx, msg)
		},
	}, nil
}

// commitSettled marks the message settled and commits the group offset only
// up to the contiguous frontier, so a slower worker's in-flight envelope is
// never acknowledged by a faster sibling. A failed commit is safe to drop:
// the frontier is retained by the next settle, and redelivering already
// committed keys lands on AlreadyExists.
func (c *Channel) commitSettled(ctx context.Context, msg kafka.Message) error {
	frontier, advanced := c.tracker.settle(msg.Partition, msg.Offset)
	if !advanced {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, frontier); err != nil {
		return fmt.Errorf("%w: commit message: %v", channel.ErrUnavailable, err)
	}
	return nil
}

func (c *Channel) Depth(ctx context.Context) (int64, error) {
	return c.reader.Lag(), nil
}

func (c *Channel) Close() error {
	rErr := c.reader.Close()
	wErr := c.writer.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}
