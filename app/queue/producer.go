package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

type EventProducer struct {
	client *redis.Client
}

// NewEventProducer constructs a Redis stream producer.
func NewEventProducer(client *redis.Client) *EventProducer {
	return &EventProducer{client: client}
}

// Publish pushes an operator event onto the stream.
func (p *EventProducer) Publish(ctx context.Context, ev entity.OperatorEvent) error {
	values, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		MaxLen: streamMaxLen,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", StreamName, err)
	}
	return nil
}
