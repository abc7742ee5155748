package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

// EventHandler processes one decoded operator event.
type EventHandler func(ctx context.Context, ev entity.OperatorEvent) error

type EventConsumer struct {
	client       *redis.Client
	handler      EventHandler
	consumerName string
	logger       logrus.FieldLogger
}

// NewEventConsumer constructs a Redis stream consumer.
func NewEventConsumer(client *redis.Client, handler EventHandler, consumerName string, logger logrus.FieldLogger) *EventConsumer {
	return &EventConsumer{
		client:       client,
		handler:      handler,
		consumerName: consumerName,
		logger:       logger.WithFields(logrus.Fields{"component": "event_consumer", "consumer": consumerName}),
	}
}

// Run starts the consumer loop and blocks until context cancellation.
func (c *EventConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	c.logger.WithField("stream", StreamName).Info("consumer started")

	// First drain pending messages, then switch to reading new ones.
	startID := "0"
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer shutting down")
			return nil
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: c.consumerName,
			Streams:  []string{StreamName, startID},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if startID == "0" {
					startID = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				c.logger.Info("consumer shutting down")
				return nil
			}
			c.logger.WithError(err).Error("XReadGroup failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			if len(stream.Messages) == 0 && startID == "0" {
				startID = ">"
				continue
			}
			for _, msg := range stream.Messages {
				c.processMessage(ctx, msg)
			}
		}
	}
}

// processMessage handles a single message and acks it unless the handler
// fails. Undecodable messages are acked so they do not block the group.
func (c *EventConsumer) processMessage(ctx context.Context, msg redis.XMessage) {
	ev, err := decodeEvent(msg)
	if err != nil {
		c.logger.WithError(err).WithField("message_id", msg.ID).Warn("dropping malformed operator event")
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		c.logger.WithError(err).WithField("message_id", msg.ID).Error("operator event handler failed, message stays pending")
		return
	}

	c.ack(ctx, msg.ID)
}

func (c *EventConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, StreamName, ConsumerGroup, id).Err(); err != nil {
		c.logger.WithError(err).WithField("message_id", id).Error("XAck failed")
	}
}

// ensureGroup creates the stream and consumer group if missing.
func (c *EventConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, StreamName, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
