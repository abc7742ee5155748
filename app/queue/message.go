package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

const StreamName = "portfolio:contact:operator-events"
const ConsumerGroup = "operator-log-consumers"

// streamMaxLen caps the stream so an unattended deployment does not grow it forever.
const streamMaxLen = 10000

func encodeEvent(ev entity.OperatorEvent) (map[string]interface{}, error) {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return nil, fmt.Errorf("encode detail: %w", err)
	}
	return map[string]interface{}{
		"event":       ev.Event,
		"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
		"detail":      string(detail),
	}, nil
}

func decodeEvent(msg redis.XMessage) (entity.OperatorEvent, error) {
	event, _ := msg.Values["event"].(string)
	occurredAt, _ := msg.Values["occurred_at"].(string)
	rawDetail, _ := msg.Values["detail"].(string)

	if event == "" {
		return entity.OperatorEvent{}, fmt.Errorf("message %s has no event", msg.ID)
	}

	ev := entity.OperatorEvent{Event: event}
	if occurredAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return entity.OperatorEvent{}, fmt.Errorf("message %s occurred_at: %w", msg.ID, err)
		}
		ev.OccurredAt = ts
	}
	if rawDetail != "" {
		if err := json.Unmarshal([]byte(rawDetail), &ev.Detail); err != nil {
			return entity.OperatorEvent{}, fmt.Errorf("message %s detail: %w", msg.ID, err)
		}
	}
	return ev, nil
}
