package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Delivery is one event body queued for the webhook endpoint.
type Delivery struct {
	ID        string
	EventType string
	Payload   []byte
	Attempts  int
}

// Publisher queues events for a single configured endpoint. A nil or
// URL-less Publisher drops everything.
type Publisher struct {
	URL    string
	Secret string
	queue  chan Delivery
	log    zerolog.Logger
}

func NewPublisher(url, secret string, buffer int, log zerolog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{URL: url, Secret: secret, queue: make(chan Delivery, buffer), log: log.With().Str("component", "webhooks").Logger()}
}

func (p *Publisher) Enabled() bool { return p != nil && p.URL != "" }

// Emit enqueues an event without blocking. When the queue is full the event
// is dropped and logged.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	if !p.Enabled() {
		return
	}
	id := "evt_" + uuid.New().String()
	payload := map[string]any{
		"id":       id,
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("event", eventType).Msg("encode webhook payload")
		return
	}
	select {
	case p.queue <- Delivery{ID: id, EventType: eventType, Payload: body}:
	case <-ctx.Done():
	default:
		p.log.Warn().Str("event", eventType).Str("id", id).Int("capacity", cap(p.queue)).Msg("webhook queue full; dropping")
	}
}
