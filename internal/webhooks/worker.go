package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"planscore/internal/metrics"
)

// Worker posts queued deliveries to the publisher's URL, retrying failures
// with exponential backoff up to MaxAttempts.
type Worker struct {
	Pub         *Publisher
	HTTP        *http.Client
	MaxAttempts int
	Backoff     func(attempts int) time.Duration
	log         zerolog.Logger
}

func NewWorker(p *Publisher, maxAttempts int, log zerolog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		Pub:         p,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		Backoff:     nextBackoff,
		log:         log.With().Str("component", "webhooks").Logger(),
	}
}

// Run drains the queue until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-w.Pub.queue:
			w.deliver(ctx, d)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, d Delivery) bool {
	for {
		d.Attempts++
		code, latency, err := w.post(ctx, d)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.WebhookDeliveries.WithLabelValues(d.EventType, status).Inc()
		metrics.WebhookLatency.WithLabelValues(d.EventType, status).Observe(float64(latency.Milliseconds()))
		if err == nil {
			return true
		}
		ev := w.log.Warn().Err(err).Str("id", d.ID).Int("code", code).Int("attempt", d.Attempts)
		if d.Attempts >= w.MaxAttempts {
			ev.Msg("webhook delivery failed permanently")
			return false
		}
		ev.Msg("webhook delivery failed; retrying")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.Backoff(d.Attempts)):
		}
	}
}

func (w *Worker) post(ctx context.Context, d Delivery) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Pub.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Event-Id", d.ID)
	if w.Pub.Secret != "" {
		req.Header.Set("X-Signature", Sign(w.Pub.Secret, time.Now(), d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, latency, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, latency, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
