package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	mu     sync.Mutex
	bodies [][]byte
	sigs   []string
	hits   int
}

func TestWorkerDeliversSignedEvents(t *testing.T) {
	rec := &received{}
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.hits++
		fail := rec.hits == 1
		if !fail {
			rec.bodies = append(rec.bodies, body)
			rec.sigs = append(rec.sigs, r.Header.Get("X-Signature"))
		}
		rec.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		done <- struct{}{}
	}))
	defer srv.Close()

	pub := NewPublisher(srv.URL, "s3cret", 4, zerolog.Nop())
	w := NewWorker(pub, 3, zerolog.Nop())
	w.Backoff = func(int) time.Duration { return time.Millisecond }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	pub.Emit(ctx, "t1", "reschedule.completed", map[string]any{"personId": "p1"})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.hits)
	require.Len(t, rec.bodies, 1)
	assert.NoError(t, Verify("s3cret", rec.bodies[0], rec.sigs[0], time.Now(), time.Minute))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.bodies[0], &payload))
	assert.Equal(t, "reschedule.completed", payload["type"])
	assert.Equal(t, "t1", payload["tenantId"])
}

func TestWorkerGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub := NewPublisher(srv.URL, "", 1, zerolog.Nop())
	w := NewWorker(pub, 3, zerolog.Nop())
	w.Backoff = func(int) time.Duration { return 0 }

	ok := w.deliver(context.Background(), Delivery{ID: "evt_1", EventType: "x", Payload: []byte(`{}`)})
	assert.False(t, ok)
	assert.Equal(t, int32(3), hits.Load())
}

func TestEmitDisabledAndFull(t *testing.T) {
	var nilPub *Publisher
	nilPub.Emit(context.Background(), "t1", "x", nil)

	pub := NewPublisher("http://example.invalid", "", 1, zerolog.Nop())
	pub.Emit(context.Background(), "t1", "x", nil)
	pub.Emit(context.Background(), "t1", "x", nil)
	assert.Len(t, pub.queue, 1)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(0))
	assert.Equal(t, 8*time.Second, nextBackoff(3))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}
