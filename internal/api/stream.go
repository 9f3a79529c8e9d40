package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"planscore/internal/model"
)

// Reschedule event stream over WebSocket. The message flow follows
// graphql-transport-ws: connection_init/connection_ack, then subscribe and
// complete by id, with next frames carrying events.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// streamPingInterval is how often an acknowledged connection gets a ping.
var streamPingInterval = 20 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// subscribePayload selects one person's events, optionally narrowed to the
// listed event types.
type subscribePayload struct {
	PersonID string   `json:"personId"`
	Types    []string `json:"types,omitempty"`
}

func (p subscribePayload) wants(evtType string) bool {
	if len(p.Types) == 0 {
		return true
	}
	for _, t := range p.Types {
		if t == evtType {
			return true
		}
	}
	return false
}

// StreamHandler handles /v1/stream. A personId query parameter subscribes
// immediately under id "default" without a subscribe message.
func (s *Server) StreamHandler(w http.ResponseWriter, r *http.Request) {
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer func() { _ = conn.Close() }()
	log := s.Log.With().Str("tenant", pr.Tenant).Str("remote", r.RemoteAddr).Logger()

	type sub struct {
		topic string
		ch    chan model.Event
	}
	subs := map[string]sub{}

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })

	done := make(chan struct{})
	defer close(done)
	var pingOnce sync.Once
	keepalive := func() {
		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := write(wsMessage{Type: "ping"}); err != nil {
					return
				}
			}
		}
	}
	startKeepalive := func() { pingOnce.Do(func() { go keepalive() }) }

	subscribe := func(id string, pl subscribePayload) {
		if pl.PersonID == "" {
			_ = write(wsMessage{Type: "error", ID: id, Payload: []byte(`{"message":"personId required"}`)})
			_ = write(wsMessage{Type: "complete", ID: id})
			return
		}
		if old, ok := subs[id]; ok {
			s.Broker.Unsubscribe(old.topic, old.ch)
		}
		topic := topicFor(pr.Tenant, pl.PersonID)
		ch := s.Broker.Subscribe(topic)
		subs[id] = sub{topic: topic, ch: ch}
		log.Debug().Str("id", id).Str("person", pl.PersonID).Msg("stream subscribe")
		go func() {
			for evt := range ch {
				if !pl.wants(evt.Type) {
					continue
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				_ = write(wsMessage{Type: "next", ID: id, Payload: payload})
			}
			_ = write(wsMessage{Type: "complete", ID: id})
		}()
	}

	if person := r.URL.Query().Get("personId"); person != "" {
		subscribe("default", subscribePayload{PersonID: person})
		_ = write(wsMessage{Type: "connection_ack"})
		startKeepalive()
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			startKeepalive()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			if err := json.Unmarshal(msg.Payload, &pl); err != nil {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"invalid payload"}`)})
				continue
			}
			subscribe(msg.ID, pl)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.topic, s0.ch)
				delete(subs, msg.ID)
			}
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.topic, s0.ch)
		delete(subs, id)
	}
}
