// Package main runs a demo WebSocket client that watches a reschedule run.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoPlan = `{"plan":{"personId":"demo","day":[
 {"kind":"activity","act":"home","start":"00:00:00","end":"07:00:00"},
 {"kind":"leg","mode":"car","start":"07:00:00","end":"08:00:00","distance":1000},
 {"kind":"activity","act":"shop","start":"08:00:00","end":"08:30:00"},
 {"kind":"leg","mode":"walk","start":"08:30:00","end":"09:00:00","distance":1000},
 {"kind":"activity","act":"work","start":"09:00:00","end":"17:00:00"},
 {"kind":"leg","mode":"car","start":"17:00:00","end":"19:00:00","distance":1000},
 {"kind":"activity","act":"home","start":"19:00:00","end":"24:00:00"}]},
 "patience":500,"seed":1}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/stream"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: json.RawMessage(`{"personId":"demo"}`)}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			var evt struct {
				Type string `json:"type"`
			}
			if m.Type == "next" && json.Unmarshal(m.Payload, &evt) == nil && evt.Type == "reschedule.completed" {
				return
			}
		}
	}()

	// Start a run once the subscription is in place
	time.Sleep(500 * time.Millisecond)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/reschedule", bytes.NewReader([]byte(demoPlan)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "planner")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("reschedule: %s", resp.Status)

	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
