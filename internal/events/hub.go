// Package events is the in-process fan-out feeding the SSE endpoint: the
// worker announces per-job and per-run outcomes, subscribers get JSON lines.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

type Event struct {
	Type  string    `json:"type"` // job_created | job_done | job_error | run_done
	At    time.Time `json:"at"`
	JobID int64     `json:"job_id,omitempty"`
	RunID string    `json:"run_id,omitempty"`
	Count int       `json:"count,omitempty"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish serializes the event and hands it to every subscriber. Slow
// subscribers are skipped, never waited on.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, _ := json.Marshal(e)
	msg := string(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// drop for slow clients
		}
	}
}
