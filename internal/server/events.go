package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

const (
	// hubBufferSize is the broadcast queue depth per subscriber
	hubBufferSize = 64

	// writeTimeout bounds a single WebSocket write
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The query API is already open to any origin; the stream follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans accepted flight updates out to WebSocket subscribers. Broadcast
// never blocks the classifier: a slow subscriber loses updates rather than
// stalling ingest.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan tracker.TrackedFlight]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan tracker.TrackedFlight]struct{}),
	}
}

// Broadcast delivers a flight update to every subscriber. Safe for
// concurrent use; drops per-subscriber when their queue is full.
func (h *Hub) Broadcast(f tracker.TrackedFlight) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- f:
		default:
		}
	}
}

func (h *Hub) subscribe() chan tracker.TrackedFlight {
	ch := make(chan tracker.TrackedFlight, hubBufferSize)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan tracker.TrackedFlight) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// SubscriberCount returns the number of connected stream clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// handleWebSocket upgrades the connection and streams every accepted flight
// update as a JSON message until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so pings and close messages are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("🔌 Stream client connected: %s", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}
