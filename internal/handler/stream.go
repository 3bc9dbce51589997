package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/marketsim/internal/market"
)

// Hub fans round snapshots out to websocket subscribers. Broadcast never
// blocks: a subscriber that falls behind misses snapshots rather than
// stalling the round loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	ch chan market.RoundSnapshot
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscription]struct{})}
}

func (h *Hub) subscribe(buffer int) *subscription {
	sub := &subscription{ch: make(chan market.RoundSnapshot, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Broadcast delivers a snapshot to every subscriber that has room.
func (h *Hub) Broadcast(snap market.RoundSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

// StreamHandler upgrades clients to websocket and writes one JSON round
// snapshot per completed round.
type StreamHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a StreamHandler over the given hub.
func NewStreamHandler(hub *Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS handles one websocket client for the lifetime of its connection.
func (s *StreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := s.hub.subscribe(16)
	defer s.hub.unsubscribe(sub)

	// Drain reads so we notice the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
