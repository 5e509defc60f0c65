// Package events pushes editor events to browser clients over WebSocket.
// Clients subscribe to one scene; events are fanned out per scene.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event is the JSON frame sent to subscribers.
type Event struct {
	Type      string    `json:"type"`
	SceneID   string    `json:"scene_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger
	now        func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// Publish queues an event for the scene's subscribers. It never blocks;
// events are dropped when the queue is full.
func (h *Hub) Publish(sceneID, kind string, payload any) {
	ev := &Event{Type: kind, SceneID: sceneID, Data: payload, Timestamp: h.now().UTC()}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("event queue full, dropping event", "type", kind, "scene_id", sceneID)
	}
}

// Subscribers returns the number of clients watching sceneID.
func (h *Hub) Subscribers(sceneID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sceneID])
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for scene, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
				delete(h.clients, scene)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.sceneID] == nil {
				h.clients[c.sceneID] = make(map[*Client]struct{})
			}
			h.clients[c.sceneID][c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("event client joined", "scene_id", c.sceneID)

		case c := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			msg, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to encode event", "type", ev.Type, "error", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients[ev.SceneID] {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("event client too slow, disconnecting", "scene_id", ev.SceneID)
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.clients[c.sceneID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.sceneID)
	}
}
