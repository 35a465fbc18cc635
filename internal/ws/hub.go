package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is a change notification pushed to dashboards after an engine
// mutation. Subscribers re-read the affected resource; events carry no
// incremental state beyond identifiers.
type Event struct {
	Type    string      `json:"type"`
	AgentID uint        `json:"agent_id"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Client represents a single WebSocket connection with agent context.
type Client struct {
	AgentID uint
	Role    string
	Send    chan []byte
	hub     *Hub
	mu      sync.Mutex
	closed  bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// trySend delivers data unless the client is closed or its buffer is full.
// The lock orders it against Close, so the send can never hit a closed
// channel.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Hub maintains the set of active clients and fans events out to them. Engine
// services publish here after successful mutations; the hub never blocks a
// writer on a slow subscriber (full send buffers drop the message).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// agentID -> clients (one agent can have multiple connections)
	byAgent map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byAgent: make(map[uint]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
	if h.byAgent[c.AgentID] == nil {
		h.byAgent[c.AgentID] = make(map[*Client]struct{})
	}
	h.byAgent[c.AgentID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byAgent[c.AgentID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byAgent, c.AgentID)
		}
	}
}

// Publish sends the event to the affected agent's connections and to any
// admin connections. Safe to call with no subscribers.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, 4)
	for c := range h.byAgent[ev.AgentID] {
		targets = append(targets, c)
	}
	for c := range h.clients {
		if c.Role == "ADMIN" && c.AgentID != ev.AgentID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
