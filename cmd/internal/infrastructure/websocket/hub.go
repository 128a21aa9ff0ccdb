package websocket

import (
	"context"
	"encoding/json"
	"sync"
)

// Hub is the in-process connection registry used when clients connect
// straight to this server.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) error {
	if c == nil || c.conn == nil {
		return errNilConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.Handle] = c
	return nil
}

// Unregister removes c only if it is still the client registered under its handle.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.Handle]; ok && cur == c {
		delete(h.clients, c.Handle)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) get(handle string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[handle]
	return c, ok
}

func (h *Hub) PostToConnection(_ context.Context, connID string, data interface{}) error {
	c, ok := h.get(connID)
	if !ok {
		return ErrConnectionGone
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.Enqueue(payload)
}

func (h *Hub) DeleteConnection(_ context.Context, connID string) error {
	c, ok := h.get(connID)
	if !ok {
		return ErrConnectionGone
	}
	c.Close()
	return nil
}
