package realtime

import (
	"sync"
)

// Conn is the write side of a live connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub is the process-wide connection registry: one live connection per
// account. It is owned by the app context and injected into services instead
// of being referenced as ambient state.
type Hub struct {
	mu    sync.Mutex
	conns map[uint64]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[uint64]Conn)}
}

// Register stores the connection for an account, closing any previous one.
func (h *Hub) Register(userID uint64, conn Conn) {
	h.mu.Lock()
	prev := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Unregister removes the connection if it is still the registered one.
func (h *Hub) Unregister(userID uint64, conn Conn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// SendIfConnected delivers an event to the account's live connection.
// Best-effort: returns false when the peer is offline or the write fails;
// that is an expected condition, never an error.
func (h *Hub) SendIfConnected(userID uint64, event interface{}) bool {
	h.mu.Lock()
	conn := h.conns[userID]
	h.mu.Unlock()

	if conn == nil {
		return false
	}
	return conn.WriteJSON(event) == nil
}
