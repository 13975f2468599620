package hub

import (
	"log/slog"
	"sync"

	"cowatch-sync-server/domain"
)

type room struct {
	clients map[string]struct{}
}

// Hub delivers outbound frames. It keeps its own room index for addressing;
// the room store remains the owner of membership and playback state.
type Hub struct {
	conns map[string]domain.Connection
	rooms map[string]*room
	mu    sync.RWMutex
}

func New() *Hub {
	return &Hub{
		conns: make(map[string]domain.Connection),
		rooms: make(map[string]*room),
	}
}

func (h *Hub) Register(connID string, conn domain.Connection) {
	h.mu.Lock()
	h.conns[connID] = conn
	count := len(h.conns)
	h.mu.Unlock()

	slog.Debug("client connected", "clientId", connID, "clients", count)
}

// Unregister detaches the connection and drops it from every room index.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	for code, r := range h.rooms {
		delete(r.clients, connID)
		if len(r.clients) == 0 {
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()

	slog.Debug("client disconnected", "clientId", connID)
}

func (h *Hub) Join(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, exists := h.rooms[code]
	if !exists {
		r = &room{clients: make(map[string]struct{})}
		h.rooms[code] = r
	}
	r.clients[connID] = struct{}{}
}

func (h *Hub) Leave(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, exists := h.rooms[code]
	if !exists {
		return
	}
	delete(r.clients, connID)
	if len(r.clients) == 0 {
		delete(h.rooms, code)
	}
}

func (h *Hub) SendTo(connID string, data []byte) {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if ok {
		h.deliver(connID, conn, data)
	}
}

func (h *Hub) SendToRoom(code string, data []byte) {
	h.SendToRoomExcept(code, "", data)
}

func (h *Hub) SendToRoomExcept(code, excludeID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, exists := h.rooms[code]
	if !exists {
		return
	}

	for id := range r.clients {
		if id == excludeID {
			continue
		}
		if conn, ok := h.conns[id]; ok {
			h.deliver(id, conn, data)
		}
	}
}

// deliver is fire-and-forget. A connection that cannot keep up is closed,
// which ends its read loop and runs the regular disconnect path.
func (h *Hub) deliver(id string, conn domain.Connection, data []byte) {
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed, closing connection", "clientId", id, "error", err)
		go conn.Close()
	}
}

// CloseAll closes every registered connection. Each connection's read loop
// then runs the normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]domain.Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.conns)
}
