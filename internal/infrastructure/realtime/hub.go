package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks live connections and the rooms they are subscribed to. A user may
// hold any number of connections; each joins rooms independently.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connID -> connection
	rooms     map[string]map[string]*Connection // room -> connID -> connection
	connRooms map[string]map[string]struct{}    // connID -> rooms
}

func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		connRooms: make(map[string]map[string]struct{}),
	}
}

// Attach starts tracking conn.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	if h.connRooms[conn.ID] == nil {
		h.connRooms[conn.ID] = make(map[string]struct{})
	}
	h.mu.Unlock()
}

// Detach removes conn and all of its room subscriptions.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join subscribes conn to room. It reports false for untracked connections.
func (h *Hub) Join(room string, conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.ID]; !ok {
		return false
	}

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn
	h.connRooms[conn.ID][room] = struct{}{}
	return true
}

func (h *Hub) Leave(room string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(room, conn.ID)
	h.mu.Unlock()
}

func (h *Hub) InRoom(room string, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][connID]
	return ok
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms lists the rooms conn is subscribed to.
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.connRooms[connID]))
	for room := range h.connRooms[connID] {
		out = append(out, room)
	}
	return out
}

// Broadcast sends payload to every connection in room except exceptConnID and
// returns how many accepted it.
func (h *Hub) Broadcast(room string, payload []byte, exceptConnID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, conn := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers payload to a single tracked connection.
func (h *Hub) SendTo(connID string, payload []byte) bool {
	h.mu.RLock()
	conn := h.conns[connID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates every tracked connection and clears state.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.connRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (h *Hub) detachLocked(connID string) {
	if _, ok := h.conns[connID]; !ok {
		return
	}
	delete(h.conns, connID)
	for room := range h.connRooms[connID] {
		h.leaveLocked(room, connID)
	}
	delete(h.connRooms, connID)
}

func (h *Hub) leaveLocked(room string, connID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if joined, ok := h.connRooms[connID]; ok {
		delete(joined, room)
	}
}
