package transport

import (
	"encoding/json"
	"sync"

	"github.com/tkahng/gamecore/websocket"
)

// RoomHub tracks which connected Clients are seated in which room and
// implements coordinator.Broadcaster over that membership. It is
// deliberately its own lightweight registry rather than one
// websocket.Manager/Broadcaster per room: a room's membership changes far
// more often than a connection's lifetime (a user leaves one room and joins
// another over the same socket), and websocket.Manager.UnregisterClient
// tears the underlying connection down — exactly the opposite of what
// "leave a room, keep the socket" needs. The connection's own lifecycle is
// tracked separately by the single server-wide websocket.Manager in
// server.go.
type RoomHub struct {
	mu         sync.RWMutex
	rooms      map[int]map[websocket.Client]struct{}
	clientRoom map[websocket.Client]int
	clientUser map[websocket.Client]string
	userClient map[string]websocket.Client
}

func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms:      make(map[int]map[websocket.Client]struct{}),
		clientRoom: make(map[websocket.Client]int),
		clientUser: make(map[websocket.Client]string),
		userClient: make(map[string]websocket.Client),
	}
}

// Bind associates a freshly connected client with its (anonymous or
// authenticated) user ID, ahead of that user joining any room.
func (h *RoomHub) Bind(c websocket.Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientUser[c] = userID
	h.userClient[userID] = c
}

// Unbind removes a client entirely, releasing its room membership and its
// user association. Called once the connection itself has closed.
func (h *RoomHub) Unbind(c websocket.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if roomID, ok := h.clientRoom[c]; ok {
		delete(h.rooms[roomID], c)
	}
	delete(h.clientRoom, c)
	if userID, ok := h.clientUser[c]; ok {
		delete(h.userClient, userID)
	}
	delete(h.clientUser, c)
}

// UserOf reports the user ID bound to a client, if any.
func (h *RoomHub) UserOf(c websocket.Client) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	userID, ok := h.clientUser[c]
	return userID, ok
}

// Join seats a user's client into roomID's broadcast membership, leaving
// any room it was previously seated in.
func (h *RoomHub) Join(roomID int, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.userClient[userID]
	if !ok {
		return
	}
	if prev, ok := h.clientRoom[c]; ok {
		delete(h.rooms[prev], c)
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[websocket.Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	h.clientRoom[c] = roomID
}

// Leave drops a user's client out of whatever room it is currently seated
// in, without touching the underlying connection.
func (h *RoomHub) Leave(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.userClient[userID]
	if !ok {
		return
	}
	if roomID, ok := h.clientRoom[c]; ok {
		delete(h.rooms[roomID], c)
	}
	delete(h.clientRoom, c)
}

// BroadcastToRoom implements coordinator.Broadcaster: it encodes event and
// payload into an Envelope and writes it to every client currently seated
// in roomID. A write failure on one client never blocks delivery to the
// others; the connection's own ReadForever/WriteForever loop will notice
// the broken socket and tear itself down independently.
func (h *RoomHub) BroadcastToRoom(roomID int, event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	members := make([]websocket.Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		_, _ = c.Write(data)
	}
}

// EmitToUser implements coordinator.Broadcaster: it writes event/payload
// directly to one user's client, bypassing room membership entirely. Used
// when the coordinator has no room to scope a broadcast to — an unscoped
// waiting{in_game:false} reply, or a leaver's own final end_game/end_lobby
// sent after their room membership has already been dropped. A no-op if the
// user has no bound client (already disconnected).
func (h *RoomHub) EmitToUser(userID string, event string, payload any) {
	h.mu.RLock()
	c, ok := h.userClient[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}
	_, _ = c.Write(data)
}

// CloseRoom implements coordinator.Broadcaster: it drops every client's
// membership in roomID. Connections are left open so their occupants can
// create or join a fresh room.
func (h *RoomHub) CloseRoom(roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[roomID] {
		delete(h.clientRoom, c)
	}
	delete(h.rooms, roomID)
}
