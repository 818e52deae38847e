package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Registry tracks live connections per room and fans messages out to them.
// Rooms are created lazily on first Register and deleted when the last
// connection leaves. The registry is in-memory and best-effort: it is not
// the source of truth for message content.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[*Conn]struct{}
	log   *zerolog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Conn]struct{}),
		log:   logger,
	}
}

// Register adds a sink to the room's connection set, creating the set if
// absent. A user may hold multiple connections (e.g. across tabs).
func (r *Registry) Register(roomID, userID string, sink Sink) *Conn {
	conn := &Conn{room: roomID, userID: userID, sink: sink}

	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.rooms[roomID] = set
	}
	set[conn] = struct{}{}
	r.mu.Unlock()

	r.log.Debug().Str("room", roomID).Str("user", userID).Msg("connection registered")
	return conn
}

// Unregister removes the connection from its room. Removing a connection
// that is already gone is a no-op. The room entry is deleted when its set
// becomes empty.
func (r *Registry) Unregister(conn *Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	set, ok := r.rooms[conn.room]
	if ok {
		if _, exists := set[conn]; exists {
			delete(set, conn)
			if len(set) == 0 {
				delete(r.rooms, conn.room)
			}
		}
	}
	r.mu.Unlock()
}

// Broadcast serializes frame once and writes it to every connection in the
// room. Connections whose write fails are pruned. A room with no listeners
// is a normal state, not an error.
func (r *Registry) Broadcast(roomID string, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.Error().Err(err).Str("room", roomID).Msg("marshal broadcast frame")
		return
	}
	r.BroadcastRaw(roomID, data)
}

// BroadcastRaw fans pre-serialized bytes out to every connection in the room.
func (r *Registry) BroadcastRaw(roomID string, data []byte) {
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	conns := make([]*Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	var dead []*Conn
	for _, conn := range conns {
		if err := conn.sink.Write(data); err != nil {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		r.Unregister(conn)
		r.log.Debug().Str("room", roomID).Str("user", conn.userID).Msg("pruned dead connection")
	}
}

// RoomSize returns the number of live connections in a room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}

// HasRoom reports whether the room currently has any connections.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}
