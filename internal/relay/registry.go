package relay

import "sync"

// Registry tracks every live connection, with secondary indices by room
// and by username. It is the sole owner of transport handles; other
// components look connections up here and queue frames, nothing more.
//
// A connection belongs to at most one room at a time. Room membership
// is an index over connections, not separate state.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn            // id -> connection
	byRoom map[string]map[string]*Conn // roomID -> id -> connection
	byUser map[string]map[string]*Conn // username -> id -> connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  map[string]*Conn{},
		byRoom: map[string]map[string]*Conn{},
		byUser: map[string]map[string]*Conn{},
	}
}

// Register adds a connection. Fails with ErrDuplicateConnection if the
// id is already present; the existing connection is never replaced.
func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; ok {
		return ErrDuplicateConnection
	}
	r.conns[c.ID] = c
	indexAdd(r.byUser, c.Username, c)
	if c.room != "" {
		indexAdd(r.byRoom, c.room, c)
	}
	return nil
}

// Unregister removes a connection and returns it, or nil if the id is
// unknown. Idempotent: a second call for the same id is a no-op.
func (r *Registry) Unregister(id string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)
	indexRemove(r.byUser, c.Username, id)
	if c.room != "" {
		indexRemove(r.byRoom, c.room, id)
	}
	return c
}

// UpdateRoom moves a connection to a new room, reindexing membership.
// Unknown ids are ignored.
func (r *Registry) UpdateRoom(id, newRoomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok || c.room == newRoomID {
		return
	}
	if c.room != "" {
		indexRemove(r.byRoom, c.room, id)
	}
	c.room = newRoomID
	if newRoomID != "" {
		indexAdd(r.byRoom, newRoomID, c)
	}
}

// RoomOf returns the room a connection is currently joined to
func (r *Registry) RoomOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conns[id]; ok {
		return c.room
	}
	return ""
}

// ByRoom returns a snapshot of the connections joined to a room
func (r *Registry) ByRoom(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byRoom[roomID])
}

// ByUsername returns a snapshot of a user's connections (a user may
// hold several, one per tab)
func (r *Registry) ByUsername(username string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[username])
}

// All returns a snapshot of every registered connection
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func indexAdd(idx map[string]map[string]*Conn, key string, c *Conn) {
	m := idx[key]
	if m == nil {
		m = map[string]*Conn{}
		idx[key] = m
	}
	m[c.ID] = c
}

func indexRemove(idx map[string]map[string]*Conn, key, id string) {
	m := idx[key]
	if m == nil {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(idx, key)
	}
}

func snapshot(m map[string]*Conn) []*Conn {
	out := make([]*Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
