package ws

import (
	"sort"
	"sync"
	"time"
)

// PresenceEntry is the record of one currently connected identity.
type PresenceEntry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	ConnID      string    `json:"connectionId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Registry is the single source of truth for who is online now and
// which connections subscribe to which rooms. It is the only owner of
// this state; callers get copies, never the maps. All state is lost on
// restart, which is fine: presence is inherently "now" information.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]PresenceEntry      // userID -> presence
	byConn  map[string]*Client            // connID -> client (any conn, authed or not)
	rooms   map[string]map[string]*Client // roomName -> connID -> client

	clock func() time.Time // injectable for tests; nil => time.Now
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]PresenceEntry),
		byConn:  make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		clock:   time.Now,
	}
}

// Register tracks a freshly upgraded connection, before authentication.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnID] = c
}

// Authenticate inserts or replaces the presence entry for userID. A
// second login for the same user replaces the prior entry; the old
// connection stays open but no longer counts as that user's presence.
func (r *Registry) Authenticate(userID, displayName string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.UserID = userID
	c.DisplayName = displayName
	r.byConn[c.ConnID] = c
	r.entries[userID] = PresenceEntry{
		UserID:      userID,
		DisplayName: displayName,
		ConnID:      c.ConnID,
		JoinedAt:    r.clock(),
	}
}

// Disconnect removes the connection and its room subscriptions. The
// presence entry goes too, but only if it still points at this
// connection; a newer login for the same user is left alone.
// Returns true when the presence set changed.
func (r *Registry) Disconnect(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byConn, connID)
	for room, conns := range r.rooms {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.rooms, room)
		}
	}

	for user, e := range r.entries {
		if e.ConnID == connID {
			delete(r.entries, user)
			return true
		}
	}
	return false
}

// Logout removes the user's presence independent of socket teardown.
func (r *Registry) Logout(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[userID]; !ok {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Snapshot returns the live presence set, ordered by join time so every
// client renders the same list.
func (r *Registry) Snapshot() []PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PresenceEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Online resolves a user's current connection, if any.
func (r *Registry) Online(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	c, ok := r.byConn[e.ConnID]
	return c, ok
}

// Join subscribes the connection to a room.
func (r *Registry) Join(room string, c *Client) {
	if room == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.rooms[room]
	if m == nil {
		m = make(map[string]*Client)
		r.rooms[room] = m
	}
	m[c.ConnID] = c
}

// Leave drops the subscription; unknown members are a no-op.
func (r *Registry) Leave(room, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.rooms[room]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.rooms, room)
		}
	}
}

// RoomClients returns the connections currently subscribed to a room.
func (r *Registry) RoomClients(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.rooms[room]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// AllClients returns every tracked connection, authenticated or not.
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}
