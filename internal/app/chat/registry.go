package chat

import (
	"time"

	"erlobby/internal/app/user"
)

// State is the lifecycle stage of a registered connection.
// A removed connection is Disconnected and no longer in the Registry.
type State int

const (
	// StateConnected is a connection that has not sent a status update yet.
	StateConnected State = iota

	// StateActive is a connection that has sent at least one status update.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Presence is the server-side view of one live connection.
type Presence struct {
	Nickname string
	Modpack  string
	InGame   bool
	GameMode string
	Color    string
	Code     string
	Identity string

	// LastEvent is when the presence was last refreshed; zero until the first
	// accepted status update or chat message.
	LastEvent time.Time

	State State
}

// NewPresence returns the presence of a connection that just opened.
func NewPresence() *Presence {
	return &Presence{
		Nickname: user.DefaultNickname,
		Modpack:  DefaultModpack,
		GameMode: DefaultGameMode,
		Color:    user.DefaultColor,
		Identity: user.Anonymous,
		State:    StateConnected,
	}
}

// Registry holds the presence of every live connection in arrival order.
// It is owned by the hub goroutine.
type Registry struct {
	entries map[*Client]*Presence
	order   []*Client
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*Client]*Presence)}
}

// Add registers c with a default presence and returns it.
// Adding a client that is already registered returns its existing presence.
func (r *Registry) Add(c *Client) *Presence {
	if p, ok := r.entries[c]; ok {
		return p
	}

	p := NewPresence()
	r.entries[c] = p
	r.order = append(r.order, c)
	return p
}

// Get returns the presence of c.
func (r *Registry) Get(c *Client) (*Presence, bool) {
	p, ok := r.entries[c]
	return p, ok
}

// Remove unregisters c and reports whether it was registered.
func (r *Registry) Remove(c *Client) bool {
	if _, ok := r.entries[c]; !ok {
		return false
	}

	delete(r.entries, c)
	for i, other := range r.order {
		if other == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.order)
}

// Clients returns the registered connections in arrival order.
func (r *Registry) Clients() []*Client {
	out := make([]*Client, len(r.order))
	copy(out, r.order)
	return out
}
