package registry

import (
	"sync"

	"github.com/google/uuid"
)

// State is the protocol state of a connection.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Identity is what the registry knows about a live connection.
type Identity struct {
	Room string
	Name string
}

func (i Identity) State() State {
	if i.Room == "" {
		return StateConnected
	}
	return StateJoined
}

// Registry is the sole owner of per-connection identity.
type Registry struct {
	entries map[string]Identity
	mu      sync.RWMutex
}

func New() *Registry {
	return &Registry{entries: make(map[string]Identity)}
}

func (r *Registry) Register() string {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = Identity{}
	r.mu.Unlock()

	return id
}

// SetIdentity overwrites the room and display name of a registered
// connection. It reports false if id is unknown.
func (r *Registry) SetIdentity(id, room, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	r.entries[id] = Identity{Room: room, Name: name}
	return true
}

// Unregister removes id and returns its last identity. Repeated calls are
// no-ops that report false.
func (r *Registry) Unregister(id string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return ident, ok
}

func (r *Registry) Lookup(id string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.entries[id]
	return ident, ok
}

// StateOf returns StateDisconnected for unknown ids.
func (r *Registry) StateOf(id string) State {
	ident, ok := r.Lookup(id)
	if !ok {
		return StateDisconnected
	}
	return ident.State()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
