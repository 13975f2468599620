package store

import (
	"log/slog"
	"strings"
	"sync"

	"cowatch-sync-server/domain"
)

type Member struct {
	ConnID string
	Name   string
}

type JoinResult struct {
	Name    string
	State   domain.PlaybackState
	Users   []string
	Created bool
}

type LeaveResult struct {
	Name        string
	Users       []string
	RoomDeleted bool
}

type RoomSnapshot struct {
	Code    string
	State   domain.PlaybackState
	Members []Member
}

type room struct {
	code    string
	state   domain.PlaybackState
	members []Member
	// closed is set once the last member leaves; a closed room is never reused.
	closed bool
	mu     sync.Mutex
}

func (r *room) index(connID string) int {
	for i, m := range r.members {
		if m.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r *room) names() []string {
	out := make([]string, len(r.members))
	for i, m := range r.members {
		out[i] = m.Name
	}
	return out
}

// Store owns every room. The map lock only guards lookups; each room has its
// own lock, so mutations on different rooms run in parallel.
//
// Mutating methods take an optional callback that runs while the room lock is
// still held. Callers use it to enqueue outbound events in mutation order. It
// must not block.
type Store struct {
	rooms map[string]*room
	mu    sync.Mutex
}

func New() *Store {
	return &Store{rooms: make(map[string]*room)}
}

// ResolveName substitutes the placeholder for an empty display name.
func ResolveName(name string) string {
	if strings.TrimSpace(name) == "" {
		return domain.DefaultUsername
	}
	return name
}

// acquire returns the room for code, locked. A new room is created and locked
// before it becomes visible to other callers.
func (s *Store) acquire(code, videoURL string) (*room, bool) {
	s.mu.Lock()
	if r, ok := s.rooms[code]; ok {
		s.mu.Unlock()
		r.mu.Lock()
		return r, false
	}
	r := &room{code: code, state: domain.PlaybackState{VideoURL: videoURL}}
	r.mu.Lock()
	s.rooms[code] = r
	s.mu.Unlock()
	return r, true
}

func (s *Store) lookup(code string) (*room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	return r, ok
}

// Join adds connID to the room, creating it with videoURL if it does not
// exist. The video URL of an existing room is left untouched.
func (s *Store) Join(code, connID, name, videoURL string, fn func(JoinResult)) JoinResult {
	name = ResolveName(name)

	for {
		r, created := s.acquire(code, videoURL)
		if r.closed {
			// Emptied and removed between lookup and lock; retry on a fresh room.
			r.mu.Unlock()
			continue
		}

		if i := r.index(connID); i >= 0 {
			r.members[i].Name = name
		} else {
			r.members = append(r.members, Member{ConnID: connID, Name: name})
		}

		res := JoinResult{
			Name:    name,
			State:   r.state,
			Users:   r.names(),
			Created: created,
		}
		if created {
			slog.Info("room created", "room", code, "videoUrl", videoURL)
		}
		if fn != nil {
			fn(res)
		}
		r.mu.Unlock()
		return res
	}
}

func (s *Store) apply(code string, mutate func(*domain.PlaybackState), fn func(domain.PlaybackState)) (domain.PlaybackState, bool) {
	r, ok := s.lookup(code)
	if !ok {
		return domain.PlaybackState{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.PlaybackState{}, false
	}

	mutate(&r.state)
	if fn != nil {
		fn(r.state)
	}
	return r.state, true
}

func (s *Store) ApplyPlay(code string, t float64, fn func(domain.PlaybackState)) (domain.PlaybackState, bool) {
	return s.apply(code, func(st *domain.PlaybackState) {
		st.IsPlaying = true
		st.CurrentTime = t
	}, fn)
}

func (s *Store) ApplyPause(code string, t float64, fn func(domain.PlaybackState)) (domain.PlaybackState, bool) {
	return s.apply(code, func(st *domain.PlaybackState) {
		st.IsPlaying = false
		st.CurrentTime = t
	}, fn)
}

func (s *Store) ApplySeek(code string, t float64, fn func(domain.PlaybackState)) (domain.PlaybackState, bool) {
	return s.apply(code, func(st *domain.PlaybackState) {
		st.CurrentTime = t
	}, fn)
}

// Leave removes connID from the room and deletes the room once it is empty.
// It reports false if the room or the member is already gone.
func (s *Store) Leave(code, connID string, fn func(LeaveResult)) (LeaveResult, bool) {
	r, ok := s.lookup(code)
	if !ok {
		return LeaveResult{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return LeaveResult{}, false
	}

	i := r.index(connID)
	if i < 0 {
		return LeaveResult{}, false
	}
	name := r.members[i].Name
	r.members = append(r.members[:i], r.members[i+1:]...)

	res := LeaveResult{Name: name, Users: r.names()}
	if len(r.members) == 0 {
		r.closed = true
		s.mu.Lock()
		if s.rooms[code] == r {
			delete(s.rooms, code)
		}
		s.mu.Unlock()
		res.RoomDeleted = true
		slog.Info("room removed", "room", code)
	}

	if fn != nil {
		fn(res)
	}
	return res, true
}

// WithMember runs fn under the room lock if connID is currently a member of
// the room, and reports whether it was.
func (s *Store) WithMember(code, connID string, fn func()) bool {
	r, ok := s.lookup(code)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.index(connID) < 0 {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

func (s *Store) Contains(code, connID string) bool {
	return s.WithMember(code, connID, nil)
}

func (s *Store) Snapshot(code string) (RoomSnapshot, bool) {
	r, ok := s.lookup(code)
	if !ok {
		return RoomSnapshot{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return RoomSnapshot{}, false
	}

	members := make([]Member, len(r.members))
	copy(members, r.members)
	return RoomSnapshot{Code: r.code, State: r.state, Members: members}, true
}

func (s *Store) Stats() (rooms, members int) {
	s.mu.Lock()
	all := make([]*room, 0, len(s.rooms))
	for _, r := range s.rooms {
		all = append(all, r)
	}
	s.mu.Unlock()

	for _, r := range all {
		r.mu.Lock()
		if !r.closed {
			rooms++
			members += len(r.members)
		}
		r.mu.Unlock()
	}
	return rooms, members
}
