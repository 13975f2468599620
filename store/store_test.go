package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cowatch-sync-server/domain"
)

func TestStore_JoinCreatesRoom(t *testing.T) {
	s := New()

	res := s.Join("X42", "a", "", "v1", nil)

	assert.True(t, res.Created)
	assert.Equal(t, domain.DefaultUsername, res.Name)
	assert.Equal(t, domain.PlaybackState{IsPlaying: false, CurrentTime: 0, VideoURL: "v1"}, res.State)
	assert.Equal(t, []string{domain.DefaultUsername}, res.Users)

	rooms, members := s.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)
}

func TestStore_VideoURLFixedByFirstJoiner(t *testing.T) {
	s := New()

	s.Join("X42", "a", "Ann", "v1", nil)
	res := s.Join("X42", "b", "Bea", "v2", nil)
	res2 := s.Join("X42", "c", "Cid", "", nil)

	assert.False(t, res.Created)
	assert.Equal(t, "v1", res.State.VideoURL)
	assert.Equal(t, "v1", res2.State.VideoURL)
	assert.Equal(t, []string{"Ann", "Bea", "Cid"}, res2.Users)
}

func TestStore_ResolveName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", domain.DefaultUsername},
		{"   ", domain.DefaultUsername},
		{"Bea", "Bea"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveName(tt.in))
		})
	}
}

func TestStore_LastWriterWins(t *testing.T) {
	tests := []struct {
		name string
		ops  func(s *Store)
		want domain.PlaybackState
	}{
		{
			name: "play",
			ops: func(s *Store) {
				s.ApplyPlay("r", 10, nil)
			},
			want: domain.PlaybackState{IsPlaying: true, CurrentTime: 10, VideoURL: "v"},
		},
		{
			name: "play then pause",
			ops: func(s *Store) {
				s.ApplyPlay("r", 10, nil)
				s.ApplyPause("r", 12.5, nil)
			},
			want: domain.PlaybackState{IsPlaying: false, CurrentTime: 12.5, VideoURL: "v"},
		},
		{
			name: "seek keeps playing flag",
			ops: func(s *Store) {
				s.ApplyPlay("r", 10, nil)
				s.ApplySeek("r", 42.5, nil)
			},
			want: domain.PlaybackState{IsPlaying: true, CurrentTime: 42.5, VideoURL: "v"},
		},
		{
			name: "earlier time overwrites later",
			ops: func(s *Store) {
				s.ApplySeek("r", 100, nil)
				s.ApplyPause("r", 3, nil)
			},
			want: domain.PlaybackState{IsPlaying: false, CurrentTime: 3, VideoURL: "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Join("r", "a", "Ann", "v", nil)
			s.Join("r", "b", "Bea", "other", nil)

			tt.ops(s)

			snap, ok := s.Snapshot("r")
			require.True(t, ok)
			assert.Equal(t, tt.want, snap.State)
		})
	}
}

func TestStore_ApplyUnknownRoom(t *testing.T) {
	s := New()
	called := false

	_, ok := s.ApplyPlay("nope", 1, func(domain.PlaybackState) { called = true })
	assert.False(t, ok)
	_, ok = s.ApplyPause("nope", 1, nil)
	assert.False(t, ok)
	_, ok = s.ApplySeek("nope", 1, nil)
	assert.False(t, ok)

	assert.False(t, called)
	rooms, _ := s.Stats()
	assert.Equal(t, 0, rooms)
}

func TestStore_LeaveLifecycle(t *testing.T) {
	s := New()
	s.Join("X42", "a", "", "v1", nil)
	s.Join("X42", "b", "Bea", "v2", nil)
	s.ApplyPlay("X42", 30, nil)

	res, ok := s.Leave("X42", "a", nil)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultUsername, res.Name)
	assert.Equal(t, []string{"Bea"}, res.Users)
	assert.False(t, res.RoomDeleted)

	res, ok = s.Leave("X42", "b", nil)
	require.True(t, ok)
	assert.Equal(t, "Bea", res.Name)
	assert.Empty(t, res.Users)
	assert.True(t, res.RoomDeleted)

	_, exists := s.Snapshot("X42")
	assert.False(t, exists)

	fresh := s.Join("X42", "c", "Cid", "v3", nil)
	assert.True(t, fresh.Created)
	assert.Equal(t, domain.PlaybackState{VideoURL: "v3"}, fresh.State)
}

func TestStore_LeaveAbsent(t *testing.T) {
	s := New()

	_, ok := s.Leave("nope", "a", nil)
	assert.False(t, ok)

	s.Join("r", "a", "Ann", "v", nil)
	_, ok = s.Leave("r", "stranger", nil)
	assert.False(t, ok)

	_, ok = s.Leave("r", "a", nil)
	assert.True(t, ok)
	_, ok = s.Leave("r", "a", nil)
	assert.False(t, ok)
}

func TestStore_Contains(t *testing.T) {
	s := New()
	s.Join("r", "a", "Ann", "v", nil)

	assert.True(t, s.Contains("r", "a"))
	assert.False(t, s.Contains("r", "b"))
	assert.False(t, s.Contains("other", "a"))

	ran := 0
	assert.True(t, s.WithMember("r", "a", func() { ran++ }))
	assert.False(t, s.WithMember("r", "b", func() { ran++ }))
	assert.Equal(t, 1, ran)
}

func TestStore_CallbackSeesCommittedState(t *testing.T) {
	s := New()

	var joined JoinResult
	s.Join("r", "a", "Ann", "v", func(res JoinResult) { joined = res })
	assert.Equal(t, []string{"Ann"}, joined.Users)

	var played domain.PlaybackState
	s.ApplyPlay("r", 5, func(st domain.PlaybackState) { played = st })
	assert.Equal(t, domain.PlaybackState{IsPlaying: true, CurrentTime: 5, VideoURL: "v"}, played)

	var left LeaveResult
	s.Leave("r", "a", func(res LeaveResult) { left = res })
	assert.True(t, left.RoomDeleted)
}

func TestStore_ConcurrentJoinLeave(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for room := 0; room < 8; room++ {
		for member := 0; member < 25; member++ {
			wg.Add(1)
			go func(room, member int) {
				defer wg.Done()
				code := fmt.Sprintf("room-%d", room)
				id := fmt.Sprintf("conn-%d-%d", room, member)
				s.Join(code, id, "", "v", nil)
				s.ApplySeek(code, float64(member), nil)
				s.Leave(code, id, nil)
			}(room, member)
		}
	}
	wg.Wait()

	rooms, members := s.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, members)
}

func TestStore_NoDuplicateMembers(t *testing.T) {
	s := New()
	s.Join("r", "a", "Ann", "v", nil)
	res := s.Join("r", "a", "Anna", "v", nil)

	assert.Equal(t, []string{"Anna"}, res.Users)
	_, members := s.Stats()
	assert.Equal(t, 1, members)
}
