package protocol

import (
	"log/slog"
	"time"

	"cowatch-sync-server/domain"
	"cowatch-sync-server/registry"
	"cowatch-sync-server/store"
)

// Drop reasons reported to the Recorder.
const (
	DropMalformed    = "malformed"
	DropNoRoom       = "no_room"
	DropUnknownRoom  = "unknown_room"
	DropDisconnected = "disconnected"
)

const chatTimeLayout = "15:04:05"

// Recorder observes routed and dropped events.
type Recorder interface {
	EventHandled(event string)
	EventDropped(event, reason string)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(string)         {}
func (nopRecorder) EventDropped(string, string) {}

type Option func(*Handler)

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithMaxChatLength(n int) Option {
	return func(h *Handler) { h.maxChat = n }
}

func WithRecorder(r Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// Handler routes inbound events through the per-connection state machine:
// connected -> joined -> disconnected.
type Handler struct {
	registry *registry.Registry
	rooms    *store.Store
	gateway  domain.Gateway
	recorder Recorder
	now      func() time.Time
	maxChat  int
}

func NewHandler(reg *registry.Registry, rooms *store.Store, gw domain.Gateway, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		rooms:    rooms,
		gateway:  gw,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Connect(conn domain.Connection) string {
	id := h.registry.Register()
	h.gateway.Register(id, conn)
	return id
}

func (h *Handler) Handle(connID string, data []byte) {
	in, err := Decode(data, h.maxChat)
	if err != nil {
		slog.Warn("invalid message", "clientId", connID, "error", err)
		h.recorder.EventDropped("unknown", DropMalformed)
		return
	}
	h.Dispatch(connID, in)
}

// Dispatch applies one decoded event for connID.
func (h *Handler) Dispatch(connID string, in Inbound) {
	ident, ok := h.registry.Lookup(connID)
	state := registry.StateDisconnected
	if ok {
		state = ident.State()
	}

	switch {
	case state == registry.StateDisconnected:
		h.drop(connID, in.Event(), DropDisconnected)
		return
	case state == registry.StateConnected && in.Event() != domain.EventJoinRoom:
		h.drop(connID, in.Event(), DropNoRoom)
		return
	}

	var handled bool
	switch ev := in.(type) {
	case JoinRoom:
		if state == registry.StateJoined {
			h.leave(connID, ident)
		}
		h.join(connID, ev)
		handled = true
	case VideoPlay:
		handled = h.playback(connID, ident, ev, ev.Time, h.rooms.ApplyPlay, domain.EventSyncPlay)
	case VideoPause:
		handled = h.playback(connID, ident, ev, ev.Time, h.rooms.ApplyPause, domain.EventSyncPause)
	case VideoSeek:
		handled = h.playback(connID, ident, ev, ev.Time, h.rooms.ApplySeek, domain.EventSyncSeek)
	case ChatMessage:
		handled = h.chat(connID, ident, ev)
	default:
		h.drop(connID, in.Event(), DropMalformed)
	}
	if handled {
		h.recorder.EventHandled(in.Event())
	}
}

func (h *Handler) Disconnect(connID string) {
	ident, ok := h.registry.Unregister(connID)
	if !ok {
		return
	}
	if ident.State() == registry.StateJoined {
		h.leave(connID, ident)
	}
	h.gateway.Unregister(connID)
}

func (h *Handler) join(connID string, ev JoinRoom) {
	h.rooms.Join(ev.RoomCode, connID, ev.Username, ev.VideoURL, func(res store.JoinResult) {
		h.registry.SetIdentity(connID, ev.RoomCode, res.Name)
		h.gateway.Join(ev.RoomCode, connID)

		if data, ok := h.encode(domain.EventRoomState, res.State); ok {
			h.gateway.SendTo(connID, data)
		}
		if data, ok := h.encode(domain.EventUserJoined, domain.MembersPayload{Username: res.Name, Users: res.Users}); ok {
			h.gateway.SendToRoom(ev.RoomCode, data)
		}
		slog.Info("user joined", "room", ev.RoomCode, "clientId", connID, "username", res.Name, "members", len(res.Users))
	})
}

func (h *Handler) leave(connID string, ident registry.Identity) {
	_, ok := h.rooms.Leave(ident.Room, connID, func(res store.LeaveResult) {
		h.gateway.Leave(ident.Room, connID)
		if res.RoomDeleted {
			return
		}
		if data, ok := h.encode(domain.EventUserLeft, domain.MembersPayload{Username: res.Name, Users: res.Users}); ok {
			h.gateway.SendToRoom(ident.Room, data)
		}
	})
	if !ok {
		h.gateway.Leave(ident.Room, connID)
		return
	}
	slog.Info("user left", "room", ident.Room, "clientId", connID, "username", ident.Name)
}

type applyFunc func(code string, t float64, fn func(domain.PlaybackState)) (domain.PlaybackState, bool)

func (h *Handler) playback(connID string, ident registry.Identity, in Inbound, t float64, apply applyFunc, syncEvent string) bool {
	data, ok := h.encode(syncEvent, t)
	if !ok {
		return false
	}
	_, ok = apply(ident.Room, t, func(domain.PlaybackState) {
		h.gateway.SendToRoomExcept(ident.Room, connID, data)
	})
	if !ok {
		h.drop(connID, in.Event(), DropUnknownRoom)
		return false
	}
	slog.Debug("playback updated", "room", ident.Room, "clientId", connID, "event", in.Event(), "time", t)
	return true
}

func (h *Handler) chat(connID string, ident registry.Identity, ev ChatMessage) bool {
	msg := domain.ChatPayload{
		Username: ident.Name,
		Message:  ev.Text,
		Time:     h.now().Format(chatTimeLayout),
	}
	data, ok := h.encode(domain.EventNewChatMessage, msg)
	if !ok {
		return false
	}
	if !h.rooms.WithMember(ident.Room, connID, func() {
		h.gateway.SendToRoom(ident.Room, data)
	}) {
		h.drop(connID, ev.Event(), DropUnknownRoom)
		return false
	}
	return true
}

func (h *Handler) encode(event string, payload any) ([]byte, bool) {
	data, err := Encode(event, payload)
	if err != nil {
		slog.Error("marshal error", "event", event, "error", err)
		return nil, false
	}
	return data, true
}

func (h *Handler) drop(connID, event, reason string) {
	slog.Debug("event dropped", "clientId", connID, "event", event, "reason", reason)
	h.recorder.EventDropped(event, reason)
}
