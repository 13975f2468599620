package domain

import "encoding/json"

// Event names exchanged over the wire.
const (
	EventJoinRoom    = "joinRoom"
	EventVideoPlay   = "videoPlay"
	EventVideoPause  = "videoPause"
	EventVideoSeek   = "videoSeek"
	EventChatMessage = "chatMessage"

	EventRoomState      = "roomState"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventSyncPlay       = "syncPlay"
	EventSyncPause      = "syncPause"
	EventSyncSeek       = "syncSeek"
	EventNewChatMessage = "newChatMessage"
)

// DefaultUsername replaces an empty display name at join time.
const DefaultUsername = "AnonymousUser"

// Envelope is the frame format for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PlaybackState struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	VideoURL    string  `json:"videoUrl"`
}

type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username,omitempty"`
	VideoURL string `json:"videoUrl"`
}

// MembersPayload carries userJoined and userLeft.
type MembersPayload struct {
	Username string   `json:"username"`
	Users    []string `json:"users"`
}

type ChatPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

// Connection is a transport endpoint. Identity and room membership live in
// the registry, never on the connection itself.
type Connection interface {
	Send(data []byte) error
	Close() error
}

// Gateway addresses outbound frames to connections and rooms.
type Gateway interface {
	Register(connID string, conn Connection)
	Unregister(connID string)
	Join(room, connID string)
	Leave(room, connID string)
	SendTo(connID string, data []byte)
	SendToRoom(room string, data []byte)
	SendToRoomExcept(room, excludeID string, data []byte)
	Stats() (rooms, clients int)
}

type MessageHandler interface {
	Connect(conn Connection) string
	Handle(connID string, data []byte)
	Disconnect(connID string)
}
