package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"cowatch-sync-server/domain"
)

// Inbound is a decoded and validated client event.
type Inbound interface {
	Event() string
}

type JoinRoom struct {
	RoomCode string
	Username string
	VideoURL string
}

type VideoPlay struct{ Time float64 }

type VideoPause struct{ Time float64 }

type VideoSeek struct{ Time float64 }

type ChatMessage struct{ Text string }

func (JoinRoom) Event() string    { return domain.EventJoinRoom }
func (VideoPlay) Event() string   { return domain.EventVideoPlay }
func (VideoPause) Event() string  { return domain.EventVideoPause }
func (VideoSeek) Event() string   { return domain.EventVideoSeek }
func (ChatMessage) Event() string { return domain.EventChatMessage }

// Decode parses one frame. maxChat bounds chat text in runes; zero disables
// the check.
func Decode(data []byte, maxChat int) (Inbound, error) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch env.Event {
	case domain.EventJoinRoom:
		var p domain.JoinRoomPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.RoomCode == "" {
			return nil, ErrEmptyRoomCode
		}
		return JoinRoom{RoomCode: p.RoomCode, Username: p.Username, VideoURL: p.VideoURL}, nil

	case domain.EventVideoPlay, domain.EventVideoPause, domain.EventVideoSeek:
		var t float64
		if err := decodePayload(env, &t); err != nil {
			return nil, err
		}
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTime, t)
		}
		switch env.Event {
		case domain.EventVideoPlay:
			return VideoPlay{Time: t}, nil
		case domain.EventVideoPause:
			return VideoPause{Time: t}, nil
		default:
			return VideoSeek{Time: t}, nil
		}

	case domain.EventChatMessage:
		var text string
		if err := decodePayload(env, &text); err != nil {
			return nil, err
		}
		if maxChat > 0 && utf8.RuneCountInString(text) > maxChat {
			return nil, ErrChatTooLong
		}
		return ChatMessage{Text: text}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func decodePayload(env domain.Envelope, v any) error {
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%w: %s: missing data", ErrMalformedPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Event, err)
	}
	return nil
}

// Encode builds an outbound frame.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(domain.Envelope{Event: event, Data: data})
}
