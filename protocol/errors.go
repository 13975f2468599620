package protocol

import "errors"

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrEmptyRoomCode     = errors.New("empty room code")
	ErrInvalidTime       = errors.New("invalid playback time")
	ErrChatTooLong       = errors.New("chat message too long")
)
