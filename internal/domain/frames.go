package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// WebSocket frame types from client.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSend        = "send"
)

// WebSocket frame types to client.
const (
	FrameMessage = "message"
	FrameError   = "error"
)

// Error codes
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeBadDestination = "BAD_DESTINATION"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Destination prefixes. Clients publish to /pub/... and subscribe to
// /sub/{roomId}; the broker delivery is broadcast to /sub/{roomId}.
const (
	destPubMessage = "/pub/message/"
	destPubUser    = "/pub/user/"
	destSub        = "/sub/"
)

// Frame is the envelope for every inbound client frame.
type Frame struct {
	Type        string       `json:"type"`
	Destination string       `json:"destination"`
	Message     *ChatMessage `json:"message,omitempty"`
}

// MessageFrame is an outbound broadcast on a /sub/{roomId} destination.
type MessageFrame struct {
	Type        string      `json:"type"`
	Destination string      `json:"destination"`
	Message     ChatMessage `json:"message"`
}

func NewMessageFrame(msg ChatMessage) *MessageFrame {
	return &MessageFrame{
		Type:        FrameMessage,
		Destination: destSub + msg.RoomID,
		Message:     msg,
	}
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    FrameError,
		Code:    code,
		Message: message,
	}
}

// PublishKind distinguishes the two inbound publish destinations.
type PublishKind int

const (
	PublishMessage PublishKind = iota // /pub/message/{roomId}: stamp, cache, fan out
	PublishUser                       // /pub/user/{roomId}: fan out only
)

// ParsePublishDestination resolves a /pub/... destination to its kind
// and room id.
func ParsePublishDestination(dest string) (PublishKind, int64, error) {
	switch {
	case strings.HasPrefix(dest, destPubMessage):
		id, err := parseRoomID(strings.TrimPrefix(dest, destPubMessage))
		return PublishMessage, id, err
	case strings.HasPrefix(dest, destPubUser):
		id, err := parseRoomID(strings.TrimPrefix(dest, destPubUser))
		return PublishUser, id, err
	}
	return 0, 0, fmt.Errorf("not a publish destination: %q", dest)
}

// ParseSubscribeDestination resolves a /sub/{roomId} destination to its
// room id.
func ParseSubscribeDestination(dest string) (int64, error) {
	if !strings.HasPrefix(dest, destSub) {
		return 0, fmt.Errorf("not a subscribe destination: %q", dest)
	}
	return parseRoomID(strings.TrimPrefix(dest, destSub))
}

func parseRoomID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id: %q", s)
	}
	return id, nil
}
