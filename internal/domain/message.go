package domain

import (
	"errors"
	"strconv"
	"time"
)

// TimeLayout is the wall-clock format stamped into CreatedAt and stored
// in cache entries and archived batches.
const TimeLayout = "2006-01-02 15:04:05"

type MessageType string

const (
	MessageTalk  MessageType = "TALK"
	MessageEnter MessageType = "ENTER"
	MessageLeave MessageType = "LEAVE"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTalk, MessageEnter, MessageLeave:
		return true
	}
	return false
}

var ErrInvalidMessageType = errors.New("invalid message type")

// ChatMessage is the wire and cache unit. A message arriving from a
// client carries neither CreatedAt nor SenderUserID; Stamp fills both
// and the result is immutable from then on.
type ChatMessage struct {
	RoomID       string      `json:"roomId"`
	Sender       string      `json:"sender"`
	SenderUserID *int64      `json:"senderUserId,omitempty"`
	Content      string      `json:"content"`
	CreatedAt    string      `json:"createdAt"`
	Type         MessageType `json:"type"`
}

// Stamp returns a copy with server time, the caller's identity, and the
// room the frame was addressed to.
func (m ChatMessage) Stamp(now time.Time, roomID int64, userID int64) ChatMessage {
	m.RoomID = strconv.FormatInt(roomID, 10)
	m.SenderUserID = &userID
	m.CreatedAt = now.Format(TimeLayout)
	return m
}

// Validate checks the invariants every stored message must hold.
func (m ChatMessage) Validate() error {
	if !m.Type.Valid() {
		return ErrInvalidMessageType
	}
	if m.CreatedAt == "" {
		return errors.New("message has no createdAt")
	}
	if m.RoomID == "" {
		return errors.New("message has no roomId")
	}
	return nil
}

// MessageView is the read-endpoint shape for archived days.
type MessageView struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// View parses the stamped CreatedAt back into a time value. Messages
// with an unparsable timestamp fall back to the zero time rather than
// being dropped.
func (m ChatMessage) View() MessageView {
	t, _ := time.Parse(TimeLayout, m.CreatedAt)
	return MessageView{
		Sender:    m.Sender,
		Content:   m.Content,
		CreatedAt: t,
	}
}
