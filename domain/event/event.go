// Package event defines the envelopes exchanged over a live connection.
// Inbound events form a closed set resolved once at the transport boundary;
// outbound events are stamped by the broadcaster, never by the sender.
package event

import (
	"encoding/json"
	"time"

	"collab-chat/errors"

	"github.com/samber/lo"
)

type Type string

const (
	// Inbound types accepted from clients.
	TypeNewMessage  Type = "new_message"
	TypeTypingStart Type = "typing_start"
	TypeTypingStop  Type = "typing_stop"
	TypeMessageRead Type = "message_read"
	TypePing        Type = "ping"

	// Outbound types pushed to clients.
	TypeTypingIndicator Type = "typing_indicator"
	TypeUserOnline      Type = "user_online"
	TypeUserOffline     Type = "user_offline"
	TypeError           Type = "error"
	TypePong            Type = "pong"
)

// Inbound is the envelope read from a client connection.
type Inbound struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessageReadData carries the acknowledged message for a message_read event.
type MessageReadData struct {
	MessageID string `json:"message_id"`
}

// DecodeInbound parses a raw frame into the inbound envelope.
// An unparsable frame or a missing type is malformed; the caller is expected
// to log and skip it without closing the connection.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, errors.ErrMalformedEvent
	}
	if in.Type == "" {
		return Inbound{}, errors.ErrMalformedEvent
	}
	return in, nil
}

// Outbound is the envelope delivered to every recipient of a broadcast.
// Timestamp is assigned at broadcast time by the core.
type Outbound struct {
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	IsTyping  *bool           `json:"is_typing,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a sender payload to be broadcast verbatim.
func NewMessage(data json.RawMessage) Outbound {
	return Outbound{Type: TypeNewMessage, Data: data}
}

func TypingIndicator(userID string, isTyping bool) Outbound {
	return Outbound{Type: TypeTypingIndicator, UserID: userID, IsTyping: lo.ToPtr(isTyping)}
}

func MessageRead(userID, messageID string) Outbound {
	return Outbound{Type: TypeMessageRead, UserID: userID, MessageID: messageID}
}

func UserOnline(userID string) Outbound {
	return Outbound{Type: TypeUserOnline, UserID: userID}
}

func UserOffline(userID string) Outbound {
	return Outbound{Type: TypeUserOffline, UserID: userID}
}

// Error builds the frame surfaced to a sender when its own event was rejected.
func Error(message string) Outbound {
	return Outbound{Type: TypeError, Message: message}
}

func Pong() Outbound {
	return Outbound{Type: TypePong}
}
