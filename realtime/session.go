// Package realtime is the connection/broadcast manager: it owns the mapping
// of conversations to live connections, derives presence from it, and fans
// events out to members. It holds no business logic and performs no I/O of
// its own beyond writing to connection sinks.
package realtime

import (
	"collab-chat/contract"
	"collab-chat/domain"
)

// Session is one live connection bound to a single user and a single
// conversation. The user id is carried on the session itself so that
// broadcast exclusion is a field comparison instead of a reverse scan
// of the user map.
type Session struct {
	UserID         string
	ConversationID domain.ConversationID
	sink           contract.EventSink
}

func NewSession(userID string, conversationID domain.ConversationID, sink contract.EventSink) *Session {
	return &Session{UserID: userID, ConversationID: conversationID, sink: sink}
}

// Send forwards a serialized event to the connection. An error marks the
// session as dead for the caller; the session performs no retries.
func (s *Session) Send(payload []byte) error {
	return s.sink.Send(payload)
}

// Close tears down the underlying transport. Used when a session is
// superseded by a newer connection for the same user.
func (s *Session) Close() error {
	return s.sink.Close()
}
