// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat record.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       string
	Content        string
	Kind           string // text, image, file...
	CreatedAt      time.Time
}
