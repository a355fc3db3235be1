// Package domain contains core concepts of the chat system.
// This file defines Conversation entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type ConversationID string

func (c ConversationID) String() string {
	return string(c)
}

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Conversation is the unit of broadcast grouping: a direct or group chat context.
type Conversation struct {
	ID           ConversationID
	Kind         ConversationKind
	Name         string
	Description  string
	CreatedBy    string
	Participants []string
	CreatedAt    time.Time
}

func NewDirectConversation(id ConversationID, userA, userB string, now time.Time) Conversation {
	return Conversation{
		ID:           id,
		Kind:         KindDirect,
		Participants: []string{userA, userB},
		CreatedAt:    now,
	}
}

func NewGroupConversation(id ConversationID, name, description, createdBy string,
	participants []string, now time.Time) Conversation {
	return Conversation{
		ID:           id,
		Kind:         KindGroup,
		Name:         name,
		Description:  description,
		CreatedBy:    createdBy,
		Participants: participants,
		CreatedAt:    now,
	}
}
