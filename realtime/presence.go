package realtime

import "collab-chat/domain"

// Presence is the semantic view over registry state: who counts as "in" a
// conversation, as opposed to raw socket bookkeeping. It holds no storage of
// its own; both reads are derived from registry mutations.
type Presence struct {
	registry *Registry
}

func NewPresence(registry *Registry) *Presence {
	return &Presence{registry: registry}
}

// ParticipantsOf returns the user ids currently joined to a conversation.
func (p *Presence) ParticipantsOf(conversationID domain.ConversationID) []string {
	return p.registry.ParticipantsOf(conversationID)
}

// IsOnline reports whether a user currently has a live connection.
func (p *Presence) IsOnline(userID string) bool {
	return p.registry.IsOnline(userID)
}
