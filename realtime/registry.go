package realtime

import (
	"sync"

	"collab-chat/domain"
)

type Set map[string]struct{}

// Registry is the single process-wide source of truth for "who is connected
// where". It owns three maps: conversation -> live sessions, user -> single
// live session, and conversation -> participant ids. Every mutation is atomic
// with respect to concurrent register/unregister/broadcast calls; no
// operation spans multiple conversations.
type Registry struct {
	mu           sync.RWMutex
	members      map[domain.ConversationID]map[*Session]struct{}
	users        map[string]*Session
	participants map[domain.ConversationID]Set
}

func NewRegistry() *Registry {
	return &Registry{
		members:      make(map[domain.ConversationID]map[*Session]struct{}),
		users:        make(map[string]*Session),
		participants: make(map[domain.ConversationID]Set),
	}
}

// Register adds a session to its conversation's membership set (creating the
// set on first join), maps the user to this session, and records the user as
// a participant. A later connect for the same user id wins: any previous
// session is detached from its own conversation and returned so the caller
// can close its transport outside the lock. Returns nil when the user had no
// prior session.
func (r *Registry) Register(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var superseded *Session
	if prev, ok := r.users[sess.UserID]; ok && prev != sess {
		superseded = prev
		r.detach(prev)
	}
	r.users[sess.UserID] = sess

	if _, ok := r.members[sess.ConversationID]; !ok {
		r.members[sess.ConversationID] = make(map[*Session]struct{})
	}
	r.members[sess.ConversationID][sess] = struct{}{}

	if _, ok := r.participants[sess.ConversationID]; !ok {
		r.participants[sess.ConversationID] = make(Set)
	}
	r.participants[sess.ConversationID][sess.UserID] = struct{}{}

	return superseded
}

// Unregister removes a session on disconnect. It is idempotent against a
// membership entry already pruned by a failed broadcast, and it only clears
// the user mapping and participant entry when they still belong to this
// session, so a newer connection for the same user is never evicted.
func (r *Registry) Unregister(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.members[sess.ConversationID]; ok {
		delete(set, sess)
		if len(set) == 0 {
			delete(r.members, sess.ConversationID)
		}
	}

	if cur, ok := r.users[sess.UserID]; ok && cur == sess {
		delete(r.users, sess.UserID)
	}

	// The participant entry goes away unless a newer session still
	// represents this user in the same conversation.
	cur, ok := r.users[sess.UserID]
	if !ok || cur.ConversationID != sess.ConversationID {
		if set, exists := r.participants[sess.ConversationID]; exists {
			delete(set, sess.UserID)
			if len(set) == 0 {
				delete(r.participants, sess.ConversationID)
			}
		}
	}
}

// detach removes a session from its conversation's membership and participant
// sets. Caller holds the write lock and owns the user-map entry.
func (r *Registry) detach(sess *Session) {
	if set, ok := r.members[sess.ConversationID]; ok {
		delete(set, sess)
		if len(set) == 0 {
			delete(r.members, sess.ConversationID)
		}
	}
	if set, ok := r.participants[sess.ConversationID]; ok {
		delete(set, sess.UserID)
		if len(set) == 0 {
			delete(r.participants, sess.ConversationID)
		}
	}
}

// SessionsFor returns a snapshot of the live sessions attached to a
// conversation, or nil if none. The snapshot lets the broadcaster send
// outside the lock without holding it during network writes.
func (r *Registry) SessionsFor(conversationID domain.ConversationID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[conversationID]
	if !ok {
		return nil
	}
	sessions := make([]*Session, 0, len(set))
	for sess := range set {
		sessions = append(sessions, sess)
	}
	return sessions
}

// SessionFor returns the single live session for a user id, if any.
func (r *Registry) SessionFor(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.users[userID]
	return sess, ok
}

// Drop prunes sessions that failed a delivery attempt from the conversation's
// membership set only. User mappings and participant entries are left to the
// lifecycle handler's own disconnect path, which must stay idempotent against
// this pruning.
func (r *Registry) Drop(conversationID domain.ConversationID, dead ...*Session) {
	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[conversationID]
	if !ok {
		return
	}
	for _, sess := range dead {
		delete(set, sess)
	}
	if len(set) == 0 {
		delete(r.members, conversationID)
	}
}

// DropUser clears a stale user mapping after a failed direct send, but only
// if it still points at the failing session.
func (r *Registry) DropUser(userID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.users[userID]; ok && cur == sess {
		delete(r.users, userID)
	}
}

// ParticipantsOf returns the user ids currently joined to a conversation.
func (r *Registry) ParticipantsOf(conversationID domain.ConversationID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.participants[conversationID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for userID := range set {
		ids = append(ids, userID)
	}
	return ids
}

// IsOnline reports whether a user currently has a live session.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Counts returns the number of tracked conversations and live sessions.
func (r *Registry) Counts() (conversations, sessions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members), len(r.users)
}
