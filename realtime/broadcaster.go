package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/observability"
)

// Broadcaster delivers one event to every live session of a conversation,
// optionally excluding one user. The event is serialized once, the session
// set is snapshotted under the registry lock, and sends happen outside it so
// the lock is never held during network writes. Delivery order within one
// broadcast follows registry iteration order; no ordering is guaranteed
// between broadcasts issued concurrently.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
	stats    *observability.StatsManager
	now      func() time.Time
}

func NewBroadcaster(log *slog.Logger, registry *Registry, stats *observability.StatsManager) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, stats: stats, now: time.Now}
}

// BroadcastToConversation stamps the event and attempts delivery to every
// member session except excludeUserID (no exclusion when empty). Sessions
// that fail a send are pruned from the conversation's membership set after
// the delivery pass; their user and participant entries stay untouched for
// the lifecycle handler's own disconnect path. Send failures are never
// surfaced to the caller.
func (b *Broadcaster) BroadcastToConversation(conversationID domain.ConversationID,
	evt event.Outbound, excludeUserID string) {
	sessions := b.registry.SessionsFor(conversationID)
	if len(sessions) == 0 {
		return
	}

	evt.Timestamp = b.now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		b.log.Error("Failed to serialize outbound event",
			"type", evt.Type, "conversation_id", conversationID, "error", err)
		return
	}

	var dead []*Session
	delivered := 0
	for _, sess := range sessions {
		if excludeUserID != "" && sess.UserID == excludeUserID {
			continue
		}
		if err := sess.Send(payload); err != nil {
			b.log.Warn("Dropping unreachable connection",
				"user_id", sess.UserID, "conversation_id", conversationID, "error", err)
			dead = append(dead, sess)
			continue
		}
		delivered++
	}

	if len(dead) > 0 {
		b.registry.Drop(conversationID, dead...)
		b.stats.AddSendFailures(len(dead))
	}
	b.stats.IncrBroadcasts()
	b.stats.AddDelivered(delivered)

	b.log.Debug(fmt.Sprintf("Broadcast %s to %d member(s) of %s", evt.Type, delivered, conversationID))
}

// SendToUser resolves the single live session for a user id and attempts
// delivery. On failure the stale user mapping is removed so the registry
// self-heals, and the error is returned to the caller.
func (b *Broadcaster) SendToUser(userID string, evt event.Outbound) error {
	sess, ok := b.registry.SessionFor(userID)
	if !ok {
		return errors.ErrNotConnected
	}

	evt.Timestamp = b.now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if err := sess.Send(payload); err != nil {
		b.registry.DropUser(userID, sess)
		b.stats.AddSendFailures(1)
		return err
	}
	b.stats.AddDelivered(1)
	return nil
}
