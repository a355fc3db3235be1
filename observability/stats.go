// Package observability aggregates live counters of the connection manager
// for the debug server. Counters are best-effort telemetry, never an input
// to broadcast or registry decisions.
package observability

import (
	"sync/atomic"
	"time"
)

// Stats is one snapshot of the manager's counters.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	TotalConnects     uint64 `json:"total_connects"`
	TotalDisconnects  uint64 `json:"total_disconnects"`
	BroadcastsSent    uint64 `json:"broadcasts_sent"`
	EventsDelivered   uint64 `json:"events_delivered"`
	SendFailures      uint64 `json:"send_failures"`
	MessagesStored    uint64 `json:"messages_stored"`
	MalformedFrames   uint64 `json:"malformed_frames"`
	StartedAt         string `json:"started_at"`
}

// StatsManager tracks live telemetry with atomic counters.
type StatsManager struct {
	activeConnections int64
	totalConnects     uint64
	totalDisconnects  uint64
	broadcastsSent    uint64
	eventsDelivered   uint64
	sendFailures      uint64
	messagesStored    uint64
	malformedFrames   uint64
	startedAt         time.Time
}

func NewStatsManager() *StatsManager {
	return &StatsManager{startedAt: time.Now().UTC()}
}

func (m *StatsManager) ConnectionOpened() {
	atomic.AddInt64(&m.activeConnections, 1)
	atomic.AddUint64(&m.totalConnects, 1)
}

func (m *StatsManager) ConnectionClosed() {
	atomic.AddInt64(&m.activeConnections, -1)
	atomic.AddUint64(&m.totalDisconnects, 1)
}

func (m *StatsManager) IncrBroadcasts() {
	atomic.AddUint64(&m.broadcastsSent, 1)
}

func (m *StatsManager) AddDelivered(n int) {
	atomic.AddUint64(&m.eventsDelivered, uint64(n))
}

func (m *StatsManager) AddSendFailures(n int) {
	atomic.AddUint64(&m.sendFailures, uint64(n))
}

func (m *StatsManager) IncrMessagesStored() {
	atomic.AddUint64(&m.messagesStored, 1)
}

func (m *StatsManager) IncrMalformedFrames() {
	atomic.AddUint64(&m.malformedFrames, 1)
}

// GetLatest returns a consistent-enough snapshot for dashboards and tests.
func (m *StatsManager) GetLatest() Stats {
	return Stats{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		TotalConnects:     atomic.LoadUint64(&m.totalConnects),
		TotalDisconnects:  atomic.LoadUint64(&m.totalDisconnects),
		BroadcastsSent:    atomic.LoadUint64(&m.broadcastsSent),
		EventsDelivered:   atomic.LoadUint64(&m.eventsDelivered),
		SendFailures:      atomic.LoadUint64(&m.sendFailures),
		MessagesStored:    atomic.LoadUint64(&m.messagesStored),
		MalformedFrames:   atomic.LoadUint64(&m.malformedFrames),
		StartedAt:         m.startedAt.Format(time.RFC3339),
	}
}

// Snapshot exposes the counters as a generic map for the debug server's
// stats provider hook.
func (m *StatsManager) Snapshot() map[string]any {
	s := m.GetLatest()
	return map[string]any{
		"Active connections": s.ActiveConnections,
		"Total connects":     s.TotalConnects,
		"Total disconnects":  s.TotalDisconnects,
		"Broadcasts sent":    s.BroadcastsSent,
		"Events delivered":   s.EventsDelivered,
		"Send failures":      s.SendFailures,
		"Messages stored":    s.MessagesStored,
		"Malformed frames":   s.MalformedFrames,
		"Started at":         s.StartedAt,
	}
}
