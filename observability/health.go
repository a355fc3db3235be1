package observability

import (
	"context"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	_ "github.com/shirou/gopsutil"
	"github.com/shirou/gopsutil/process"
)

// HealthSample is the resource usage of the server process itself.
type HealthSample struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	Status     string  `json:"status"`
	SampledAt  string  `json:"sampled_at"`
}

// HealthMonitor samples the server's own process on a fixed interval and
// keeps the latest reading for the debug page.
type HealthMonitor struct {
	mu       sync.Mutex
	log      *slog.Logger
	interval time.Duration
	latest   HealthSample
}

func NewHealthMonitor(log *slog.Logger, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{log: log, interval: interval}
}

func (m *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	pid := int32(os.Getpid())
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			p, err := process.NewProcess(pid)
			if err != nil {
				m.log.Error("Error while retrieving process", "pid", pid, "err", err)
				continue
			}
			status, err := p.Status()
			if err != nil {
				m.log.Error("Error while finding process status", "err", err)
				continue
			}
			cpu, err := p.CPUPercent()
			if err != nil {
				m.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				m.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			m.mu.Lock()
			m.latest = HealthSample{
				CPUPercent: math.Round(cpu*100) / 100,
				RAMPercent: math.Round(float64(ram)*100) / 100,
				Status:     status,
				SampledAt:  time.Now().UTC().Format(time.RFC3339),
			}
			m.mu.Unlock()
		}
	}
}

// Latest returns the most recent sample, zero-valued until the first tick.
func (m *HealthMonitor) Latest() HealthSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Snapshot merges the counters with the process health reading.
func (m *HealthMonitor) Snapshot(stats *StatsManager) map[string]any {
	out := stats.Snapshot()
	sample := m.Latest()
	if sample.SampledAt != "" {
		out["CPU %"] = sample.CPUPercent
		out["RAM %"] = sample.RAMPercent
		out["Process status"] = sample.Status
	}
	return out
}
