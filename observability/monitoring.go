// Package observability aggregates the relay's runtime counters for the
// /stats endpoint and the inspect page.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitor carries atomic counters so every component can report without a
// lock. One Monitor per relay instance.
type Monitor struct {
	log       *slog.Logger
	startedAt time.Time

	liveConnections   atomic.Int64
	totalConnections  atomic.Uint64
	messagesCreated   atomic.Uint64
	messagesDeleted   atomic.Uint64
	broadcasts        atomic.Uint64
	droppedDeliveries atomic.Uint64
	parseErrors       atomic.Uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log, startedAt: time.Now().UTC()}
}

func (m *Monitor) IncrConnections() {
	m.liveConnections.Add(1)
	m.totalConnections.Add(1)
}

func (m *Monitor) DecrConnections() {
	m.liveConnections.Add(-1)
}

func (m *Monitor) IncrMessagesCreated() {
	m.messagesCreated.Add(1)
}

func (m *Monitor) IncrMessagesDeleted() {
	m.messagesDeleted.Add(1)
}

func (m *Monitor) IncrBroadcasts() {
	m.broadcasts.Add(1)
}

func (m *Monitor) IncrDroppedDeliveries() {
	m.droppedDeliveries.Add(1)
}

func (m *Monitor) IncrParseErrors() {
	m.parseErrors.Add(1)
}

func (m *Monitor) LiveConnections() int64 {
	return m.liveConnections.Load()
}

// Stats returns a point-in-time view of the counters plus process-level
// figures. Process probes are best effort: a failing probe is logged at
// debug level and its field simply omitted.
func (m *Monitor) Stats() map[string]any {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := map[string]any{
		"uptime":             time.Since(m.startedAt).Round(time.Second).String(),
		"live_connections":   m.liveConnections.Load(),
		"total_connections":  m.totalConnections.Load(),
		"messages_created":   m.messagesCreated.Load(),
		"messages_deleted":   m.messagesDeleted.Load(),
		"broadcasts":         m.broadcasts.Load(),
		"dropped_deliveries": m.droppedDeliveries.Load(),
		"parse_errors":       m.parseErrors.Load(),
		"alloc_mem_mb":       memStats.Alloc / 1024 / 1024,
		"num_gc":             memStats.NumGC,
		"goroutines":         runtime.NumGoroutine(),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Debug("Error while retrieving process", "err", err)
		return stats
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats["cpu_percent"] = cpu
	} else {
		m.log.Debug("Error while finding process cpu usage", "err", err)
	}
	if ram, err := p.MemoryPercent(); err == nil {
		stats["memory_percent"] = ram
	} else {
		m.log.Debug("Error while finding process ram usage", "err", err)
	}
	return stats
}
