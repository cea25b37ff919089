// Package observability aggregates event counts and process metrics
// for the debug endpoint. It hangs off the event bus; the core keeps
// working if it is never attached.
package observability

import (
	"log/slog"
	"os"
	"time"

	"waitroom/domain/event"

	"github.com/shirou/gopsutil/process"
)

// Monitor counts every event type it is subscribed to and snapshots
// the process's own CPU and memory usage on demand.
type Monitor struct {
	log       *slog.Logger
	counter   *event.Counter
	proc      *process.Process
	startedAt time.Time
}

func NewMonitor(log *slog.Logger) (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		log:       log,
		counter:   event.NewCounter(),
		proc:      p,
		startedAt: time.Now(),
	}, nil
}

// Attach subscribes the monitor to every event type on the bus.
func (m *Monitor) Attach(bus *event.Bus) {
	for _, t := range []event.Type{
		event.RoomCreatedType,
		event.RoomJoinedType,
		event.RoomExitedType,
		event.RoomReadyType,
		event.RoomErrorType,
		event.MessageReceivedType,
		event.MessageDecodedType,
		event.TransportErrorType,
	} {
		bus.Subscribe(t, m)
	}
}

// Handle implements event.Handler.
func (m *Monitor) Handle(e event.Event) {
	m.counter.Increment(e.Type)
}

// Count returns how many events of one type were observed.
func (m *Monitor) Count(t event.Type) uint64 {
	return m.counter.Get(t)
}

// Stats assembles the debug payload: event counters plus self process
// metrics. Metric collection failures are logged and omitted rather
// than failing the whole snapshot.
func (m *Monitor) Stats() map[string]any {
	stats := map[string]any{
		"uptime": time.Since(m.startedAt).Round(time.Second).String(),
		"events": m.counter.All(),
	}

	rss, cpu, status, err := selfStats(m.proc)
	if err != nil {
		m.log.Warn("failed to collect self stats", "error", err)
		return stats
	}
	stats["ram_bytes"] = rss
	stats["cpu_percent"] = cpu
	stats["pid_status"] = status
	return stats
}

// selfStats retrieves technical metrics (memory, CPU and OS status)
// for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
