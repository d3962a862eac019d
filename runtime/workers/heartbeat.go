package workers

import (
	"chat-presence/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Queue exposes the fill level of a buffered channel. Reading it never blocks.
type Queue interface {
	QueueLen() int
	QueueCap() int
}

// Population counts the users currently online.
type Population interface {
	Len() int
}

// HeartbeatWorker samples the hub queue, the online population and the process itself,
// and publishes them as gauges. A full queue means typing signals are being dropped.
type HeartbeatWorker struct {
	log        *slog.Logger
	interval   time.Duration
	queue      Queue
	population Population
	metrics    *observability.Metrics
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, queue Queue, population Population,
	metrics *observability.Metrics) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log.With("component", "heartbeat"),
		interval:   interval,
		queue:      queue,
		population: population,
		metrics:    metrics,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	length, capacity := w.queue.QueueLen(), w.queue.QueueCap()
	w.metrics.SetHubQueue(length, capacity)
	if capacity > 0 && length*10 >= capacity*8 {
		w.log.Warn("Hub queue nearly full", "length", length, "capacity", capacity)
	}

	online := w.population.Len()
	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
	} else {
		w.metrics.SetProcessUsage(rss, cpu)
	}
	w.log.Debug("Heartbeat", "online", online, "queue", length, "rss", rss, "cpu", cpu)
}

// selfStats returns the resident memory and CPU usage of the current process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
