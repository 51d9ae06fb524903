package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"match-lab/observability"
)

// PoolSizer reports the number of identities currently waiting.
type PoolSizer interface {
	Waiting() int
}

// HeartbeatWorker periodically logs process health (CPU, RAM, status)
// together with a snapshot of the matchmaking counters.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.MatchStats
	pool     PoolSizer
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration,
	stats *observability.MatchStats, pool PoolSizer) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, stats: stats, pool: pool}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_mb", rss/(1<<20),
				"waiting", w.pool.Waiting(),
				"stats", w.stats.Snapshot(),
			)
		}
	}
}

// getSelfStats retrieves memory, CPU, and OS status for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
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
