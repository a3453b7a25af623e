package ffmpeg

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats contains resource usage statistics for an FFmpeg process.
type ProcessStats struct {
	PID            int           `json:"pid"`
	CPUPercent     float64       `json:"cpu_percent"`
	MemoryRSSBytes uint64        `json:"memory_rss_bytes"`
	MemoryVMSBytes uint64        `json:"memory_vms_bytes"`
	MemoryPercent  float32       `json:"memory_percent"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	LastUpdated    time.Time     `json:"last_updated"`
}

// ProcessMonitor periodically samples resource usage of an FFmpeg process.
type ProcessMonitor struct {
	pid       int
	startedAt time.Time
	interval  time.Duration

	mu    sync.RWMutex
	stats ProcessStats
	proc  *process.Process

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewProcessMonitor creates a new process monitor for the given PID.
func NewProcessMonitor(pid int) *ProcessMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	pm := &ProcessMonitor{
		pid:       pid,
		startedAt: time.Now(),
		interval:  time.Second,
		ctx:       ctx,
		cancel:    cancel,
	}

	// A lookup failure leaves proc nil; samples then only update timing.
	if proc, err := process.NewProcess(int32(pid)); err == nil {
		pm.proc = proc
	}

	return pm
}

// SetInterval sets the monitoring interval.
func (pm *ProcessMonitor) SetInterval(d time.Duration) {
	pm.mu.Lock()
	pm.interval = d
	pm.mu.Unlock()
}

// Start begins monitoring the process.
func (pm *ProcessMonitor) Start() {
	pm.once.Do(func() {
		pm.wg.Add(1)
		go pm.monitorLoop()
	})
}

// Stop stops monitoring the process.
func (pm *ProcessMonitor) Stop() {
	pm.cancel()
	pm.wg.Wait()
}

// Stats returns the most recent process statistics.
func (pm *ProcessMonitor) Stats() ProcessStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.stats
}

// monitorLoop is the main monitoring loop.
func (pm *ProcessMonitor) monitorLoop() {
	defer pm.wg.Done()

	pm.mu.RLock()
	interval := pm.interval
	pm.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.sample()

	for {
		select {
		case <-pm.ctx.Done():
			return
		case <-ticker.C:
			pm.sample()
		}
	}
}

// sample takes a snapshot of process statistics.
func (pm *ProcessMonitor) sample() {
	now := time.Now()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.stats.PID = pm.pid
	pm.stats.StartedAt = pm.startedAt
	pm.stats.Duration = now.Sub(pm.startedAt)
	pm.stats.LastUpdated = now

	if pm.proc == nil {
		return
	}

	// Errors here usually mean the process exited between samples; the last
	// good values stay in place.
	if cpu, err := pm.proc.Percent(0); err == nil {
		pm.stats.CPUPercent = cpu
	}
	if mem, err := pm.proc.MemoryInfo(); err == nil {
		pm.stats.MemoryRSSBytes = mem.RSS
		pm.stats.MemoryVMSBytes = mem.VMS
	}
	if pct, err := pm.proc.MemoryPercent(); err == nil {
		pm.stats.MemoryPercent = pct
	}
}
