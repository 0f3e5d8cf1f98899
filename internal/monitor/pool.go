// Package monitor samples the storage connection pool in the background and
// publishes it as Prometheus gauges
package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/agrobench/agrobench/internal/metrics"
)

// StatsSource exposes database/sql pool statistics
type StatsSource interface {
	Stats() sql.DBStats
}

// PoolStats is a snapshot of the connection pool
type PoolStats struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
	GoroutineCount  int           `json:"goroutine_count"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// PoolMonitor periodically samples a StatsSource
type PoolMonitor struct {
	mu                sync.RWMutex
	source            StatsSource
	stats             PoolStats
	stopMonitoring    chan struct{}
	monitoringStarted bool
}

// NewPoolMonitor creates a monitor over source
func NewPoolMonitor(source StatsSource) *PoolMonitor {
	return &PoolMonitor{source: source}
}

// Start samples immediately and then every interval until Stop or ctx ends
func (m *PoolMonitor) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitoringStarted {
		return
	}

	m.monitoringStarted = true
	m.stopMonitoring = make(chan struct{})
	m.updateStats()

	go m.monitorLoop(ctx, interval, m.stopMonitoring)
}

// Stop ends sampling. It is safe to call more than once.
func (m *PoolMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoringStarted {
		return
	}

	close(m.stopMonitoring)
	m.monitoringStarted = false
}

// GetStats returns the latest snapshot, sampling now if none was taken yet
func (m *PoolMonitor) GetStats() PoolStats {
	m.mu.RLock()
	stats := m.stats
	m.mu.RUnlock()

	if !stats.LastUpdated.IsZero() {
		return stats
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateStats()

	return m.stats
}

// GetFormattedStats renders the snapshot on one line
func (m *PoolMonitor) GetFormattedStats() string {
	stats := m.GetStats()

	return fmt.Sprintf("open=%d in_use=%d idle=%d waits=%d (%s) goroutines=%d",
		stats.OpenConnections,
		stats.InUse,
		stats.Idle,
		stats.WaitCount,
		stats.WaitDuration,
		stats.GoroutineCount,
	)
}

func (m *PoolMonitor) monitorLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.updateStats()
			m.mu.Unlock()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// updateStats must be called with mu held
func (m *PoolMonitor) updateStats() {
	db := m.source.Stats()

	m.stats = PoolStats{
		OpenConnections: db.OpenConnections,
		InUse:           db.InUse,
		Idle:            db.Idle,
		WaitCount:       db.WaitCount,
		WaitDuration:    db.WaitDuration,
		GoroutineCount:  runtime.NumGoroutine(),
		LastUpdated:     time.Now(),
	}

	metrics.DBConnections.WithLabelValues("open").Set(float64(db.OpenConnections))
	metrics.DBConnections.WithLabelValues("in_use").Set(float64(db.InUse))
	metrics.DBConnections.WithLabelValues("idle").Set(float64(db.Idle))
	metrics.DBWaitTotal.Set(float64(db.WaitCount))
}
