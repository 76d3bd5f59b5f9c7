package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects memory operation metrics
type Metrics struct {
	mu sync.RWMutex

	// Counters
	Loads          int64
	Saves          int64
	SkippedSaves   int64
	Clears         int64
	Failures       int64
	EntriesWritten int64
	RemoteRequests int64

	// Histograms (simplified)
	remoteLatencies []time.Duration

	// Exporter (optional)
	exporter Exporter
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		remoteLatencies: make([]time.Duration, 0, 1000),
	}
}

// IncLoads increments the loads counter
func (m *Metrics) IncLoads() {
	atomic.AddInt64(&m.Loads, 1)
}

// IncSaves increments the saves counter and adds the written entries
func (m *Metrics) IncSaves(entries int) {
	atomic.AddInt64(&m.Saves, 1)
	atomic.AddInt64(&m.EntriesWritten, int64(entries))
}

// IncSkippedSaves counts saves that had nothing to write
func (m *Metrics) IncSkippedSaves() {
	atomic.AddInt64(&m.SkippedSaves, 1)
}

// IncClears increments the clears counter
func (m *Metrics) IncClears() {
	atomic.AddInt64(&m.Clears, 1)
}

// IncFailures increments the failures counter
func (m *Metrics) IncFailures() {
	atomic.AddInt64(&m.Failures, 1)
}

// RecordRemoteLatency records the latency of one remote round trip
func (m *Metrics) RecordRemoteLatency(d time.Duration) {
	atomic.AddInt64(&m.RemoteRequests, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteLatencies = append(m.remoteLatencies, d)
}

// GetSummary returns a summary of collected metrics
func (m *Metrics) GetSummary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := map[string]interface{}{
		"loads":           atomic.LoadInt64(&m.Loads),
		"saves":           atomic.LoadInt64(&m.Saves),
		"skipped_saves":   atomic.LoadInt64(&m.SkippedSaves),
		"clears":          atomic.LoadInt64(&m.Clears),
		"failures":        atomic.LoadInt64(&m.Failures),
		"entries_written": atomic.LoadInt64(&m.EntriesWritten),
		"remote_requests": atomic.LoadInt64(&m.RemoteRequests),
	}

	if len(m.remoteLatencies) > 0 {
		var total, peak time.Duration
		for _, d := range m.remoteLatencies {
			total += d
			if d > peak {
				peak = d
			}
		}
		summary["avg_remote_latency_ms"] = total.Milliseconds() / int64(len(m.remoteLatencies))
		summary["max_remote_latency_ms"] = peak.Milliseconds()
	}

	return summary
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.Loads, 0)
	atomic.StoreInt64(&m.Saves, 0)
	atomic.StoreInt64(&m.SkippedSaves, 0)
	atomic.StoreInt64(&m.Clears, 0)
	atomic.StoreInt64(&m.Failures, 0)
	atomic.StoreInt64(&m.EntriesWritten, 0)
	atomic.StoreInt64(&m.RemoteRequests, 0)

	m.remoteLatencies = m.remoteLatencies[:0]
}

// SetExporter attaches a metrics exporter.
func (m *Metrics) SetExporter(e Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// Flush exports the current counters as the snapshot for command.
func (m *Metrics) Flush(command string, labels map[string]string) error {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()

	if exporter == nil {
		return nil
	}

	return exporter.Export(Snapshot{
		Time:    time.Now(),
		Command: command,
		Metrics: m.GetSummary(),
		Labels:  labels,
	})
}
