package telemetry

import (
	"testing"
	"time"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.IncLoads()
	m.IncLoads()
	m.IncSaves(2)
	m.IncSaves(1)
	m.IncSkippedSaves()
	m.IncClears()
	m.IncFailures()

	s := m.GetSummary()
	checks := map[string]int64{
		"loads":           2,
		"saves":           2,
		"entries_written": 3,
		"skipped_saves":   1,
		"clears":          1,
		"failures":        1,
		"remote_requests": 0,
	}
	for k, want := range checks {
		if s[k] != want {
			t.Errorf("%s: expected %d, got %v", k, want, s[k])
		}
	}
	if _, ok := s["avg_remote_latency_ms"]; ok {
		t.Error("latency stats should be absent without samples")
	}
}

func TestMetrics_Latency(t *testing.T) {
	m := NewMetrics()
	m.RecordRemoteLatency(10 * time.Millisecond)
	m.RecordRemoteLatency(30 * time.Millisecond)

	s := m.GetSummary()
	if s["remote_requests"] != int64(2) {
		t.Errorf("expected 2 remote requests, got %v", s["remote_requests"])
	}
	if s["avg_remote_latency_ms"] != int64(20) {
		t.Errorf("expected avg 20ms, got %v", s["avg_remote_latency_ms"])
	}
	if s["max_remote_latency_ms"] != int64(30) {
		t.Errorf("expected max 30ms, got %v", s["max_remote_latency_ms"])
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.IncSaves(2)
	m.RecordRemoteLatency(time.Millisecond)
	m.Reset()

	s := m.GetSummary()
	if s["saves"] != int64(0) || s["entries_written"] != int64(0) {
		t.Errorf("expected counters reset, got %v", s)
	}
	if _, ok := s["avg_remote_latency_ms"]; ok {
		t.Error("expected latency samples cleared")
	}
}
