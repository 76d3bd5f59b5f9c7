package telemetry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Exporter receives one Snapshot per flushed command.
type Exporter interface {
	Export(s Snapshot) error
	Close() error
}

// Snapshot is the counter state at the end of one command.
type Snapshot struct {
	Time    time.Time              `json:"time"`
	Command string                 `json:"command"` // load, save, clear, ...
	Metrics map[string]interface{} `json:"metrics"`
	Labels  map[string]string      `json:"labels,omitempty"`
}

// JSONFileExporter appends snapshots to a JSONL file.
type JSONFileExporter struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	closed bool
}

// NewJSONFileExporter opens path for appending, creating parent directories.
func NewJSONFileExporter(path string) (*JSONFileExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	return &JSONFileExporter{file: f, enc: json.NewEncoder(f)}, nil
}

func (e *JSONFileExporter) Export(s Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fs.ErrClosed
	}
	return e.enc.Encode(s)
}

// Close is safe to call more than once.
func (e *JSONFileExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.file.Close()
}

// ReadSnapshots parses a metrics file written by JSONFileExporter. A missing
// file yields no snapshots. Malformed lines are skipped.
func ReadSnapshots(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	var out []Snapshot
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s Snapshot
		if json.Unmarshal(scanner.Bytes(), &s) != nil {
			continue
		}
		out = append(out, s)
	}
	return out, scanner.Err()
}

// CommandTotals is the sum of integer counters across runs of one command.
type CommandTotals struct {
	Command  string
	Runs     int
	Counters map[string]int64
}

// Totals groups snapshots by command, sorted by command name.
func Totals(snapshots []Snapshot) []CommandTotals {
	byCommand := map[string]*CommandTotals{}
	for _, s := range snapshots {
		t, ok := byCommand[s.Command]
		if !ok {
			t = &CommandTotals{Command: s.Command, Counters: map[string]int64{}}
			byCommand[s.Command] = t
		}
		t.Runs++
		for k, v := range s.Metrics {
			// Latency figures are per-run and do not sum.
			if k == "avg_remote_latency_ms" || k == "max_remote_latency_ms" {
				continue
			}
			switch n := v.(type) {
			case float64:
				t.Counters[k] += int64(n)
			case int64:
				t.Counters[k] += n
			}
		}
	}

	out := make([]CommandTotals, 0, len(byCommand))
	for _, t := range byCommand {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}
