package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONFileExporter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ctxmem", "metrics.jsonl")

	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, cmd := range []string{"save", "load"} {
		err := exporter.Export(Snapshot{
			Time:    time.Now(),
			Command: cmd,
			Metrics: map[string]interface{}{"saves": int64(1)},
			Labels:  map[string]string{"session": "session_a"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := exporter.Close(); err != nil {
		t.Fatal(err)
	}

	snaps, err := ReadSnapshots(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Command != "save" || snaps[1].Command != "load" {
		t.Errorf("unexpected order: %+v", snaps)
	}
	if snaps[0].Labels["session"] != "session_a" {
		t.Errorf("expected session label, got %v", snaps[0].Labels)
	}
}

func TestJSONFileExporter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	for i := 0; i < 2; i++ {
		exporter, err := NewJSONFileExporter(path)
		if err != nil {
			t.Fatal(err)
		}
		exporter.Export(Snapshot{Command: "clear"})
		exporter.Close()
	}

	snaps, _ := ReadSnapshots(path)
	if len(snaps) != 2 {
		t.Errorf("expected reopened file to append, got %d snapshots", len(snaps))
	}
}

func TestJSONFileExporter_Closed(t *testing.T) {
	exporter, err := NewJSONFileExporter(filepath.Join(t.TempDir(), "m.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	exporter.Close()

	if err := exporter.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := exporter.Export(Snapshot{Command: "load"}); err == nil {
		t.Error("expected error exporting after close")
	}
}

func TestReadSnapshots_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	snaps, err := ReadSnapshots(filepath.Join(dir, "absent.jsonl"))
	if err != nil || snaps != nil {
		t.Errorf("missing file: got %v, %v", snaps, err)
	}

	path := filepath.Join(dir, "mixed.jsonl")
	os.WriteFile(path, []byte("{\"command\":\"load\"}\nnot json\n\n{\"command\":\"save\"}\n"), 0644)
	snaps, err = ReadSnapshots(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Errorf("expected malformed lines skipped, got %d snapshots", len(snaps))
	}
}

func TestMetrics_FlushWithExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewMetrics()
	m.SetExporter(exporter)
	m.IncSaves(2)

	if err := m.Flush("save", map[string]string{"session": "test"}); err != nil {
		t.Fatal(err)
	}
	exporter.Close()

	snaps, _ := ReadSnapshots(path)
	if len(snaps) != 1 || snaps[0].Command != "save" {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
	// JSON numbers decode as float64
	if snaps[0].Metrics["entries_written"] != float64(2) {
		t.Errorf("expected entries_written 2, got %v", snaps[0].Metrics["entries_written"])
	}
}

func TestMetrics_FlushWithoutExporter(t *testing.T) {
	if err := NewMetrics().Flush("load", nil); err != nil {
		t.Errorf("expected nil error without exporter, got %v", err)
	}
}

func TestTotals(t *testing.T) {
	snaps := []Snapshot{
		{Command: "save", Metrics: map[string]interface{}{"saves": float64(1), "entries_written": float64(2), "max_remote_latency_ms": float64(40)}},
		{Command: "load", Metrics: map[string]interface{}{"loads": float64(1)}},
		{Command: "save", Metrics: map[string]interface{}{"saves": float64(1), "entries_written": float64(1)}},
	}

	totals := Totals(snaps)
	if len(totals) != 2 || totals[0].Command != "load" || totals[1].Command != "save" {
		t.Fatalf("unexpected grouping %+v", totals)
	}

	save := totals[1]
	if save.Runs != 2 || save.Counters["saves"] != 2 || save.Counters["entries_written"] != 3 {
		t.Errorf("unexpected save totals %+v", save)
	}
	if _, ok := save.Counters["max_remote_latency_ms"]; ok {
		t.Error("latency figures should not be summed")
	}
}
