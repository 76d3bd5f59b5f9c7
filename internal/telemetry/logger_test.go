package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_WriterInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo, "text")

	logger.Debug("hidden")
	logger.Error("Error saving context", "error", "boom", "session", "s1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, "Error saving context") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "session=s1") {
		t.Errorf("expected session field, got %q", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug, "json")

	logger.With("session", "abc").Warn("slow search")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "slow search" {
		t.Errorf("unexpected msg %v", record["msg"])
	}
	if record["session"] != "abc" {
		t.Errorf("expected session field, got %v", record["session"])
	}
	if record["level"] != "WARN" {
		t.Errorf("expected WARN level, got %v", record["level"])
	}
}

func TestLogger_WithFile(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo, "text")

	path := filepath.Join(t.TempDir(), "logs", "ctxmem.log")
	if err := logger.WithFile(path); err != nil {
		t.Fatal(err)
	}
	logger.Info("cleared session")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cleared session") {
		t.Errorf("expected record in log file, got %q", string(data))
	}
	if !strings.Contains(buf.String(), "cleared session") {
		t.Error("expected record in the original writer too")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_ChildSharesFile(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo, "text")
	child := logger.With("session", "s1")

	path := filepath.Join(t.TempDir(), "ctxmem.log")
	if err := logger.WithFile(path); err != nil {
		t.Fatal(err)
	}
	child.Info("loaded memory")

	// Closing through the child closes the shared file.
	if err := child.Close(); err != nil {
		t.Fatal(err)
	}
	child.Info("after close")

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "loaded memory") || !strings.Contains(string(data), "session=s1") {
		t.Errorf("expected child record in file, got %q", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Error("records after Close should not reach the file")
	}
	if !strings.Contains(buf.String(), "after close") {
		t.Error("the base writer should keep receiving records")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestLogger_Group(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo, "json")

	logger.Slog().WithGroup("request").Info("search", "query", "hi")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatal(err)
	}
	group, _ := record["request"].(map[string]interface{})
	if group["query"] != "hi" {
		t.Errorf("expected grouped attr, got %v", record)
	}
}
