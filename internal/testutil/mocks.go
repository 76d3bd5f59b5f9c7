package testutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadre-oss/ctxmem/internal/config"
	"github.com/cadre-oss/ctxmem/internal/contextapi"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

// MockClient implements the context-memory client for testing. It records
// every request and, unless told to fail, keeps added entries in memory so
// later searches can return them.
type MockClient struct {
	mu         sync.Mutex
	Searches   []*contextapi.SearchRequest
	Adds       []*contextapi.AddMemoryRequest
	Deletes    []*contextapi.DeleteMemoryRequest
	ShouldFail bool
	FailErr    error
	Delay      time.Duration

	// Results, when set, is returned from Search instead of stored entries.
	Results []string

	stored map[string][]string // memory_id -> contents
}

func (m *MockClient) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockClient) failure() error {
	if m.FailErr != nil {
		return m.FailErr
	}
	return fmt.Errorf("mock client error")
}

func (m *MockClient) Search(ctx context.Context, req *contextapi.SearchRequest) (*contextapi.SearchResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Searches = append(m.Searches, req)
	if m.ShouldFail {
		return nil, m.failure()
	}

	resp := &contextapi.SearchResponse{Contexts: []contextapi.ContextItem{}}
	if m.Results != nil {
		for _, r := range m.Results {
			resp.Contexts = append(resp.Contexts, contextapi.ContextItem{Content: r})
		}
		return resp, nil
	}
	for _, group := range req.BodyMetadata.GroupName {
		for _, c := range m.stored[group] {
			resp.Contexts = append(resp.Contexts, contextapi.ContextItem{Content: c})
		}
	}
	return resp, nil
}

func (m *MockClient) AddMemory(ctx context.Context, req *contextapi.AddMemoryRequest) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Adds = append(m.Adds, req)
	if m.ShouldFail {
		return m.failure()
	}

	if m.stored == nil {
		m.stored = make(map[string][]string)
	}
	for _, e := range req.Contents {
		m.stored[req.MemoryID] = append(m.stored[req.MemoryID], e.Content)
	}
	return nil
}

func (m *MockClient) DeleteMemory(ctx context.Context, req *contextapi.DeleteMemoryRequest) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deletes = append(m.Deletes, req)
	if m.ShouldFail {
		return m.failure()
	}
	delete(m.stored, req.MemoryID)
	return nil
}

// SetFailing toggles failure mode (thread-safe).
func (m *MockClient) SetFailing(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldFail = fail
	m.FailErr = err
}

// CallCount returns the total number of requests made (thread-safe).
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Searches) + len(m.Adds) + len(m.Deletes)
}

// AddCount returns the number of AddMemory calls (thread-safe).
func (m *MockClient) AddCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Adds)
}

// LastAdd returns the most recent AddMemory request, or nil.
func (m *MockClient) LastAdd() *contextapi.AddMemoryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Adds) == 0 {
		return nil
	}
	return m.Adds[len(m.Adds)-1]
}

// LastSearch returns the most recent Search request, or nil.
func (m *MockClient) LastSearch() *contextapi.SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Searches) == 0 {
		return nil
	}
	return m.Searches[len(m.Searches)-1]
}

// LastDelete returns the most recent DeleteMemory request, or nil.
func (m *MockClient) LastDelete() *contextapi.DeleteMemoryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Deletes) == 0 {
		return nil
	}
	return m.Deletes[len(m.Deletes)-1]
}

// LogBuffer is a concurrency-safe buffer for capturing log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether the captured output contains s.
func (b *LogBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

// TestLogger returns a debug-level text logger writing to buf.
func TestLogger(buf *LogBuffer) *telemetry.Logger {
	return telemetry.NewLoggerWithWriter(buf, slog.LevelDebug, "text")
}

// NewSessionID returns a unique session identifier.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// TestConfig returns a minimal config for testing.
func TestConfig() *config.Config {
	return &config.Config{
		Name: "test-project",
		Service: config.ServiceConfig{
			BaseURL: "http://127.0.0.1:0",
			APIKey:  "sk-test",
			OrgID:   "test-org",
			Timeout: "5s",
			Scope:   contextapi.ScopeInternal,
		},
		Session: config.SessionConfig{
			ID: "session_test",
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		DevServer: config.DevServerConfig{
			Addr:   "localhost:0",
			Driver: "memory",
		},
	}
}
