package testutil

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cadre-oss/ctxmem/internal/config"
	"github.com/cadre-oss/ctxmem/internal/event"
	"github.com/cadre-oss/ctxmem/internal/localsvc"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

// TestHarness provides everything needed for integration tests:
// config, events, logs, metrics, a mock client and assertion helpers.
type TestHarness struct {
	T        *testing.T
	Config   *config.Config
	EventBus *event.Bus
	Logger   *telemetry.Logger
	Logs     *LogBuffer
	Metrics  *telemetry.Metrics
	Client   *MockClient

	mu     sync.Mutex
	events []event.Event
}

// NewTestHarness creates a test harness with default configuration.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	logs := &LogBuffer{}
	logger := TestLogger(logs)
	bus := event.NewBus(logger)

	h := &TestHarness{
		T:        t,
		Config:   TestConfig(),
		EventBus: bus,
		Logger:   logger,
		Logs:     logs,
		Metrics:  telemetry.NewMetrics(),
		Client:   &MockClient{},
	}

	// Capture events via a hook
	bus.Register(&eventCapture{harness: h})

	return h
}

// StartLocalService runs a local context-memory service for the duration of
// the test and points the harness config at it. Returns the base URL.
func (h *TestHarness) StartLocalService(apiKey string) string {
	h.T.Helper()

	srv := localsvc.NewServer(localsvc.NewMemoryStore(), apiKey, h.Logger)
	ts := httptest.NewServer(srv.Handler())
	h.T.Cleanup(ts.Close)

	h.Config.Service.BaseURL = ts.URL
	if apiKey != "" {
		h.Config.Service.APIKey = apiKey
	}
	return ts.URL
}

// Events returns a copy of the captured events.
func (h *TestHarness) Events() []event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.Event(nil), h.events...)
}

// AssertEventEmitted checks that an event with the given type was emitted.
func (h *TestHarness) AssertEventEmitted(eventType event.EventType) {
	h.T.Helper()
	if h.EventCount(eventType) == 0 {
		h.T.Errorf("expected event %q to be emitted", eventType)
	}
}

// AssertNoEvent checks that an event type was NOT emitted.
func (h *TestHarness) AssertNoEvent(eventType event.EventType) {
	h.T.Helper()
	if h.EventCount(eventType) > 0 {
		h.T.Errorf("expected event %q NOT to be emitted, but it was", eventType)
	}
}

// EventCount returns the number of events with the given type.
func (h *TestHarness) EventCount(eventType event.EventType) int {
	count := 0
	for _, e := range h.Events() {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

// AssertLogged checks that the captured log output contains s.
func (h *TestHarness) AssertLogged(s string) {
	h.T.Helper()
	if !h.Logs.Contains(s) {
		h.T.Errorf("expected log output to contain %q, got:\n%s", s, h.Logs.String())
	}
}

// eventCapture is a blocking hook that records events.
type eventCapture struct {
	harness *TestHarness
}

func (c *eventCapture) Name() string                 { return "test-capture" }
func (c *eventCapture) Matches(event.EventType) bool { return true } // match all
func (c *eventCapture) IsBlocking() bool             { return true } // sync for tests

func (c *eventCapture) Handle(ev event.Event) error {
	c.harness.mu.Lock()
	defer c.harness.mu.Unlock()
	c.harness.events = append(c.harness.events, ev)
	return nil
}
