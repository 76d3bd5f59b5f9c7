package memory

import (
	"time"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
	"github.com/cadre-oss/ctxmem/internal/event"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

// Option configures a SessionMemory.
type Option func(*SessionMemory)

// WithOrgID sets the organization used when deleting session data.
func WithOrgID(orgID string) Option {
	return func(m *SessionMemory) {
		m.orgID = orgID
		m.orgSet = true
	}
}

// WithLogger routes diagnostics to logger instead of stderr.
func WithLogger(logger Logger) Option {
	return func(m *SessionMemory) { m.logger = logger }
}

// WithClock replaces time.Now when stamping entry identifiers.
func WithClock(now func() time.Time) Option {
	return func(m *SessionMemory) { m.now = now }
}

// WithEventBus publishes memory events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(m *SessionMemory) { m.bus = bus }
}

// WithMetrics records operation counts and remote latency.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *SessionMemory) { m.metrics = metrics }
}

// WithScope overrides the search scope ("internal" by default). An empty
// scope is a construction error.
func WithScope(scope string) Option {
	return func(m *SessionMemory) {
		m.scope = scope
		m.scopeSet = true
	}
}

// WithClientOptions passes options to the client built by Open.
// Ignored by New.
func WithClientOptions(opts ...contextapi.Option) Option {
	return func(m *SessionMemory) { m.clientOpts = append(m.clientOpts, opts...) }
}
