// Package memory adapts a hosted context-memory service to the turn-based
// memory interface of a conversational agent. All reads and writes are
// scoped to one session identifier.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
	"github.com/cadre-oss/ctxmem/internal/event"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

const (
	HistoryKey    = "history"
	InputKey      = "input"
	OutputKey     = "output"
	FallbackQuery = "conversation"
)

// Client is the subset of the context-memory API the adapter needs.
type Client interface {
	Search(ctx context.Context, req *contextapi.SearchRequest) (*contextapi.SearchResponse, error)
	AddMemory(ctx context.Context, req *contextapi.AddMemoryRequest) error
	DeleteMemory(ctx context.Context, req *contextapi.DeleteMemoryRequest) error
}

var _ Client = (*contextapi.Client)(nil)

// Logger receives diagnostics for failures absorbed at the boundary.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// SessionMemory persists conversation turns for one session and retrieves
// relevant history before each new turn. It holds no mutable state and is
// safe for concurrent use.
type SessionMemory struct {
	client    Client
	sessionID string
	orgID     string
	orgSet    bool
	scope     string
	scopeSet  bool

	logger     Logger
	now        func() time.Time
	bus        *event.Bus
	metrics    *telemetry.Metrics
	clientOpts []contextapi.Option
}

// Open builds a client from apiKey and wraps it. Credential errors from the
// client are returned unchanged.
func Open(apiKey, sessionID string, opts ...Option) (*SessionMemory, error) {
	m, err := configure(sessionID, opts)
	if err != nil {
		return nil, err
	}
	client, err := contextapi.NewClient(apiKey, m.clientOpts...)
	if err != nil {
		return nil, err
	}
	m.client = client
	return m, nil
}

// New wraps an existing client.
func New(client Client, sessionID string, opts ...Option) (*SessionMemory, error) {
	if client == nil {
		return nil, fmt.Errorf("memory: nil client")
	}
	m, err := configure(sessionID, opts)
	if err != nil {
		return nil, err
	}
	m.client = client
	return m, nil
}

func configure(sessionID string, opts []Option) (*SessionMemory, error) {
	m := &SessionMemory{
		sessionID: sessionID,
		orgID:     contextapi.DefaultOrgID,
		scope:     contextapi.ScopeInternal,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if sessionID == "" {
		return nil, ctxerrors.New(ctxerrors.CodeSessionMissing, "session id is empty").
			WithSuggestion("Pass a session id, e.g. one from 'ctxmem session new'")
	}
	if m.orgSet && strings.TrimSpace(m.orgID) == "" {
		return nil, ctxerrors.New(ctxerrors.CodeOrgMissing, "organization id is empty").
			WithSuggestion("Set service.org_id in ctxmem.yaml or omit the option to use \"default\"")
	}
	if m.scopeSet && strings.TrimSpace(m.scope) == "" {
		return nil, ctxerrors.New(ctxerrors.CodeConfigInvalid, "search scope is empty").
			WithSuggestion("Set service.scope in ctxmem.yaml or omit the option to use \"internal\"")
	}
	if m.logger == nil {
		m.logger = telemetry.NewLogger(false)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// SessionID returns the session this adapter is scoped to.
func (m *SessionMemory) SessionID() string { return m.sessionID }

// OrgID returns the organization used for deletion.
func (m *SessionMemory) OrgID() string { return m.orgID }

// VariableNames lists the prompt variables this memory supplies.
func (m *SessionMemory) VariableNames() []string {
	return []string{HistoryKey}
}

// MemoryKeys is an alias of VariableNames.
func (m *SessionMemory) MemoryKeys() []string {
	return m.VariableNames()
}

// Load returns {"history": ...} built from a relevance search over the
// session. Failures are logged and yield an empty history.
func (m *SessionMemory) Load(ctx context.Context, inputs map[string]any) map[string]any {
	r := m.loadHistory(ctx, QueryFor(inputs), "Error loading memory variables")
	return map[string]any{HistoryKey: strings.Join(r.Or(nil), "\n")}
}

// Save stores the turn's input and output as up to two entries. An empty
// turn makes no remote call. Failures are logged and otherwise ignored.
func (m *SessionMemory) Save(ctx context.Context, inputs, outputs map[string]any) {
	m.saveTurn(ctx, stringValue(inputs, InputKey), stringValue(outputs, OutputKey), "Error saving context")
}

// Clear deletes everything stored for the session. Failures are logged and
// otherwise ignored.
func (m *SessionMemory) Clear(ctx context.Context) {
	m.clearSession(ctx, "Error clearing memory")
}

// SearchHistory runs the session search and reports failures to the caller.
// It is traced, counted and emits events exactly like Load.
func (m *SessionMemory) SearchHistory(ctx context.Context, query string) ([]string, error) {
	return m.loadHistory(ctx, query, "").Unwrap()
}

// AddTurn stores one turn and returns the number of entries written.
// An empty turn writes nothing and returns 0, nil.
func (m *SessionMemory) AddTurn(ctx context.Context, input, output string) (int, error) {
	return m.saveTurn(ctx, input, output, "").Unwrap()
}

// DeleteSession deletes the session's entries and reports failures.
func (m *SessionMemory) DeleteSession(ctx context.Context) error {
	_, err := m.clearSession(ctx, "").Unwrap()
	return err
}

// loadHistory, saveTurn and clearSession carry the span, metrics and events
// shared by both surfaces. A non-empty failMsg also logs the failure; the
// error-returning variants pass "" and leave reporting to their caller.

func (m *SessionMemory) loadHistory(ctx context.Context, query, failMsg string) result[[]string] {
	ctx, span := m.startSpan(ctx, "memory.load", attribute.String("memory.query", query))
	defer span.End()

	if m.metrics != nil {
		m.metrics.IncLoads()
	}

	r := m.search(ctx, query)
	if r.Failed() {
		m.fail(ctx, span, failMsg, r.op, r.err)
		return r
	}

	span.SetAttributes(attribute.Int("memory.results", len(r.value)))
	m.logger.Debug("loaded memory", "session", m.sessionID, "results", len(r.value))
	m.emit(event.MemoryLoaded, map[string]interface{}{"query": query, "results": len(r.value)})
	return r
}

func (m *SessionMemory) saveTurn(ctx context.Context, input, output, failMsg string) result[int] {
	ctx, span := m.startSpan(ctx, "memory.save")
	defer span.End()

	entries := m.buildEntries(input, output)
	if len(entries) == 0 {
		if m.metrics != nil {
			m.metrics.IncSkippedSaves()
		}
		m.emit(event.MemorySaveSkipped, nil)
		return ok(0)
	}

	r := m.add(ctx, entries)
	if r.Failed() {
		m.fail(ctx, span, failMsg, r.op, r.err)
		return r
	}

	if m.metrics != nil {
		m.metrics.IncSaves(r.value)
	}
	span.SetAttributes(attribute.Int("memory.entries", r.value))
	m.logger.Debug("saved context", "session", m.sessionID, "entries", r.value)
	m.emit(event.MemorySaved, map[string]interface{}{"entries": r.value})
	return r
}

func (m *SessionMemory) clearSession(ctx context.Context, failMsg string) result[struct{}] {
	ctx, span := m.startSpan(ctx, "memory.clear")
	defer span.End()

	r := m.remove(ctx)
	if r.Failed() {
		m.fail(ctx, span, failMsg, r.op, r.err)
		return r
	}

	if m.metrics != nil {
		m.metrics.IncClears()
	}
	m.emit(event.MemoryCleared, nil)
	return r
}

func (m *SessionMemory) search(ctx context.Context, query string) result[[]string] {
	start := time.Now()
	resp, err := m.client.Search(ctx, &contextapi.SearchRequest{
		Query:                      query,
		SimilarityThreshold:        0,
		MinimumSimilarityThreshold: 0,
		Scope:                      m.scope,
		BodyMetadata: contextapi.SearchMetadata{
			FileType:  contextapi.FileTypeText,
			GroupName: []string{m.sessionID},
		},
	})
	m.observe(start)
	if err != nil {
		return failed[[]string]("search", err)
	}
	if resp == nil {
		return failed[[]string]("search", fmt.Errorf("empty search response"))
	}

	items := make([]string, 0, len(resp.Contexts))
	for _, c := range resp.Contexts {
		if c.Content != "" {
			items = append(items, c.Content)
		}
	}
	return ok(items)
}

func (m *SessionMemory) add(ctx context.Context, entries []contextapi.MemoryEntry) result[int] {
	start := time.Now()
	err := m.client.AddMemory(ctx, &contextapi.AddMemoryRequest{
		MemoryID: m.sessionID,
		Contents: entries,
		Metadata: contextapi.MemoryMetadata{GroupName: []string{m.sessionID}},
	})
	m.observe(start)
	if err != nil {
		return failed[int]("add", err)
	}
	return ok(len(entries))
}

func (m *SessionMemory) remove(ctx context.Context) result[struct{}] {
	start := time.Now()
	err := m.client.DeleteMemory(ctx, &contextapi.DeleteMemoryRequest{
		MemoryID:       m.sessionID,
		OrganizationID: m.orgID,
	})
	m.observe(start)
	if err != nil {
		return failed[struct{}]("delete", err)
	}
	return ok(struct{}{})
}

// buildEntries stamps the user entry with ts and the output entry with ts+1
// from a single clock reading.
func (m *SessionMemory) buildEntries(input, output string) []contextapi.MemoryEntry {
	if input == "" && output == "" {
		return nil
	}

	ts := m.now().UnixMilli()
	entries := make([]contextapi.MemoryEntry, 0, 2)
	if input != "" {
		entries = append(entries, m.entry(input, ts))
	}
	if output != "" {
		entries = append(entries, m.entry(output, ts+1))
	}
	return entries
}

func (m *SessionMemory) entry(content string, id int64) contextapi.MemoryEntry {
	return contextapi.MemoryEntry{
		Content: content,
		Metadata: contextapi.EntryMetadata{
			Source:    m.sessionID,
			MessageID: strconv.FormatInt(id, 10),
			Type:      contextapi.EntryTypeText,
		},
	}
}

func (m *SessionMemory) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	attrs = append(attrs, attribute.String("memory.session", m.sessionID))
	return telemetry.Tracer().Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

func (m *SessionMemory) observe(start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordRemoteLatency(time.Since(start))
	}
}

// fail records a failed operation on the span, metrics and bus, and logs
// it when msg is set.
func (m *SessionMemory) fail(ctx context.Context, span oteltrace.Span, msg, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if msg != "" {
		keyvals := []interface{}{"error", err, "session", m.sessionID, "operation", op}
		if code := ctxerrors.AsCode(err); code != "" {
			keyvals = append(keyvals, "code", code)
		}
		for k, v := range telemetry.TraceFields(ctx) {
			keyvals = append(keyvals, k, v)
		}
		m.logger.Error(msg, keyvals...)
	}

	if m.metrics != nil {
		m.metrics.IncFailures()
	}
	m.emit(event.MemoryFailed, map[string]interface{}{"operation": op, "error": err.Error()})
}

func (m *SessionMemory) emit(t event.EventType, data map[string]interface{}) {
	if err := m.bus.Emit(event.NewEvent(t, m.sessionID, data)); err != nil {
		m.logger.Warn("memory event hook failed", "event", string(t), "error", err)
	}
}
