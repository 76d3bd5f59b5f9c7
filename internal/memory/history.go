package memory

import (
	"context"
	"fmt"
	"strings"
)

// QueryFor derives the search query from a turn's inputs: the trimmed
// "input" value, or FallbackQuery when it is absent or blank. Blank input is
// deliberately treated like missing input instead of being sent as a
// whitespace query.
func QueryFor(inputs map[string]any) string {
	if q := strings.TrimSpace(stringValue(inputs, InputKey)); q != "" {
		return q
	}
	return FallbackQuery
}

// stringValue reads key from m. Missing keys and nil values read as "".
func stringValue(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// AddUserMessage stores a single user utterance.
func (m *SessionMemory) AddUserMessage(ctx context.Context, text string) {
	m.Save(ctx, map[string]any{InputKey: text}, nil)
}

// AddAIMessage stores a single agent reply.
func (m *SessionMemory) AddAIMessage(ctx context.Context, text string) {
	m.Save(ctx, nil, map[string]any{OutputKey: text})
}

// Messages returns the session's entries as ranked for the fallback query.
// Failures are logged and yield an empty slice.
func (m *SessionMemory) Messages(ctx context.Context) []string {
	ctx, span := m.startSpan(ctx, "memory.messages")
	defer span.End()

	r := m.search(ctx, FallbackQuery)
	if r.Failed() {
		m.fail(ctx, span, "Error loading messages", r.op, r.err)
	}
	return r.Or([]string{})
}
