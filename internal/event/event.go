package event

import "time"

// EventType identifies the kind of memory event.
type EventType string

const (
	MemoryLoaded      EventType = "memory.loaded"
	MemorySaved       EventType = "memory.saved"
	MemorySaveSkipped EventType = "memory.save_skipped"
	MemoryCleared     EventType = "memory.cleared"

	// MemoryFailed fires when a remote call fails and the operation degrades.
	MemoryFailed EventType = "memory.failed"
)

// Event carries data about a memory operation.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Session   string                 `json:"session,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, session string, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Session:   session,
		Data:      data,
	}
}
