package contextapi

import "encoding/json"

// Fixed values used by session-scoped memory.
const (
	ScopeInternal = "internal"
	FileTypeText  = "text"
	EntryTypeText = "text"
)

// SearchRequest is the body of POST /api/v1/context/search.
type SearchRequest struct {
	Query                      string         `json:"query"`
	SimilarityThreshold        float64        `json:"similarity_threshold"`
	MinimumSimilarityThreshold float64        `json:"minimum_similarity_threshold"`
	Scope                      string         `json:"scope"`
	BodyMetadata               SearchMetadata `json:"body_metadata"`
}

// SearchMetadata restricts a search to entries in the given groups.
type SearchMetadata struct {
	FileType  string   `json:"file_type"`
	GroupName []string `json:"group_name"`
}

// SearchResponse lists ranked results. Contexts is never nil after decoding.
type SearchResponse struct {
	Contexts []ContextItem `json:"contexts"`
}

// ContextItem is one search hit. Content may be empty.
type ContextItem struct {
	Content  string          `json:"content,omitempty"`
	Score    float64         `json:"score,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// AddMemoryRequest is the body of POST /api/v1/context/memory/add.
type AddMemoryRequest struct {
	MemoryID string         `json:"memory_id"`
	Contents []MemoryEntry  `json:"contents"`
	Metadata MemoryMetadata `json:"metadata"`
}

// MemoryEntry is one stored unit of conversational text.
type MemoryEntry struct {
	Content  string        `json:"content"`
	Metadata EntryMetadata `json:"metadata"`
}

// EntryMetadata tags an entry with its session and identifier.
type EntryMetadata struct {
	Source    string `json:"source"`
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
}

// MemoryMetadata applies to the whole add batch.
type MemoryMetadata struct {
	GroupName []string `json:"group_name"`
}

// DeleteMemoryRequest is the body of POST /api/v1/context/memory/delete.
type DeleteMemoryRequest struct {
	MemoryID       string `json:"memory_id"`
	OrganizationID string `json:"organization_id"`
}

// apiError is the error body returned by the service, when it returns one.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
