package localsvc

import (
	"encoding/json"
	"net/http"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
)

// --- Helpers ---

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// hitMetadata is echoed back in each search result.
type hitMetadata struct {
	MemoryID  string `json:"memory_id"`
	Source    string `json:"source,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Type      string `json:"type,omitempty"`
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"name":   "ctxmem-dev-server",
	})
}

// --- Context memory ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithTrace(r.Context())
	var req contextapi.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Query == "" {
		jsonError(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := s.store.Search(r.Context(), SearchInput{
		Query:    req.Query,
		Groups:   req.BodyMetadata.GroupName,
		MinScore: req.MinimumSimilarityThreshold,
	})
	if err != nil {
		log.Error("search failed", "error", err)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := contextapi.SearchResponse{Contexts: make([]contextapi.ContextItem, 0, len(hits))}
	for _, h := range hits {
		meta, _ := json.Marshal(hitMetadata{
			MemoryID:  h.MemoryID,
			Source:    h.Source,
			MessageID: h.MessageID,
			Type:      h.Type,
		})
		resp.Contexts = append(resp.Contexts, contextapi.ContextItem{
			Content:  h.Content,
			Score:    h.Score,
			Metadata: meta,
		})
	}

	log.Debug("search", "query", req.Query, "groups", req.BodyMetadata.GroupName, "results", len(hits))
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithTrace(r.Context())
	var req contextapi.AddMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.MemoryID == "" {
		jsonError(w, http.StatusBadRequest, "memory_id is required")
		return
	}
	if len(req.Contents) == 0 {
		jsonError(w, http.StatusBadRequest, "contents are required")
		return
	}

	entries := make([]Entry, 0, len(req.Contents))
	for _, c := range req.Contents {
		entries = append(entries, Entry{
			Content:   c.Content,
			Source:    c.Metadata.Source,
			MessageID: c.Metadata.MessageID,
			Type:      c.Metadata.Type,
		})
	}

	if err := s.store.Add(r.Context(), AddInput{
		MemoryID: req.MemoryID,
		Groups:   req.Metadata.GroupName,
		Entries:  entries,
	}); err != nil {
		log.Error("add failed", "memory_id", req.MemoryID, "error", err)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Debug("add", "memory_id", req.MemoryID, "entries", len(entries))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"added":   len(entries),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithTrace(r.Context())
	var req contextapi.DeleteMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.MemoryID == "" {
		jsonError(w, http.StatusBadRequest, "memory_id is required")
		return
	}

	n, err := s.store.Delete(r.Context(), req.MemoryID, req.OrganizationID)
	if err != nil {
		log.Error("delete failed", "memory_id", req.MemoryID, "error", err)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Debug("delete", "memory_id", req.MemoryID, "organization_id", req.OrganizationID, "deleted", n)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": n,
	})
}
