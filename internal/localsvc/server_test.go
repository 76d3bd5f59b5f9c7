package localsvc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *contextapi.Client) {
	t.Helper()
	logger := telemetry.NewLoggerWithWriter(io.Discard, slog.LevelDebug, "text")
	srv := NewServer(NewMemoryStore(), apiKey, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	key := apiKey
	if key == "" {
		key = "sk-anything"
	}
	client, err := contextapi.NewClient(key, contextapi.WithBaseURL(ts.URL))
	if err != nil {
		t.Fatal(err)
	}
	return ts, client
}

func searchSession(session, query string) *contextapi.SearchRequest {
	return &contextapi.SearchRequest{
		Query: query,
		Scope: contextapi.ScopeInternal,
		BodyMetadata: contextapi.SearchMetadata{
			FileType:  contextapi.FileTypeText,
			GroupName: []string{session},
		},
	}
}

func addSession(session string, contents ...string) *contextapi.AddMemoryRequest {
	req := &contextapi.AddMemoryRequest{
		MemoryID: session,
		Metadata: contextapi.MemoryMetadata{GroupName: []string{session}},
	}
	for _, c := range contents {
		req.Contents = append(req.Contents, contextapi.MemoryEntry{
			Content:  c,
			Metadata: contextapi.EntryMetadata{Source: session, MessageID: "1", Type: contextapi.EntryTypeText},
		})
	}
	return req
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, "sk-secret")

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 without auth, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestServer_RoundTrip(t *testing.T) {
	_, client := newTestServer(t, "")
	ctx := context.Background()

	if err := client.AddMemory(ctx, addSession("s1", "My name is Alice", "Nice to meet you")); err != nil {
		t.Fatalf("add: %v", err)
	}

	resp, err := client.Search(ctx, searchSession("s1", "What is my name?"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Contexts) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Contexts))
	}
	if resp.Contexts[0].Content != "My name is Alice" {
		t.Errorf("expected best match first, got %q", resp.Contexts[0].Content)
	}

	var meta map[string]string
	if err := json.Unmarshal(resp.Contexts[0].Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["memory_id"] != "s1" || meta["messageId"] != "1" {
		t.Errorf("unexpected metadata %v", meta)
	}

	if err := client.DeleteMemory(ctx, &contextapi.DeleteMemoryRequest{MemoryID: "s1", OrganizationID: "default"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp, _ = client.Search(ctx, searchSession("s1", "name"))
	if len(resp.Contexts) != 0 {
		t.Errorf("expected no results after delete, got %d", len(resp.Contexts))
	}
}

func TestServer_DeleteUnknownIsOK(t *testing.T) {
	_, client := newTestServer(t, "")

	err := client.DeleteMemory(context.Background(), &contextapi.DeleteMemoryRequest{MemoryID: "never-written", OrganizationID: "default"})
	if err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestServer_Auth(t *testing.T) {
	ts, client := newTestServer(t, "sk-secret")
	ctx := context.Background()

	if _, err := client.Search(ctx, searchSession("s", "q")); err != nil {
		t.Fatalf("expected authorized search to succeed, got %v", err)
	}

	wrong, _ := contextapi.NewClient("sk-wrong", contextapi.WithBaseURL(ts.URL))
	_, err := wrong.Search(ctx, searchSession("s", "q"))
	if contextapi.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if ctxerrors.AsCode(err) != ctxerrors.CodeRemoteError {
		t.Errorf("expected REMOTE_ERROR, got %q", ctxerrors.AsCode(err))
	}
}

func TestServer_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t, "")

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed search", contextapi.SearchPath, `{not json`},
		{"empty query", contextapi.SearchPath, `{"query":""}`},
		{"add without memory id", contextapi.AddPath, `{"contents":[{"content":"x"}]}`},
		{"add without contents", contextapi.AddPath, `{"memory_id":"s","contents":[]}`},
		{"delete without memory id", contextapi.DeletePath, `{"organization_id":"default"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+tt.path, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + contextapi.SearchPath)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServer_Start(t *testing.T) {
	srv := NewServer(NewMemoryStore(), "", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx, "127.0.0.1:0") }()
	cancel()

	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
