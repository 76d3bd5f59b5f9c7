package contextapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
)

const (
	DefaultBaseURL = "https://platform-backend.getalchemystai.com"
	DefaultOrgID   = "default"
	DefaultTimeout = 30 * time.Second

	// Service routes, shared with the local emulator.
	SearchPath = "/api/v1/context/search"
	AddPath    = "/api/v1/context/memory/add"
	DeletePath = "/api/v1/context/memory/delete"

	maxErrorBody = 4 << 10
)

// Client talks to the hosted context-memory service.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another deployment (or a local emulator).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient validates the credential and returns a client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ctxerrors.New(ctxerrors.CodeAPIKeyMissing, "context-memory API key not set").
			WithSuggestion("Set the CTXMEM_API_KEY environment variable or add service.api_key to ctxmem.yaml")
	}
	if strings.IndexFunc(apiKey, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return nil, ctxerrors.New(ctxerrors.CodeAPIKeyInvalid, "context-memory API key contains whitespace or control characters").
			WithSuggestion("Check the key for stray newlines or quotes")
	}

	c := &Client{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		userAgent: "ctxmem",
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ctxerrors.Newf(ctxerrors.CodeConfigInvalid, "invalid service base URL %q", c.baseURL)
	}

	return c, nil
}

// BaseURL returns the service root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search runs a relevance search. A missing contexts array yields an empty slice.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "search", SearchPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Contexts == nil {
		resp.Contexts = []ContextItem{}
	}
	return &resp, nil
}

// AddMemory stores a batch of entries.
func (c *Client) AddMemory(ctx context.Context, req *AddMemoryRequest) error {
	return c.post(ctx, "add memory", AddPath, req, nil)
}

// DeleteMemory removes every entry stored under req.MemoryID.
func (c *Client) DeleteMemory(ctx context.Context, req *DeleteMemoryRequest) error {
	return c.post(ctx, "delete memory", DeletePath, req, nil)
}

func (c *Client) post(ctx context.Context, op, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ctxerrors.Wrap(ctxerrors.CodeRequestFailed, op+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(op, resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ctxerrors.Wrap(ctxerrors.CodeRequestFailed, "failed to read "+op+" response", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return ctxerrors.Wrap(ctxerrors.CodeDecodeFailed, "failed to decode "+op+" response", err)
	}
	return nil
}

func remoteError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(raw))
	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil {
		if apiErr.Message != "" {
			detail = apiErr.Message
		} else if apiErr.Error != "" {
			detail = apiErr.Error
		}
	}

	err := ctxerrors.Wrap(ctxerrors.CodeRemoteError,
		fmt.Sprintf("%s: API error (status %d)", op, resp.StatusCode),
		&StatusError{StatusCode: resp.StatusCode, Detail: detail})
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		err.WithSuggestion("Check that the API key is valid for this organization")
	case http.StatusTooManyRequests:
		err.WithSuggestion("The service is rate limiting requests; try again later")
	}
	return err
}

// StatusError carries the HTTP status of a rejected request.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Detail
}

// StatusCode returns the HTTP status behind err, or 0 when the request never
// got a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
