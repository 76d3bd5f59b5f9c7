package localsvc

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

// Server serves the context-memory routes over a Store.
type Server struct {
	store  Store
	apiKey string
	logger *telemetry.Logger
}

// NewServer creates a server. An empty apiKey disables authentication.
func NewServer(store Store, apiKey string, logger *telemetry.Logger) *Server {
	if logger == nil {
		logger = telemetry.NewLogger(false)
	}
	return &Server{
		store:  store,
		apiKey: apiKey,
		logger: logger,
	}
}

// Handler returns the instrumented route table.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.setupRoutes(), "ctxmem-dev-server")
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting context-memory dev server", "addr", addr, "auth", s.apiKey != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down dev server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.Handle("POST "+contextapi.SearchPath, s.requireKey(s.handleSearch))
	mux.Handle("POST "+contextapi.AddPath, s.requireKey(s.handleAdd))
	mux.Handle("POST "+contextapi.DeletePath, s.requireKey(s.handleDelete))

	return mux
}

// requireKey rejects requests without the configured bearer key.
func (s *Server) requireKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token != s.apiKey {
				jsonError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}
		next(w, r)
	})
}
