package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cadre-oss/ctxmem/internal/config"
	"github.com/cadre-oss/ctxmem/internal/contextapi"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
	"github.com/cadre-oss/ctxmem/internal/event"
	"github.com/cadre-oss/ctxmem/internal/memory"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

// loadConfig reads ctxmem.yaml (or --config) and applies flag and env
// overrides on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, ctxerrors.Wrap(ctxerrors.CodeConfigInvalid, "failed to load config", err)
	}

	if v := viper.GetString(overrideKey("session")); v != "" {
		cfg.Session.ID = v
	}
	if v := viper.GetString(overrideKey("api-key")); v != "" {
		cfg.Service.APIKey = v
	}
	if v := viper.GetString(overrideKey("base-url")); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := viper.GetString(overrideKey("org-id")); v != "" {
		cfg.Service.OrgID = v
	}

	return cfg, nil
}

// appEnv holds the ambient services shared by memory commands.
type appEnv struct {
	cfg      *config.Config
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	bus      *event.Bus
	exporter *telemetry.JSONFileExporter
	shutdown func(context.Context) error
}

func newAppEnv(cmd *cobra.Command) (*appEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return setupEnv(cmd.Context(), cmd.ErrOrStderr(), cfg)
}

// setupEnv builds the ambient services for cfg. Hooks are resolved before
// any file or exporter is opened so a bad hook block leaves nothing behind.
func setupEnv(ctx context.Context, w io.Writer, cfg *config.Config) (*appEnv, error) {
	logger := telemetry.NewLoggerWithWriter(w, levelFor(cfg.Logging.Level), cfg.Logging.Format)

	hooks, err := event.HooksFromConfig(cfg.Hooks, logger)
	if err != nil {
		return nil, ctxerrors.Wrap(ctxerrors.CodeConfigInvalid, "invalid hooks", err)
	}

	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			logger.Warn("Failed to open log file", "path", cfg.Logging.File, "error", err)
		}
	}

	env := &appEnv{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		bus:     event.NewBus(logger),
	}
	env.bus.Register(hooks...)

	if cfg.Metrics.Enabled {
		exporter, err := telemetry.NewJSONFileExporter(cfg.Metrics.Path)
		if err != nil {
			logger.Warn("Failed to open metrics file", "path", cfg.Metrics.Path, "error", err)
		} else {
			env.metrics.SetExporter(exporter)
			env.exporter = exporter
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingOptions{
			Endpoint: cfg.Tracing.Endpoint,
			URLPath:  cfg.Tracing.URLPath,
			APIKey:   cfg.Tracing.APIKey,
			Insecure: cfg.Tracing.Insecure,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize tracing", "error", err)
		} else {
			env.shutdown = shutdown
		}
	}

	return env, nil
}

// openMemory builds the session adapter for the configured session.
func (e *appEnv) openMemory() (*memory.SessionMemory, error) {
	return e.openSession(e.cfg.Session.ID)
}

func (e *appEnv) openSession(session string) (*memory.SessionMemory, error) {
	if session == "" {
		return nil, ctxerrors.New(ctxerrors.CodeSessionMissing, "no session id configured").
			WithSuggestion("Pass --session, set CTXMEM_SESSION, or run 'ctxmem session new'")
	}

	timeout, err := e.cfg.Service.ParsedTimeout()
	if err != nil {
		return nil, ctxerrors.Wrap(ctxerrors.CodeConfigInvalid, "invalid service timeout", err)
	}

	return memory.Open(e.cfg.Service.APIKey, session,
		memory.WithOrgID(e.cfg.Service.OrgID),
		memory.WithScope(e.cfg.Service.Scope),
		memory.WithLogger(e.logger),
		memory.WithEventBus(e.bus),
		memory.WithMetrics(e.metrics),
		memory.WithClientOptions(
			contextapi.WithBaseURL(e.cfg.Service.BaseURL),
			contextapi.WithTimeout(timeout),
			contextapi.WithUserAgent("ctxmem/"+Version),
		),
	)
}

// close drains hooks, flushes metrics and traces, and closes log files.
func (e *appEnv) close(command string) {
	e.bus.Wait()

	labels := map[string]string{"command": command, "session": e.cfg.Session.ID}
	if err := e.metrics.Flush(command, labels); err != nil {
		e.logger.Warn("Failed to export metrics", "error", err)
	}
	if e.exporter != nil {
		e.exporter.Close()
	}

	if e.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.shutdown(ctx); err != nil {
			e.logger.Warn("Failed to flush traces", "error", err)
		}
	}

	e.logger.Close()
}

// levelFor resolves the configured log level; --verbose forces debug.
func levelFor(name string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	level, _ := telemetry.ParseLevel(name)
	return level
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "***"
	}
	return fmt.Sprintf("***%s", key[len(key)-4:])
}
