package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
)

var (
	validLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	validFormats    = map[string]bool{"text": true, "json": true, "": true}
	validHookTypes  = map[string]bool{"shell": true, "webhook": true, "log": true}
	validDrivers    = map[string]bool{"memory": true, "sqlite": true, "": true}
	validScopes     = map[string]bool{"internal": true, "external": true, "": true}
	validHookEvents = map[string]bool{
		"memory.loaded":       true,
		"memory.saved":        true,
		"memory.save_skipped": true,
		"memory.cleared":      true,
		"memory.failed":       true,
	}
)

// Validate checks a loaded configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errors []string

	// Service
	if cfg.Service.BaseURL != "" {
		u, err := url.Parse(cfg.Service.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid service.base_url %q", cfg.Service.BaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("service.base_url must be http or https, got %q", u.Scheme))
		}
	}
	if strings.TrimSpace(cfg.Service.OrgID) == "" {
		errors = append(errors, "service.org_id is required")
	}
	if cfg.Service.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Service.Timeout); err != nil {
			errors = append(errors, fmt.Sprintf("invalid service.timeout %q: %s", cfg.Service.Timeout, err))
		} else if d <= 0 {
			errors = append(errors, "service.timeout must be positive")
		}
	}
	if !validScopes[cfg.Service.Scope] {
		errors = append(errors, fmt.Sprintf("invalid service.scope: %s", cfg.Service.Scope))
	}

	// Logging
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errors = append(errors, fmt.Sprintf("invalid logging.level: %s", cfg.Logging.Level))
	}
	if !validFormats[cfg.Logging.Format] {
		errors = append(errors, fmt.Sprintf("invalid logging.format: %s", cfg.Logging.Format))
	}

	// Metrics / tracing
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errors = append(errors, "metrics.path is required when metrics are enabled")
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errors = append(errors, "tracing.endpoint is required when tracing is enabled")
	}

	// Hooks
	for i, h := range cfg.Hooks.Hooks {
		label := h.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errors = append(errors, fmt.Sprintf("hook %s: name is required", label))
		}
		if !validHookTypes[h.Type] {
			errors = append(errors, fmt.Sprintf("hook %s: invalid type %q", label, h.Type))
		}
		switch h.Type {
		case "shell":
			if h.Command == "" {
				errors = append(errors, fmt.Sprintf("hook %s: command is required for shell hooks", label))
			}
		case "webhook":
			if h.URL == "" {
				errors = append(errors, fmt.Sprintf("hook %s: url is required for webhook hooks", label))
			}
		}
		for _, ev := range h.Events {
			if !validHookEvents[ev] {
				errors = append(errors, fmt.Sprintf("hook %s: unknown event %q", label, ev))
			}
		}
	}

	// Dev server
	if !validDrivers[cfg.DevServer.Driver] {
		errors = append(errors, fmt.Sprintf("invalid dev_server.driver: %s", cfg.DevServer.Driver))
	}
	if cfg.DevServer.Driver == "sqlite" && cfg.DevServer.Path == "" {
		errors = append(errors, "dev_server.path is required for the sqlite driver")
	}

	if len(errors) > 0 {
		return ctxerrors.New(ctxerrors.CodeConfigInvalid,
			fmt.Sprintf("config validation failed: %s", strings.Join(errors, "; "))).
			WithSuggestion("Fix the listed fields in " + FileName + " or run 'ctxmem config show'")
	}
	return nil
}
