package config

import "time"

// FileName is the project configuration file looked up by Load.
const FileName = "ctxmem.yaml"

// Config represents the main configuration (ctxmem.yaml)
type Config struct {
	Name      string          `yaml:"name" json:"name"`
	Service   ServiceConfig   `yaml:"service" json:"service"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
	Hooks     HooksConfig     `yaml:"hooks" json:"hooks"`
	DevServer DevServerConfig `yaml:"dev_server" json:"dev_server"`
}

// ServiceConfig configures the remote context-memory service
type ServiceConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	OrgID   string `yaml:"org_id" json:"org_id"`
	Timeout string `yaml:"timeout" json:"timeout"` // e.g. "30s"
	Scope   string `yaml:"scope" json:"scope"`     // search scope, "internal" by default
}

// SessionConfig selects the conversation session
type SessionConfig struct {
	ID string `yaml:"id" json:"id"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MetricsConfig configures the JSONL metrics export
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OTLP trace export
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Endpoint string `yaml:"endpoint" json:"endpoint"` // host:port
	URLPath  string `yaml:"url_path,omitempty" json:"url_path,omitempty"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Insecure bool   `yaml:"insecure" json:"insecure"`
}

// HooksConfig configures memory event hooks.
type HooksConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Hooks   []HookConfig `yaml:"hooks" json:"hooks"`
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`     // shell, webhook, log
	Events   []string `yaml:"events" json:"events"` // event types to match
	Blocking bool     `yaml:"blocking" json:"blocking"`
	Command  string   `yaml:"command,omitempty" json:"command,omitempty"` // for shell hooks
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`         // for webhook hooks
	Level    string   `yaml:"level,omitempty" json:"level,omitempty"`     // for log hooks (debug, info, warn)
}

// DevServerConfig configures the local context-memory emulator
type DevServerConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	Driver string `yaml:"driver" json:"driver"` // memory, sqlite
	Path   string `yaml:"path" json:"path"`     // sqlite file path
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// ParsedTimeout converts the service timeout string to time.Duration
func (s *ServiceConfig) ParsedTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 30 * time.Second, nil // default
	}
	return time.ParseDuration(s.Timeout)
}
