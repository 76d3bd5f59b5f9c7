package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/cadre-oss/ctxmem/internal/contextapi"
)

// Environment variables consulted when the file leaves a value empty.
const (
	EnvAPIKey  = "CTXMEM_API_KEY"
	EnvSession = "CTXMEM_SESSION"
)

// Default values written into a fresh configuration. The service values
// come from the client package so the two never drift.
const (
	DefaultBaseURL = contextapi.DefaultBaseURL
	DefaultOrgID   = contextapi.DefaultOrgID
	DefaultScope   = contextapi.ScopeInternal
	DefaultTimeout = "30s"
)

var (
	envPattern = regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Load loads ctxmem.yaml from dir
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads the configuration at path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

func defaultConfig() *Config {
	return &Config{
		Name: "ctxmem",
		Service: ServiceConfig{
			BaseURL: DefaultBaseURL,
			OrgID:   DefaultOrgID,
			Timeout: DefaultTimeout,
			Scope:   DefaultScope,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Path: ".ctxmem/metrics.jsonl",
		},
		DevServer: DevServerConfig{
			Addr:   "localhost:8765",
			Driver: "memory",
			Path:   ".ctxmem/devserver.db",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "ctxmem"
	}
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = DefaultBaseURL
	}
	if cfg.Service.OrgID == "" {
		cfg.Service.OrgID = DefaultOrgID
	}
	if cfg.Service.Timeout == "" {
		cfg.Service.Timeout = DefaultTimeout
	}
	if cfg.Service.Scope == "" {
		cfg.Service.Scope = DefaultScope
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = ".ctxmem/metrics.jsonl"
	}
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = "localhost:8765"
	}
	if cfg.DevServer.Driver == "" {
		cfg.DevServer.Driver = "memory"
	}
	if cfg.DevServer.Path == "" {
		cfg.DevServer.Path = ".ctxmem/devserver.db"
	}

	// Load credentials and session from environment if not set
	if cfg.Service.APIKey == "" {
		cfg.Service.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.Session.ID == "" {
		cfg.Session.ID = os.Getenv(EnvSession)
	}
}
