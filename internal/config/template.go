package config

import "fmt"

// Templates available to 'ctxmem init'.
const (
	TemplateDefault = "default"
	TemplateLocal   = "local"
)

// Templates lists the template names accepted by Starter.
var Templates = []string{TemplateDefault, TemplateLocal}

// Starter returns a commented ctxmem.yaml for the named template. The
// local template points the service at 'ctxmem dev-server'.
func Starter(name, template string) (string, error) {
	var service string
	switch template {
	case TemplateDefault, "":
		service = fmt.Sprintf(`service:
  base_url: %s
  # api_key defaults to $%s
  org_id: %s
  timeout: %s
  scope: %s`, DefaultBaseURL, EnvAPIKey, DefaultOrgID, DefaultTimeout, DefaultScope)
	case TemplateLocal:
		service = fmt.Sprintf(`service:
  base_url: http://localhost:8765
  api_key: dev-key
  org_id: %s
  timeout: 5s
  scope: %s`, DefaultOrgID, DefaultScope)
	default:
		return "", fmt.Errorf("unknown template: %s", template)
	}

	return fmt.Sprintf(`# %s - ctxmem configuration
name: %s

# Remote context-memory service
%s

# Session to scope reads and writes to (or set %s)
session:
  id: ""

# Logging
logging:
  level: info
  format: text  # text | json

# JSONL metrics snapshot per command
metrics:
  enabled: false
  path: .ctxmem/metrics.jsonl

# OTLP trace export
tracing:
  enabled: false
  endpoint: localhost:4318
  insecure: true

# Event hooks (shell, webhook, log)
hooks:
  enabled: false
  hooks:
    - name: audit
      type: log
      events: [memory.saved, memory.cleared, memory.failed]
      level: info

# Local emulator used by 'ctxmem dev-server'
dev_server:
  addr: localhost:8765
  driver: memory  # memory | sqlite
  path: .ctxmem/devserver.db
`, FileName, name, service, EnvSession), nil
}
