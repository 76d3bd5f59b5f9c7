package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cadre-oss/ctxmem/internal/config"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and modifying configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a value in ctxmem.yaml using dot notation, e.g.

  ctxmem config set service.org_id acme
  ctxmem config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Never print secrets
	cfg.Service.APIKey = maskKey(cfg.Service.APIKey)
	if cfg.Tracing.APIKey != "" {
		cfg.Tracing.APIKey = maskKey(cfg.Tracing.APIKey)
	}
	if cfg.DevServer.APIKey != "" {
		cfg.DevServer.APIKey = maskKey(cfg.DevServer.APIKey)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintln(w, string(out))

	if _, err := os.Stat(configPath()); err == nil {
		fmt.Fprintf(w, "Config file: %s\n", configPath())
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configFile := configPath()

	cfg := map[string]interface{}{}
	content, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
	}

	if err := setNestedValue(cfg, key, value); err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, out, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", configPath())
	return nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.FileName
}

// setNestedValue sets a dot-separated key, creating intermediate maps.
func setNestedValue(m map[string]interface{}, key, value string) error {
	parts := splitKey(key)
	if len(parts) == 0 {
		return ctxerrors.New(ctxerrors.CodeConfigInvalid, "empty config key")
	}

	current := m
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		next, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return ctxerrors.Newf(ctxerrors.CodeConfigInvalid, "%s is not a section", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = scalar(value)
	return nil
}

// scalar types a command-line value the way YAML would ("true" is a bool).
func scalar(value string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(value), &v); err != nil || v == nil {
		return value
	}
	switch v.(type) {
	case bool, int, float64:
		return v
	default:
		return value
	}
}

func splitKey(key string) []string {
	var parts []string
	current := ""
	for _, c := range key {
		if c == '.' {
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
		} else {
			current += string(c)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}
