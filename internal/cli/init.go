package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/ctxmem/internal/config"
)

var (
	initTemplate string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Create a ctxmem.yaml",
	Long: `Create a starter ctxmem.yaml and the .ctxmem working directory.

Available templates:
  default - Hosted service, API key from CTXMEM_API_KEY
  local   - Local dev-server on localhost:8765`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initTemplate, "template", "t", config.TemplateDefault,
		"config template ("+strings.Join(config.Templates, ", ")+")")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing ctxmem.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	if err := os.MkdirAll(filepath.Join(projectDir, ".ctxmem"), 0755); err != nil {
		return fmt.Errorf("failed to create .ctxmem directory: %w", err)
	}

	path := filepath.Join(projectDir, config.FileName)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	name := filepath.Base(projectDir)
	if abs, err := filepath.Abs(projectDir); err == nil {
		name = filepath.Base(abs)
	}

	content, err := config.Starter(name, initTemplate)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := createGitignore(projectDir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized ctxmem in %s\n", projectDir)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Set %s (or service.api_key in %s)\n", config.EnvAPIKey, config.FileName)
	fmt.Fprintf(out, "  2. export %s=$(ctxmem session new)\n", config.EnvSession)
	fmt.Fprintln(out, "  3. Run 'ctxmem doctor' to check connectivity")

	return nil
}

// createGitignore appends the working directory to .gitignore once.
func createGitignore(projectDir string) error {
	const entry = ".ctxmem/"
	path := filepath.Join(projectDir, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	content := "# ctxmem\n" + entry + "\n"
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		content = "\n" + content
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
