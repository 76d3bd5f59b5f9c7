package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
	"github.com/cadre-oss/ctxmem/internal/testutil"
)

// resetFlags restores every flag in the tree to its default so tests do not
// leak values into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command in an isolated working directory.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// isolate moves the test into an empty directory with no ctxmem env set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, env := range overrideEnv {
		t.Setenv(env, "")
	}
	return dir
}

// serviceArgs starts a local service and returns the flags pointing at it.
func serviceArgs(t *testing.T, session string) []string {
	t.Helper()
	h := testutil.NewTestHarness(t)
	url := h.StartLocalService("sk-test")
	return []string{"--base-url", url, "--api-key", "sk-test", "--session", session}
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "session_cli")

	if _, _, err := runCLI(t, append([]string{"save", "--input", "My name is Alice", "--output", "Nice to meet you, Alice"}, flags...)...); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, _, err := runCLI(t, append([]string{"load", "What is my name?"}, flags...)...)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, want := range []string{"My name is Alice", "Nice to meet you, Alice"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestLoad_JSON(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "session_json")

	out, _, err := runCLI(t, append([]string{"load", "--json"}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}

	var vars map[string]string
	if err := json.Unmarshal([]byte(out), &vars); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if v, ok := vars["history"]; !ok || v != "" {
		t.Errorf("expected empty history, got %v", vars)
	}
}

func TestClear_Strict(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "session_clear")

	runCLI(t, append([]string{"save", "-i", "remember me"}, flags...)...)

	out, _, err := runCLI(t, append([]string{"clear", "--strict"}, flags...)...)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "Cleared session_clear") {
		t.Errorf("unexpected output %q", out)
	}

	out, _, _ = runCLI(t, append([]string{"load"}, flags...)...)
	if strings.TrimSpace(out) != "" {
		t.Errorf("expected empty history after clear, got %q", out)
	}
}

func TestMessages(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "session_msgs")

	runCLI(t, append([]string{"save", "-i", "hello", "-o", "hi there"}, flags...)...)

	out, _, err := runCLI(t, append([]string{"messages"}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1  hello") || !strings.Contains(out, "2  hi there") {
		t.Errorf("unexpected messages output %q", out)
	}
}

func TestMissingSession(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "load", "--api-key", "sk-test")
	if ctxerrors.AsCode(err) != ctxerrors.CodeSessionMissing {
		t.Fatalf("expected SESSION_MISSING, got %v", err)
	}
	if !strings.Contains(ctxerrors.Suggestion(err), "session new") {
		t.Errorf("expected suggestion to mention 'session new', got %q", ctxerrors.Suggestion(err))
	}
}

func TestMissingAPIKey(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "save", "-i", "x", "--session", "s")
	if ctxerrors.AsCode(err) != ctxerrors.CodeAPIKeyMissing {
		t.Fatalf("expected API_KEY_MISSING, got %v", err)
	}
}

func TestSessionFromEnv(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "unused")
	t.Setenv("CTXMEM_SESSION", "session_env")

	// Drop --session so the env value applies.
	out, _, err := runCLI(t, "save", "--strict", "-i", "x", flags[0], flags[1], flags[2], flags[3])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "session_env") {
		t.Errorf("expected env session in output, got %q", out)
	}
}

func TestUnreachableService(t *testing.T) {
	isolate(t)
	flags := []string{"--base-url", "http://127.0.0.1:1", "--api-key", "sk-test", "--session", "s"}

	_, stderr, err := runCLI(t, append([]string{"save", "-i", "lost"}, flags...)...)
	if err != nil {
		t.Fatalf("expected save to degrade, got %v", err)
	}
	if !strings.Contains(stderr, "Error saving context") {
		t.Errorf("expected failure in logs, got %q", stderr)
	}

	_, _, err = runCLI(t, append([]string{"save", "--strict", "-i", "lost"}, flags...)...)
	if ctxerrors.AsCode(err) != ctxerrors.CodeRequestFailed {
		t.Errorf("expected REQUEST_FAILED in strict mode, got %v", err)
	}
}

func TestVars(t *testing.T) {
	out, _, err := runCLI(t, "vars")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Variables:   history") || !strings.Contains(out, "Memory keys: history") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSessionNew(t *testing.T) {
	out, _, err := runCLI(t, "session", "new", "--prefix", "chat")
	if err != nil {
		t.Fatal(err)
	}
	id := strings.TrimSpace(out)
	if !strings.HasPrefix(id, "chat_") || len(id) != len("chat_")+36 {
		t.Errorf("unexpected session id %q", id)
	}

	a, b := newSessionID("s"), newSessionID("s")
	if a == b {
		t.Error("session ids must be unique")
	}
	if strings.Contains(newSessionID(""), "_") {
		t.Error("empty prefix should yield a bare uuid")
	}
}

func TestConfigSetAndShow(t *testing.T) {
	dir := isolate(t)

	if _, _, err := runCLI(t, "config", "set", "service.org_id", "acme"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, _, err := runCLI(t, "config", "set", "metrics.enabled", "true"); err != nil {
		t.Fatalf("config set: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "ctxmem.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["service"]["org_id"] != "acme" || raw["metrics"]["enabled"] != true {
		t.Errorf("unexpected file content:\n%s", content)
	}

	out, _, err := runCLI(t, "config", "show", "--api-key", "sk-secret-1234")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "org_id: acme") {
		t.Errorf("expected org in output:\n%s", out)
	}
	if strings.Contains(out, "sk-secret-1234") || !strings.Contains(out, "***1234") {
		t.Errorf("expected masked key in output:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "config", "validate")
	if err != nil || !strings.Contains(out, "OK") {
		t.Fatalf("expected defaults to validate, got %q %v", out, err)
	}

	os.WriteFile(filepath.Join(dir, "ctxmem.yaml"), []byte("logging:\n  level: loud\n"), 0644)
	_, _, err = runCLI(t, "config", "validate")
	if ctxerrors.AsCode(err) != ctxerrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestSetNestedValue(t *testing.T) {
	m := map[string]interface{}{"service": map[string]interface{}{"scope": "internal"}}

	if err := setNestedValue(m, "service.timeout", "10s"); err != nil {
		t.Fatal(err)
	}
	if err := setNestedValue(m, "dev_server.addr", "localhost:9000"); err != nil {
		t.Fatal(err)
	}
	svc := m["service"].(map[string]interface{})
	if svc["timeout"] != "10s" || svc["scope"] != "internal" {
		t.Errorf("unexpected service section %v", svc)
	}
	if m["dev_server"].(map[string]interface{})["addr"] != "localhost:9000" {
		t.Errorf("expected nested section to be created, got %v", m)
	}

	if err := setNestedValue(m, "service.scope.deep", "x"); err == nil {
		t.Error("expected error when descending into a scalar")
	}
	if err := setNestedValue(m, "..", "x"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestScalar(t *testing.T) {
	if scalar("true") != true || scalar("42") != 42 || scalar("30s") != "30s" || scalar("") != "" {
		t.Error("unexpected scalar typing")
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":              "(not set)",
		"abc":           "***",
		"sk-secret-xyz": "***-xyz",
	}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInit(t *testing.T) {
	dir := isolate(t)
	os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("bin/"), 0644)

	out, _, err := runCLI(t, "init", "--template", "local")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Initialized ctxmem") {
		t.Errorf("unexpected output %q", out)
	}

	content, err := os.ReadFile(filepath.Join(dir, "ctxmem.yaml"))
	if err != nil || !strings.Contains(string(content), "http://localhost:8765") {
		t.Errorf("expected local template written, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ctxmem")); err != nil {
		t.Errorf("expected .ctxmem directory: %v", err)
	}

	gitignore, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if string(gitignore) != "bin/\n# ctxmem\n.ctxmem/\n" {
		t.Errorf("unexpected .gitignore %q", gitignore)
	}

	if _, _, err := runCLI(t, "init"); err == nil {
		t.Error("expected error when ctxmem.yaml exists")
	}
	if _, _, err := runCLI(t, "init", "--force"); err != nil {
		t.Errorf("expected --force to overwrite: %v", err)
	}
	gitignore, _ = os.ReadFile(filepath.Join(dir, ".gitignore"))
	if strings.Count(string(gitignore), ".ctxmem/") != 1 {
		t.Errorf("expected a single .ctxmem/ entry, got %q", gitignore)
	}
}

func TestDoctor(t *testing.T) {
	isolate(t)
	flags := serviceArgs(t, "session_doctor")

	out, _, err := runCLI(t, append([]string{"doctor"}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "All checks passed!") {
		t.Errorf("expected all checks to pass:\n%s", out)
	}

	out, _, _ = runCLI(t, "doctor")
	if !strings.Contains(out, "API key:    NOT SET") || !strings.Contains(out, "Some checks failed") {
		t.Errorf("expected missing key to be reported:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "ctxmem dev") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestCompletion(t *testing.T) {
	out, _, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ctxmem") {
		t.Error("expected completion script to mention ctxmem")
	}
}

func TestStats(t *testing.T) {
	dir := isolate(t)
	flags := serviceArgs(t, "session_stats")

	out, _, err := runCLI(t, "stats")
	if err != nil || !strings.Contains(out, "No metrics recorded") {
		t.Fatalf("expected empty stats, got %q %v", out, err)
	}

	os.WriteFile(filepath.Join(dir, "ctxmem.yaml"), []byte("metrics:\n  enabled: true\n"), 0644)
	runCLI(t, append([]string{"save", "-i", "a", "-o", "b"}, flags...)...)
	runCLI(t, append([]string{"save", "-i", "c"}, flags...)...)
	runCLI(t, append([]string{"load"}, flags...)...)

	out, _, err = runCLI(t, "stats")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"load (1 runs)", "save (2 runs)", "entries_written  3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in stats output:\n%s", want, out)
		}
	}
}
