package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/ctxmem/internal/memory"
)

var (
	loadJSON   bool
	saveInput  string
	saveOutput string
)

var loadCmd = &cobra.Command{
	Use:   "load [input...]",
	Short: "Print the history relevant to an input",
	Long: `Search the session for turns relevant to the given input and print the
newline-joined history. With no input the query falls back to "conversation".

Examples:
  ctxmem load "What is my name?"
  ctxmem load --json`,
	RunE: runLoad,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store one conversation turn",
	Long: `Store a user input and agent output as one turn. Either side may be
omitted; an empty turn is a no-op.

Example:
  ctxmem save --input "My name is Alice" --output "Nice to meet you, Alice"`,
	RunE: runSave,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete everything stored for the session",
	RunE:  runClear,
}

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "List the prompt variables this memory supplies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// The key lists do not depend on a session or the service.
		m := &memory.SessionMemory{}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Variables:   %s\n", strings.Join(m.VariableNames(), ", "))
		fmt.Fprintf(out, "Memory keys: %s\n", strings.Join(m.MemoryKeys(), ", "))
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List the entries stored for the session",
	Args:  cobra.NoArgs,
	RunE:  runMessages,
}

func init() {
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "print the memory variables as JSON")
	saveCmd.Flags().StringVarP(&saveInput, "input", "i", "", "user input")
	saveCmd.Flags().StringVarP(&saveOutput, "output", "o", "", "agent output")
}

func runLoad(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close("load")

	mem, err := env.openMemory()
	if err != nil {
		return err
	}

	inputs := map[string]any{}
	if len(args) > 0 {
		inputs[memory.InputKey] = strings.Join(args, " ")
	}

	vars := map[string]any{}
	if strict {
		items, err := mem.SearchHistory(cmd.Context(), memory.QueryFor(inputs))
		if err != nil {
			return err
		}
		vars[memory.HistoryKey] = strings.Join(items, "\n")
	} else {
		vars = mem.Load(cmd.Context(), inputs)
	}

	out := cmd.OutOrStdout()
	if loadJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(vars)
	}
	if history, _ := vars[memory.HistoryKey].(string); history != "" {
		fmt.Fprintln(out, history)
	}
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close("save")

	mem, err := env.openMemory()
	if err != nil {
		return err
	}

	if strict {
		n, err := mem.AddTurn(cmd.Context(), saveInput, saveOutput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d entries to %s\n", n, mem.SessionID())
		return nil
	}

	mem.Save(cmd.Context(),
		map[string]any{memory.InputKey: saveInput},
		map[string]any{memory.OutputKey: saveOutput},
	)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close("clear")

	mem, err := env.openMemory()
	if err != nil {
		return err
	}

	if strict {
		if err := mem.DeleteSession(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", mem.SessionID())
		return nil
	}

	mem.Clear(cmd.Context())
	return nil
}

func runMessages(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close("messages")

	mem, err := env.openMemory()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, msg := range mem.Messages(cmd.Context()) {
		fmt.Fprintf(out, "%3d  %s\n", i+1, msg)
	}
	return nil
}
