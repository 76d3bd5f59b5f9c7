package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionPrefix string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage session identifiers",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a fresh session id",
	Long: `Print a new unique session id. Export it to scope later commands:

  export CTXMEM_SESSION=$(ctxmem session new)`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), newSessionID(sessionPrefix))
	},
}

func init() {
	sessionNewCmd.Flags().StringVar(&sessionPrefix, "prefix", "session", "id prefix")
	sessionCmd.AddCommand(sessionNewCmd)
}

func newSessionID(prefix string) string {
	if prefix == "" {
		return uuid.New().String()
	}
	return prefix + "_" + uuid.New().String()
}
