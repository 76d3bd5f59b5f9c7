package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	strict  bool
)

var rootCmd = &cobra.Command{
	Use:   "ctxmem",
	Short: "Session-scoped conversational memory",
	Long: `ctxmem - conversation memory backed by a hosted context service.

Stores each dialogue turn under a session id and retrieves the most
relevant prior turns as a "history" prompt variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var overrideEnv = map[string]string{
	"session":  "CTXMEM_SESSION",
	"api-key":  "CTXMEM_API_KEY",
	"base-url": "CTXMEM_BASE_URL",
	"org-id":   "CTXMEM_ORG_ID",
}

func overrideKey(flag string) string {
	return "overrides." + flag
}

func Execute() error {
	return rootCmd.Execute()
}

// RootCommand exposes the command tree for embedding and tests.
func RootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./ctxmem.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&strict, "strict", false, "fail on remote errors instead of degrading")
	flags.StringP("session", "s", "", "session id (env CTXMEM_SESSION)")
	flags.String("api-key", "", "service API key (env CTXMEM_API_KEY)")
	flags.String("base-url", "", "service base URL")
	flags.String("org-id", "", "organization id used when clearing")

	// Overrides live under their own prefix so they never collide with the
	// nested keys of ctxmem.yaml. Precedence is flag, then env, then file.
	for name, env := range overrideEnv {
		_ = viper.BindPFlag(overrideKey(name), flags.Lookup(name))
		_ = viper.BindEnv(overrideKey(name), env)
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(devServerCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("ctxmem")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
