package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/ctxmem/internal/localsvc"
	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

var (
	devAddr   string
	devDriver string
	devPath   string
	devAPIKey string
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local context-memory service",
	Long: `Run a local emulator of the context-memory service for development.

Point ctxmem at it with:
  ctxmem --base-url http://localhost:8765 load`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

func init() {
	devServerCmd.Flags().StringVar(&devAddr, "addr", "", "address to listen on (default from dev_server.addr)")
	devServerCmd.Flags().StringVar(&devDriver, "driver", "", "store driver: memory or sqlite")
	devServerCmd.Flags().StringVar(&devPath, "path", "", "sqlite database path")
	devServerCmd.Flags().StringVar(&devAPIKey, "require-key", "", "require this bearer key (default from dev_server.api_key)")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dev := cfg.DevServer
	if devAddr != "" {
		dev.Addr = devAddr
	}
	if devDriver != "" {
		dev.Driver = devDriver
	}
	if devPath != "" {
		dev.Path = devPath
	}
	if devAPIKey != "" {
		dev.APIKey = devAPIKey
	}

	logger := telemetry.NewLoggerWithWriter(cmd.ErrOrStderr(), levelFor(cfg.Logging.Level), cfg.Logging.Format)

	store, err := localsvc.NewStore(dev.Driver, dev.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	srv := localsvc.NewServer(store, dev.APIKey, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return srv.Start(ctx, dev.Addr)
}
