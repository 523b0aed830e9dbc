package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/server"
)

var (
	portFlag  string
	hostFlag  string
	storeFlag string
	poolFlag  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playground HTTP/WebSocket server",
	Long: `Start the playground server with the JSON API, the /stream WebSocket
and Prometheus metrics at /metrics.

Examples:
  server serve
  server serve --port 9000 --store sqlite
  server serve --config playground.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&portFlag, "port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&hostFlag, "host", "", "Host to bind (overrides HOST)")
	serveCmd.Flags().StringVar(&storeFlag, "store", "", "State store driver: memory or sqlite (overrides STORE_DRIVER)")
	serveCmd.Flags().IntVar(&poolFlag, "pool", -1, "Warm context pool size (overrides SANDBOX_POOL_SIZE)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	if hostFlag != "" {
		cfg.Server.Host = hostFlag
	}
	if storeFlag != "" {
		cfg.Store.Driver = storeFlag
	}
	if poolFlag >= 0 {
		cfg.Sandbox.PoolSize = poolFlag
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
