package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/logging"
)

var (
	configFlag   string
	logLevelFlag string
	devFlag      bool
	noColorFlag  bool
)

// errFailed signals a non-zero exit after output was already printed
var errFailed = errors.New("run failed")

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Playground backend - sandboxed TypeScript execution",
	Long: `Playground runs TypeScript and JavaScript snippets in isolated,
instrumented contexts and streams their console output.

Run "server serve" for the HTTP/WebSocket API, or "server run" and
"server transpile" to use the pipeline from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFlag != "" {
			if err := os.Setenv("CONFIG_FILE", configFlag); err != nil {
				return err
			}
		}
		if noColorFlag {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "YAML or TOML config file (sets CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devFlag, "dev", false, "Development logging (colored console, debug level)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies the persistent logging flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if devFlag {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	return cfg, nil
}

// cliLogger logs to stderr; quiet unless asked otherwise
func cliLogger() (*logging.Logger, error) {
	level := "warn"
	if devFlag {
		level = "debug"
	}
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.New(logging.CLIConfig(level))
}
