package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/server"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
)

var (
	timeoutFlag time.Duration
	jsonFlag    bool
	quietFlag   bool
	sessionFlag string
)

var runCmd = &cobra.Command{
	Use:   "run <file|->",
	Short: "Run a TypeScript or JavaScript file and print its console output",
	Long: `Run lowers the file with the configured transpiler, executes it in a
fresh sandboxed context and prints every console entry in order. Errors are
printed in red. The exit status is 1 when the run faulted.

Examples:
  server run snippet.ts
  echo 'console.log(1 + 1)' | server run -
  server run --timeout 2s --json loop.ts
  server run --session demo snippet.ts`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Wall-clock budget (overrides SANDBOX_TIMEOUT)")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the outcome as JSON")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Omit the summary line")
	runCmd.Flags().StringVar(&sessionFlag, "session", "", "Save code and output to this session in the configured store")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if timeoutFlag > 0 {
		cfg.Sandbox.Timeout = timeoutFlag
	}

	code, err := readSource(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	logger, err := cliLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	transpiler, err := server.NewTranspiler(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := sandbox.Collect(ctx, server.SandboxConfig(cfg), code,
		sandbox.WithTranspiler(transpiler),
		sandbox.WithLogger(logger.Sandbox()),
	)
	if err != nil {
		return err
	}
	logger.WithRun(out.RunID.String()).Debug("Run finished",
		zap.String("state", out.State),
		zap.Int("entries", len(out.Entries)),
	)

	if sessionFlag != "" {
		if err := saveRun(cfg, logger.WithSession(sessionFlag).Logger, sessionFlag, code, out); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		for _, entry := range out.Entries {
			renderEntry(w, entry)
		}
		if !quietFlag {
			renderSummary(cmd.ErrOrStderr(), out)
		}
	}

	if out.State == sandbox.StateFaulted.String() {
		return errFailed
	}
	return nil
}

func saveRun(cfg *config.Config, logger *zap.Logger, session, code string, out *sandbox.Outcome) error {
	store, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	states := state.NewManager(store, cfg.Store.Namespace, logger)
	defer states.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := states.Record(ctx, session, code, out.Entries); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	logger.Debug("Run saved", zap.String("run_id", out.RunID.String()))
	return nil
}
