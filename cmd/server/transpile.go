package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/server"
)

var (
	targetFlag string
	loaderFlag string
	jsonOut    bool
)

var transpileCmd = &cobra.Command{
	Use:   "transpile <file|->",
	Short: "Lower TypeScript/JSX to plain JavaScript",
	Long: `Transpile prints the lowered code to stdout. Warnings are printed in
yellow and errors in red on stderr; the exit status is 1 when lowering failed.

Examples:
  server transpile snippet.tsx
  server transpile --target es2017 --loader ts - < snippet.ts`,
	Args: cobra.ExactArgs(1),
	RunE: runTranspile,
}

func init() {
	transpileCmd.Flags().StringVar(&targetFlag, "target", "", "Language target (overrides TRANSPILE_TARGET)")
	transpileCmd.Flags().StringVar(&loaderFlag, "loader", "", "Source loader: ts, tsx, js or jsx (overrides TRANSPILE_LOADER)")
	transpileCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(transpileCmd)
}

func runTranspile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if targetFlag != "" {
		cfg.Transpile.Target = targetFlag
	}
	if loaderFlag != "" {
		cfg.Transpile.Loader = loaderFlag
	}

	code, err := readSource(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	transpiler, err := server.NewTranspiler(cfg)
	if err != nil {
		return err
	}
	res := transpiler.Transpile(code)

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		renderDiagnostics(cmd.ErrOrStderr(), res.Warnings, warnColor)
		renderDiagnostics(cmd.ErrOrStderr(), res.Diagnostics, errorColor)
		if res.Success {
			fmt.Fprint(cmd.OutOrStdout(), res.Code)
		}
	}

	if !res.Success {
		return errFailed
	}
	return nil
}
