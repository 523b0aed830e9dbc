package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/transpile"
)

var (
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	summaryColor = color.New(color.Faint)
)

// renderEntry prints one log entry; errors are red
func renderEntry(w io.Writer, entry sandbox.LogEntry) {
	if entry.Kind == sandbox.KindError {
		errorColor.Fprintln(w, entry.Message)
		return
	}
	fmt.Fprintln(w, entry.Message)
}

func renderDiagnostics(w io.Writer, diags []transpile.Diagnostic, c *color.Color) {
	for _, d := range diags {
		c.Fprintln(w, d.String())
	}
}

func renderSummary(w io.Writer, out *sandbox.Outcome) {
	status := out.State
	if out.Expired {
		status += ", interrupted"
	}
	summaryColor.Fprintf(w, "-- %s in %s (%s)\n", status, out.Duration.Round(time.Microsecond), out.RunID)
}
