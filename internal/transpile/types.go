package transpile

import "fmt"

// Result holds the outcome of one Transpile call.
// Success is true iff Diagnostics is empty. Code is empty when the source
// could not be parsed.
type Result struct {
	Success     bool         `json:"success"`
	Code        string       `json:"code"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Warnings    []Diagnostic `json:"warnings,omitempty"`
	// SourceMap maps Code back to the source; empty unless enabled
	SourceMap []byte `json:"-"`
}

// Diagnostic is a single compiler message. Line and Column are 1-based and
// both zero when the message has no source position.
type Diagnostic struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// HasPosition reports whether the diagnostic points into the source
func (d Diagnostic) HasPosition() bool {
	return d.Line > 0
}

// String renders "Line L:C - message", or the bare message
func (d Diagnostic) String() string {
	if !d.HasPosition() {
		return d.Message
	}
	return fmt.Sprintf("Line %d:%d - %s", d.Line, d.Column, d.Message)
}

// Options configures the lowering.
type Options struct {
	Target      string // es2015 .. es2022, esnext
	Loader      string // ts, tsx, js, jsx
	JSXFactory  string
	JSXFragment string
	Sourcefile  string
	SourceMap   bool // emit a source map with each result
}

// DefaultOptions mirrors the playground defaults: ES2020 output, TSX input
// and the classic React JSX transform.
func DefaultOptions() Options {
	return Options{
		Target:      "es2020",
		Loader:      "tsx",
		JSXFactory:  "React.createElement",
		JSXFragment: "React.Fragment",
		Sourcefile:  "repl.tsx",
		SourceMap:   true,
	}
}
