package transpile

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	ErrUnknownTarget = errors.New("unknown transpile target")
	ErrUnknownLoader = errors.New("unknown transpile loader")
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var loaders = map[string]api.Loader{
	"ts":  api.LoaderTS,
	"tsx": api.LoaderTSX,
	"js":  api.LoaderJS,
	"jsx": api.LoaderJSX,
}

// Transpiler lowers source with a fixed set of esbuild options.
// It holds no mutable state and is safe for concurrent use.
type Transpiler struct {
	opts api.TransformOptions
}

var defaultTranspiler = MustNew(DefaultOptions())

// Transpile lowers source with DefaultOptions
func Transpile(source string) Result {
	return defaultTranspiler.Transpile(source)
}

// New validates opts and builds a Transpiler
func New(opts Options) (*Transpiler, error) {
	def := DefaultOptions()

	targetName := strings.ToLower(strings.TrimSpace(opts.Target))
	if targetName == "" {
		targetName = def.Target
	}
	target, ok := targets[targetName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, opts.Target)
	}

	loaderName := strings.ToLower(strings.TrimSpace(opts.Loader))
	if loaderName == "" {
		loaderName = def.Loader
	}
	loader, ok := loaders[loaderName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoader, opts.Loader)
	}

	if opts.JSXFactory == "" {
		opts.JSXFactory = def.JSXFactory
	}
	if opts.JSXFragment == "" {
		opts.JSXFragment = def.JSXFragment
	}
	if opts.Sourcefile == "" {
		opts.Sourcefile = def.Sourcefile
	}

	t := &Transpiler{
		opts: api.TransformOptions{
			Loader:      loader,
			Target:      target,
			Sourcefile:  opts.Sourcefile,
			JSXFactory:  opts.JSXFactory,
			JSXFragment: opts.JSXFragment,
			LogLevel:    api.LogLevelSilent,
			// The sandbox runs programs inside an async function
			Supported: map[string]bool{"top-level-await": true},
		},
	}
	if opts.SourceMap {
		t.opts.Sourcemap = api.SourceMapExternal
		t.opts.SourcesContent = api.SourcesContentExclude
	}
	return t, nil
}

// MustNew is New that panics on invalid options
func MustNew(opts Options) *Transpiler {
	t, err := New(opts)
	if err != nil {
		panic(err)
	}
	return t
}

// Transpile lowers source. It never panics; internal failures become a
// single diagnostic with empty code.
func (t *Transpiler) Transpile(source string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Success: false,
				Code:    "",
				Diagnostics: []Diagnostic{{
					Message: fmt.Sprintf("Transpilation error: %v", r),
				}},
			}
		}
	}()

	if strings.TrimSpace(source) == "" {
		return Result{Success: true, Code: "", Diagnostics: []Diagnostic{}}
	}

	out := api.Transform(source, t.opts)

	diagnostics := make([]Diagnostic, 0, len(out.Errors))
	for _, msg := range out.Errors {
		diagnostics = append(diagnostics, toDiagnostic(msg))
	}

	var warnings []Diagnostic
	for _, msg := range out.Warnings {
		warnings = append(warnings, toDiagnostic(msg))
	}

	res = Result{
		Success:     len(diagnostics) == 0,
		Diagnostics: diagnostics,
		Warnings:    warnings,
	}
	if res.Success {
		res.Code = string(out.Code)
		res.SourceMap = out.Map
	}
	return res
}

// toDiagnostic converts an esbuild message. esbuild columns are 0-based
// byte offsets into the line; diagnostics count characters from 1.
func toDiagnostic(msg api.Message) Diagnostic {
	d := Diagnostic{Message: msg.Text}
	if msg.Location == nil || msg.Location.Line <= 0 {
		return d
	}

	loc := msg.Location
	col := loc.Column
	if col >= 0 && col <= len(loc.LineText) {
		col = utf8.RuneCountInString(loc.LineText[:col])
	}

	d.Line = loc.Line
	d.Column = col + 1
	return d
}
