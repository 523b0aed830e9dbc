package sandbox

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

const (
	preambleName = "repl:instrument"
	programName  = "repl.js"

	// programPrefix shares the first line with user code so reported line
	// numbers match the source. Only line 1 columns need rebasing.
	programPrefix = "(async function () { "
	programSuffix = "\n})()"

	unserializable = "[Unserializable]"
)

// preambleSource replaces the console and installs the error hooks that
// need JS-side wrapping. The bridge globals are captured and deleted so
// user code cannot reach them.
const preambleSource = `(function () {
  'use strict';
  var post = globalThis.__repl_post;
  var host = globalThis.__repl_host;
  var uncaught = globalThis.__repl_uncaught;
  delete globalThis.__repl_post;
  delete globalThis.__repl_host;
  delete globalThis.__repl_uncaught;

  function safeStringify(value) {
    try {
      if (typeof value === 'string') return value;
      if (value instanceof Error) return value.message;
      var out = JSON.stringify(value, function (k, v) {
        if (v instanceof Error) return v.message;
        return v;
      });
      return out === undefined ? String(value) : out;
    } catch (e) {
      try { return String(value); } catch (e2) { return '[Unserializable]'; }
    }
  }

  function serialize(args) {
    var out = [];
    for (var i = 0; i < args.length; i++) out.push(safeStringify(args[i]));
    return out;
  }

  var console = {};
  ['log', 'info', 'warn', 'debug'].forEach(function (level) {
    console[level] = function () {
      var parts = serialize(arguments);
      try { post('log', parts); } catch (e) {}
      try { host(level, parts); } catch (e) {}
    };
  });

  console.table = function (data, columns) {
    var parts;
    try {
      parts = [safeStringify(data)];
      if (columns) parts.push('columns: ' + safeStringify(columns));
    } catch (e) {
      parts = ['[table]', '[unserializable]'];
    }
    try { post('log', parts); } catch (e) {}
    try { host('table', parts); } catch (e) {}
  };

  console.error = function () {
    var parts = serialize(arguments);
    try { post('error', parts.join(' ')); } catch (e) {}
    try { host('error', parts); } catch (e) {}
  };

  Object.defineProperty(globalThis, 'console', {
    value: console, writable: true, configurable: true, enumerable: false
  });

  globalThis.queueMicrotask = function (cb) {
    if (typeof cb !== 'function') throw new TypeError('queueMicrotask callback must be a function');
    Promise.resolve().then(function () {
      try { cb(); } catch (e) { uncaught(e); }
    });
  };
})();
`

var preambleProgram = goja.MustCompile(preambleName, preambleSource, false)

// Document is the full payload injected into one execution context:
// the instrumentation preamble followed by the wrapped program.
type Document struct {
	Preamble string
	Program  string
}

// BuildDocument wraps code in the async runner function
func BuildDocument(code string) Document {
	return Document{
		Preamble: preambleSource,
		Program:  programPrefix + code + programSuffix,
	}
}

// String renders the document as one script
func (d Document) String() string {
	return d.Preamble + "\n" + d.Program + ";\n"
}

// describe mirrors `(v && (v.stack || v.message)) || String(v)` and never
// panics.
func describe(v goja.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = unserializable
		}
	}()

	if v == nil {
		return "undefined"
	}
	if obj, ok := v.(*goja.Object); ok {
		for _, key := range []string{"stack", "message"} {
			p := obj.Get(key)
			if p != nil && !goja.IsUndefined(p) && !goja.IsNull(p) && p.ToBoolean() {
				return p.String()
			}
		}
	}
	return v.String()
}

var (
	frameRe    = regexp.MustCompile(`([^\s()]*):(\d+):(\d+)`)
	compilerRe = regexp.MustCompile(`Line (\d+):(\d+)`)
)

// locate finds the first stack frame position in a goja stack trace and
// rebases it onto the lowered program.
func locate(trace string) (line, col int) {
	file, line, col, ok := frame(trace)
	if !ok {
		return 0, 0
	}
	return rebase(file, line, col)
}

// frame returns the file and raw position of the first stack frame
func frame(trace string) (file string, line, col int, ok bool) {
	for _, raw := range strings.Split(trace, "\n") {
		l := strings.TrimSpace(raw)
		if !strings.HasPrefix(l, "at ") {
			continue
		}
		m := frameRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		line, _ = strconv.Atoi(m[2])
		col, _ = strconv.Atoi(m[3])
		return m[1], line, col, true
	}
	return "", 0, 0, false
}

// locateCompileError extracts the position from a goja syntax error
func locateCompileError(msg string) (line, col int) {
	if m := compilerRe.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
		col, _ = strconv.Atoi(m[2])
		return rebase(programName, line, col)
	}
	if m := frameRe.FindStringSubmatch(msg); m != nil && m[1] == programName {
		line, _ = strconv.Atoi(m[2])
		col, _ = strconv.Atoi(m[3])
		return rebase(programName, line, col)
	}
	return 0, 0
}

func rebase(file string, line, col int) (int, int) {
	if file == programName && line == 1 && col > len(programPrefix) {
		col -= len(programPrefix)
	}
	return line, col
}
