// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build debug

// Package debug includes debugging helpers.
package debug

import (
	"flag"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
	"testing"

	"github.com/timandy/routine"

	"buf.build/go/hyperwire/internal/flag2"
)

// Enabled is true if the module is being built with the debug tag, which
// enables logging and internal assertions.
const Enabled = true

var (
	filter    = flag2.NewPattern(nil, "hyperwire.filter", "regexp to filter debug logs by")
	nocapture = flag.Bool("hyperwire.nocapture", false, "disables capturing debug logs as test logs")

	tls = routine.NewThreadLocal[testing.TB]()
)

// WithTesting routes logs from the current goroutine to t until the returned
// function is called.
func WithTesting(t testing.TB) (reset func()) {
	prev := tls.Get()
	tls.Set(t)
	return func() { tls.Set(prev) }
}

// Log prints a line of debugging information to stderr, or to the test
// registered with [WithTesting].
//
// Each line is prefixed with the calling package, file and line, and the
// goroutine id. context, if not empty, is a format string and arguments that
// are printed alongside the goroutine id, to identify related operations.
func Log(context []any, operation string, format string, args ...any) {
	caller := callerOutsideLogging()

	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s:%d [g%04d", caller.pkg, caller.line, routine.Goid())
	if len(context) > 0 {
		fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...) //nolint:errcheck
	}
	fmt.Fprintf(buf, "] %s: ", operation)
	fmt.Fprintf(buf, format, args...)

	line := buf.String()
	if !filter.Match(line) {
		return
	}

	if t := tls.Get(); t != nil && !*nocapture {
		t.Log(line)
		return
	}
	_, _ = os.Stderr.WriteString(line + "\n")
}

// Assert panics if cond is false, but only in debug mode.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("hyperwire: internal assertion failed: "+format+"\n%s",
			append(args, Stack(2))...))
	}
}

// Stack returns a trace of the calling goroutine's stack, one frame per line,
// skipping the given number of frames.
func Stack(skip int) string {
	var out strings.Builder
	for frame := range frames(skip + 1) {
		fmt.Fprintf(&out, "  %s()\n    %s:%d\n", path.Base(frame.Function), frame.File, frame.Line)
	}
	return out.String()
}

type caller struct {
	pkg  string // Package-relative file name, like "decode/parser.go".
	line int
}

// callerOutsideLogging finds the first caller that is not a logging helper,
// such as Log itself or a log method wrapping it.
func callerOutsideLogging() caller {
	for frame := range frames(2) {
		name := frame.Function[strings.LastIndex(frame.Function, ".")+1:]
		if strings.HasPrefix(name, "log") || strings.Contains(name, "Log") {
			continue
		}

		pkg := strings.TrimPrefix(frame.Function, "buf.build/go/")
		pkg = strings.TrimPrefix(pkg, "hyperwire/internal/")
		if i := strings.Index(pkg, "."); i >= 0 {
			pkg = pkg[:i]
		}
		return caller{pkg: pkg + "/" + path.Base(frame.File), line: frame.Line}
	}
	return caller{pkg: "?"}
}

// frames yields the frames of the calling goroutine's stack.
func frames(skip int) func(yield func(runtime.Frame) bool) {
	return func(yield func(runtime.Frame) bool) {
		pcs := make([]uintptr, 32)
		for {
			n := runtime.Callers(skip+2, pcs)
			if n < len(pcs) {
				pcs = pcs[:n]
				break
			}
			pcs = make([]uintptr, len(pcs)*2)
		}

		it := runtime.CallersFrames(pcs)
		for {
			frame, more := it.Next()
			if !yield(frame) || !more {
				return
			}
		}
	}
}
