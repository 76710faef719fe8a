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

//go:build !debug

package debug

import "testing"

// Enabled is true if the module is being built with the debug tag, which
// enables logging and internal assertions.
const Enabled = false

// WithTesting routes logs from the current goroutine to t until the returned
// function is called.
func WithTesting(testing.TB) (reset func()) { return func() {} }

// Log prints debugging information to stderr.
func Log([]any, string, string, ...any) {}

// Assert panics if cond is false, but only in debug mode.
func Assert(bool, string, ...any) {}

// Stack returns a trace of the calling goroutine's stack. It is empty unless
// in debug mode.
func Stack(int) string { return "" }
