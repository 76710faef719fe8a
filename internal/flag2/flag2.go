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

// Package flag2 contains helpers for package flag.
package flag2

import (
	"flag"
	"regexp"
)

// Lookup returns the current value of the flag with the given name.
//
// Returns false if there is no such flag, or if its value is not a
// [flag.Getter] that produces a T.
func Lookup[T any](name string) (v T, ok bool) {
	f := flag.Lookup(name)
	if f == nil {
		return v, false
	}
	g, ok := f.Value.(flag.Getter)
	if !ok {
		return v, false
	}
	v, ok = g.Get().(T)
	return v, ok
}

// Pattern is a flag value holding an optional regular expression.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern defines a pattern flag on fs, or on [flag.CommandLine] if fs is
// nil.
func NewPattern(fs *flag.FlagSet, name, usage string) *Pattern {
	if fs == nil {
		fs = flag.CommandLine
	}
	p := new(Pattern)
	fs.Var(p, name, usage)
	return p
}

// Match returns whether s matches the pattern. An unset pattern matches
// everything.
func (p *Pattern) Match(s string) bool {
	return p.re == nil || p.re.MatchString(s)
}

// Set implements [flag.Value].
func (p *Pattern) Set(s string) (err error) {
	p.re, err = regexp.Compile(s)
	return err
}

// String implements [flag.Value].
func (p *Pattern) String() string {
	if p == nil || p.re == nil {
		return ""
	}
	return p.re.String()
}

// Get implements [flag.Getter].
func (p *Pattern) Get() any { return p.re }
