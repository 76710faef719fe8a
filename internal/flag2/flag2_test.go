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

package flag2_test

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/hyperwire/internal/flag2"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	_, ok := flag2.Lookup[bool]("test.v")
	assert.True(t, ok)

	_, ok = flag2.Lookup[string]("test.v")
	assert.False(t, ok)

	_, ok = flag2.Lookup[bool]("no.such.flag")
	assert.False(t, ok)
}

func TestPattern(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	p := flag2.NewPattern(fs, "filter", "")
	assert.True(t, p.Match("anything"))

	require.NoError(t, fs.Parse([]string{"-filter", `^decode/.*push`}))
	assert.True(t, p.Match("decode/parser.go:1 push"))
	assert.False(t, p.Match("arena/arena.go:1 grow"))
	assert.Equal(t, `^decode/.*push`, p.String())

	require.Error(t, p.Set("("))
}
