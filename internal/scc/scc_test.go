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

package scc_test

import (
	"iter"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"buf.build/go/hyperwire/internal/scc"
)

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		graph string  // Lines of the form "n: a b c".
		want  [][]int // Components in leaves-first order, members sorted.
		deps  [][]int // Component indices each component points into.
		cycle []bool  // Whether each component is cyclic.
	}{
		{
			name:  "singleton",
			graph: "0:",
			want:  [][]int{{0}},
			deps:  [][]int{{}},
			cycle: []bool{false},
		},
		{
			name:  "self-loop",
			graph: "0: 0",
			want:  [][]int{{0}},
			deps:  [][]int{{}},
			cycle: []bool{true},
		},
		{
			name: "tree",
			graph: `0: 1 2
					2: 3 4`,
			want:  [][]int{{1}, {3}, {4}, {2}, {0}},
			deps:  [][]int{{}, {}, {}, {1, 2}, {0, 3}},
			cycle: []bool{false, false, false, false, false},
		},
		{
			name: "ring",
			graph: `0: 1
					1: 2
					2: 3
					3: 4
					4: 0`,
			want:  [][]int{{0, 1, 2, 3, 4}},
			deps:  [][]int{{}},
			cycle: []bool{true},
		},
		{
			name: "dumbbell",
			graph: `0: 1
					1: 0 2
					2: 2 4
					3: 4
					4: 3`,
			want:  [][]int{{3, 4}, {2}, {0, 1}},
			deps:  [][]int{{}, {0}, {1}},
			cycle: []bool{true, true, true},
		},
		{
			// Both members of {0, 1} have edges leaving the component; the
			// component must depend on both targets.
			name: "split-exits",
			graph: `0: 1 2
					1: 0 3`,
			want:  [][]int{{3}, {2}, {0, 1}},
			deps:  [][]int{{}, {}, {0, 1}},
			cycle: []bool{false, false, true},
		},
		{
			name: "cycle-tree",
			graph: `0: 1
					1: 0 2 4
					2: 3
					3: 2 6
					4: 5
					5: 4
					6: 7
					7: 6`,
			want:  [][]int{{6, 7}, {2, 3}, {4, 5}, {0, 1}},
			deps:  [][]int{{}, {0}, {}, {1, 2}},
			cycle: []bool{true, true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := parseGraph(t, tt.graph)
			dag := scc.Sort(0, g.edges)
			assert.Equal(t, len(tt.want), dag.Len())

			var got, gotDeps [][]int
			var gotCycle []bool
			for c := range dag.LeavesFirst() {
				members := slices.Clone(c.Members())
				slices.Sort(members)
				got = append(got, members)

				deps := []int{}
				for d := range c.Deps() {
					assert.Less(t, d.Index(), c.Index(), "dependency finished after dependent")
					deps = append(deps, d.Index())
				}
				slices.Sort(deps)
				gotDeps = append(gotDeps, deps)
				gotCycle = append(gotCycle, c.Cyclic(g.edges))

				for _, m := range members {
					assert.Same(t, c, dag.ForNode(m))
				}
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.deps, gotDeps)
			assert.Equal(t, tt.cycle, gotCycle)
		})
	}
}

func TestSortAll(t *testing.T) {
	t.Parallel()

	g := parseGraph(t, `
		0: 1
		2: 3
		3: 2 1
		5: 5`)

	dag := scc.SortAll(slices.Values([]int{0, 2, 1, 5}), g.edges)
	assert.Equal(t, 4, dag.Len())
	assert.Nil(t, dag.ForNode(4))

	var got [][]int
	for c := range dag.LeavesFirst() {
		members := slices.Clone(c.Members())
		slices.Sort(members)
		got = append(got, members)
	}
	assert.Equal(t, [][]int{{1}, {0}, {2, 3}, {5}}, got)
}

type graph map[int][]int

func parseGraph(t *testing.T, s string) graph {
	t.Helper()

	g := make(graph)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		node, edges, ok := strings.Cut(line, ":")
		if !assert.True(t, ok, "bad line %q", line) {
			t.FailNow()
		}
		n, err := strconv.Atoi(node)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		g[n] = []int{}
		for _, e := range strings.Fields(edges) {
			m, err := strconv.Atoi(e)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			g[n] = append(g[n], m)
		}
	}
	return g
}

func (g graph) edges(n int) iter.Seq[int] {
	return slices.Values(g[n])
}
