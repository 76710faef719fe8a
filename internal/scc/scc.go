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

// Package scc condenses a directed graph into its strongly connected
// components using Tarjan's algorithm.
//
// The schema compiler uses this to reason about recursive message types: a
// set of messages that refer to each other (directly or transitively) forms
// one component, and facts such as "may contain a required field" are
// computed once per component, leaves first.
package scc

import (
	"iter"
	"slices"

	"buf.build/go/hyperwire/internal/debug"
)

// Graph exposes the outgoing edges of a node.
type Graph[Node any] func(Node) iter.Seq[Node]

// DAG is the condensation of some directed graph.
//
// Components are stored in the order Tarjan's algorithm finishes them, which
// is a reverse topological order: every component appears after all of the
// components it depends on.
type DAG[Node comparable] struct {
	keys       map[Node]int
	components []Component[Node]
}

// Component is a strongly connected component.
type Component[Node comparable] struct {
	dag     *DAG[Node]
	index   int
	members []Node
	deps    []int
}

// Sort computes the components reachable from root.
func Sort[Node comparable](root Node, graph Graph[Node]) *DAG[Node] {
	return SortAll(slices.Values([]Node{root}), graph)
}

// SortAll computes the components reachable from any of roots. Roots that
// were already visited from an earlier root are skipped.
func SortAll[Node comparable](roots iter.Seq[Node], graph Graph[Node]) *DAG[Node] {
	dag := &DAG[Node]{keys: make(map[Node]int)}
	t := &tarjan[Node]{
		graph: graph,
		dag:   dag,
		state: make(map[Node]*visit),
		deps:  make(map[int]struct{}),
	}
	for root := range roots {
		if t.state[root] == nil {
			t.visit(root)
		}
	}
	return dag
}

// Len returns the number of components.
func (d *DAG[Node]) Len() int {
	return len(d.components)
}

// ForNode returns the component containing node, or nil if node was never
// reached.
func (d *DAG[Node]) ForNode(node Node) *Component[Node] {
	idx, ok := d.keys[node]
	if !ok {
		return nil
	}
	return &d.components[idx]
}

// LeavesFirst yields every component after the components it depends on.
func (d *DAG[Node]) LeavesFirst() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for i := range d.components {
			if !yield(&d.components[i]) {
				return
			}
		}
	}
}

// Members returns the nodes in this component.
func (c *Component[Node]) Members() []Node {
	return c.members
}

// Cyclic reports whether this component contains a cycle, i.e. it has more
// than one member or its only member has an edge to itself.
func (c *Component[Node]) Cyclic(graph Graph[Node]) bool {
	if len(c.members) > 1 {
		return true
	}
	for dep := range graph(c.members[0]) {
		if dep == c.members[0] {
			return true
		}
	}
	return false
}

// Deps yields the components this one has edges into, excluding itself.
func (c *Component[Node]) Deps() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for _, i := range c.deps {
			if !yield(&c.dag.components[i]) {
				return
			}
		}
	}
}

// Index returns this component's position in [DAG.LeavesFirst] order.
func (c *Component[Node]) Index() int {
	return c.index
}

// See https://en.wikipedia.org/wiki/Tarjan%27s_strongly_connected_components_algorithm
type tarjan[Node comparable] struct {
	graph Graph[Node]
	dag   *DAG[Node]

	next  int
	stack []Node
	state map[Node]*visit

	deps map[int]struct{} // Scratch space for building Component.deps.
}

type visit struct {
	index, low int
	onStack    bool
}

func (t *tarjan[Node]) visit(node Node) *visit {
	v := &visit{index: t.next, low: t.next, onStack: true}
	t.state[node] = v
	t.next++
	base := len(t.stack)
	t.stack = append(t.stack, node)

	for dep := range t.graph(node) {
		w := t.state[dep]
		switch {
		case w == nil:
			w = t.visit(dep)
			v.low = min(v.low, w.low)
		case w.onStack:
			v.low = min(v.low, w.index)
		}
	}

	if v.low != v.index {
		return v
	}

	idx := len(t.dag.components)
	c := Component[Node]{
		dag:     t.dag,
		index:   idx,
		members: slices.Clone(t.stack[base:]),
	}
	t.stack = t.stack[:base]

	for _, m := range c.members {
		t.state[m].onStack = false
		t.dag.keys[m] = idx
	}
	for _, m := range c.members {
		for dep := range t.graph(m) {
			if n := t.dag.keys[dep]; n != idx {
				t.deps[n] = struct{}{}
			}
		}
	}
	c.deps = make([]int, 0, len(t.deps))
	for n := range t.deps {
		c.deps = append(c.deps, n)
	}
	slices.Sort(c.deps)
	clear(t.deps)

	debug.Log(nil, "scc", "#%d: %v -> %v", idx, c.members, c.deps)
	t.dag.components = append(t.dag.components, c)
	return v
}
