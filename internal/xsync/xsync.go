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

// Package xsync contains typed concurrent containers.
package xsync

import (
	"sync"
	"sync/atomic"
)

// Map is a typed [sync.Map] used as a compute-once cache.
type Map[K comparable, V any] struct {
	impl sync.Map
}

// Load returns the value cached for k, if any.
func (m *Map[K, V]) Load(k K) (V, bool) {
	v, ok := m.impl.Load(k)
	if !ok {
		var z V
		return z, false
	}
	return v.(V), true //nolint:errcheck
}

// LoadOrCompute returns the value cached for k, calling compute to produce it
// if there is none.
//
// compute may be called more than once for the same key if several
// goroutines race; only one result is kept and returned to all of them.
func (m *Map[K, V]) LoadOrCompute(k K, compute func() V) V {
	if v, ok := m.Load(k); ok {
		return v
	}
	v, _ := m.impl.LoadOrStore(k, compute())
	return v.(V) //nolint:errcheck
}

// Set is a concurrent set that counts its members.
type Set[K comparable] struct {
	impl sync.Map
	n    atomic.Int64
}

// Add inserts k, returning whether it was not already present.
func (s *Set[K]) Add(k K) bool {
	if _, ok := s.impl.Load(k); ok {
		return false
	}
	if _, loaded := s.impl.LoadOrStore(k, struct{}{}); loaded {
		return false
	}
	s.n.Add(1)
	return true
}

// Has returns whether k is in the set.
func (s *Set[K]) Has(k K) bool {
	_, ok := s.impl.Load(k)
	return ok
}

// Len returns the number of members.
func (s *Set[K]) Len() int {
	return int(s.n.Load())
}
