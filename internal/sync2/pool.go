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

// Package sync2 contains typed wrappers over package sync.
package sync2

import "sync"

// Pool is a typed [sync.Pool] of reusable scratch values.
type Pool[T any] struct {
	// New constructs a value when the pool is empty. If nil, new(T) is used.
	New func() *T
	// Reset prepares a value for reuse. Called when the value is dropped.
	Reset func(*T)
	// Keep reports whether a dropped value should be returned to the pool.
	// Values that have grown too large to be worth retaining should be
	// rejected here. If nil, every value is kept.
	Keep func(*T) bool

	impl sync.Pool
}

// Get returns a value of type T, and a function that must be called exactly
// once when the caller is done with it.
//
//	v, drop := pool.Get()
//	defer drop()
func (p *Pool[T]) Get() (v *T, drop func()) {
	if v, _ = p.impl.Get().(*T); v == nil {
		if p.New != nil {
			v = p.New()
		} else {
			v = new(T)
		}
	}
	return v, func() { p.put(v) }
}

func (p *Pool[T]) put(v *T) {
	if p.Keep != nil && !p.Keep(v) {
		return
	}
	if p.Reset != nil {
		p.Reset(v)
	}
	p.impl.Put(v)
}
