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

package hyperwire

import (
	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// Arena is a region allocator that owns the memory of the messages allocated
// on it.
//
// Arenas may be used from several goroutines at once; each goroutine
// allocates from blocks that it owns. [Arena.Reset] must not race with any
// other operation on the arena.
type Arena struct {
	impl arena.Arena
}

// ArenaOption is a configuration setting for [NewArena].
type ArenaOption struct{ apply func(*arena.Options) }

// Sampler records statistics about a random subset of arena allocations. A
// sampler may be shared by many arenas.
type Sampler = arena.Sampler

// SamplerReport is a snapshot of a [Sampler].
type SamplerReport = arena.Report

// NewSampler returns a sampler that records allocations with the given
// probability.
func NewSampler(rate float64) *Sampler {
	return arena.NewSampler(rate)
}

// WithBlockSizes sets the size of the first block an arena allocates, and the
// size that subsequent blocks may grow to.
//
// The defaults are 256 bytes and 32 KiB.
func WithBlockSizes(start, limit int) ArenaOption {
	return ArenaOption{func(o *arena.Options) {
		o.StartBlockSize = start
		o.MaxBlockSize = limit
	}}
}

// WithInitialBlock provides caller-owned memory for the arena to allocate from
// first. The arena never frees this memory; resetting the arena makes it
// available for reuse.
func WithInitialBlock(buf []byte) ArenaOption {
	return ArenaOption{func(o *arena.Options) { o.InitialBlock = buf }}
}

// WithSampler records a random subset of the arena's allocations in s.
func WithSampler(s *Sampler) ArenaOption {
	return ArenaOption{func(o *arena.Options) { o.Sampler = s }}
}

// NewArena returns a new, empty arena.
func NewArena(options ...ArenaOption) *Arena {
	var opts arena.Options
	for _, opt := range options {
		if opt.apply != nil {
			opt.apply(&opts)
		}
	}
	return xunsafe.Cast[Arena](arena.NewArena(opts))
}

// New allocates a new empty message of the given type on this arena.
func (a *Arena) New(ty *MessageType) *Message {
	return ty.New(a)
}

// Allocate returns size bytes of zeroed memory owned by the arena.
//
// The memory is invisible to the garbage collector's pointer scanning, so it
// must not be used to store pointers.
func (a *Arena) Allocate(size int) []byte {
	return a.impl.Allocate(size)
}

// AllocateAndAddCleanup is like [Arena.Allocate], but also arranges for drop
// to be called with the memory when the arena is reset.
func (a *Arena) AllocateAndAddCleanup(size int, drop func([]byte)) []byte {
	return a.impl.AllocateAndAddCleanup(size, drop)
}

// AddCleanup arranges for drop to be called with v when the arena is reset.
func (a *Arena) AddCleanup(v any, drop func(any)) {
	a.impl.AddCleanup(v, drop)
}

// Own keeps v alive until the arena is reset, and then closes it if it has a
// Close or Reset method.
func (a *Arena) Own(v any) {
	a.impl.Own(v)
}

// Reset runs every registered cleanup and releases the arena's memory,
// returning the number of bytes it had allocated.
//
// Every message allocated on the arena is invalid after Reset.
func (a *Arena) Reset() int64 {
	return a.impl.Reset()
}

// SpaceAllocated returns the number of bytes the arena has obtained for its
// blocks.
func (a *Arena) SpaceAllocated() int64 {
	return a.impl.SpaceAllocated()
}

// SpaceUsed returns the number of bytes the arena has handed out since it was
// created or last reset.
func (a *Arena) SpaceUsed() int64 {
	return a.impl.SpaceUsed()
}

// raw returns the internal arena, or nil for the heap.
func (a *Arena) raw() *arena.Arena {
	if a == nil {
		return nil
	}
	return &a.impl
}

// wrapArena wraps an internal Arena pointer.
func wrapArena(a *arena.Arena) *Arena {
	return xunsafe.Cast[Arena](a)
}
