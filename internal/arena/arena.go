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

// Package arena provides a region allocator for message storage.
//
// # Design
//
// An [Arena] owns a singly linked list of blocks. Each block is a word-aligned
// byte buffer with a bump cursor, an owning goroutine, and a list of cleanup
// callbacks. Allocation bumps the cursor of a block owned by the calling
// goroutine, so two goroutines never write into the same block.
//
// The block a goroutine last allocated from is remembered in a goroutine-local
// cache, tagged with the arena's lifecycle id. Every arena (and every
// [Arena.Reset]) draws a fresh lifecycle id from a global counter, so a stale
// cache entry can never be mistaken for a live block. Reset also clears the
// calling goroutine's entry, so it never pins a released block.
//
// Memory handed out by the byte allocator is invisible to the GC's pointer
// scanning, so it may only hold pointer-free data. Values that contain
// pointers go into typed slabs hanging off the owning block; see [New] and
// [MakeSlice].
package arena

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/timandy/routine"

	"buf.build/go/hyperwire/internal/dbg"
	"buf.build/go/hyperwire/internal/debug"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// Align is the alignment of every allocation.
const Align = 8

// Default block sizes.
const (
	DefaultStartBlockSize = 256
	DefaultMaxBlockSize   = 32 << 10
)

// Options configures an [Arena].
type Options struct {
	// The size of the first block allocated by the arena. Subsequent blocks
	// double in size up to MaxBlockSize.
	StartBlockSize int
	MaxBlockSize   int

	// Caller-owned storage to use as the first block. It is never freed by the
	// arena; Reset rewinds it instead.
	InitialBlock []byte

	// If set, allocations are sampled into this sampler.
	Sampler *Sampler
}

// Arena is a thread-aware bump allocator.
//
// Allocate and friends may be called concurrently. Reset must not be called
// concurrently with any other operation.
type Arena struct {
	opts Options

	lifecycle atomic.Uint64
	head      atomic.Pointer[block] // Newest block first.
	hint      atomic.Pointer[block] // Most recently created block.
	allocated atomic.Int64

	mu      sync.Mutex
	next    int    // Size of the next block; guarded by mu.
	initial *block // The caller-owned block, if any.
}

// lifecycles is the global source of lifecycle ids. Zero is never issued.
var lifecycles atomic.Uint64

// cache is the goroutine-local "last used block" cache.
var cache = routine.NewThreadLocal[*threadCache]()

type threadCache struct {
	lifecycle uint64
	block     *block
}

// NewArena returns a new arena.
func NewArena(opts Options) *Arena {
	if opts.StartBlockSize <= 0 {
		opts.StartBlockSize = DefaultStartBlockSize
	}
	if opts.MaxBlockSize <= 0 {
		opts.MaxBlockSize = DefaultMaxBlockSize
	}
	opts.StartBlockSize = alignUp(opts.StartBlockSize)
	opts.MaxBlockSize = max(alignUp(opts.MaxBlockSize), opts.StartBlockSize)

	a := &Arena{opts: opts, next: opts.StartBlockSize}
	a.lifecycle.Store(lifecycles.Add(1))

	if opts.InitialBlock != nil {
		a.initial = newCallerBlock(opts.InitialBlock)
		a.head.Store(a.initial)
		a.allocated.Store(int64(len(a.initial.buf)))
	}

	a.log("new", "%v", dbg.Dict("opts",
		"start", opts.StartBlockSize,
		"max", opts.MaxBlockSize,
		"initial", len(opts.InitialBlock),
		"sampled", opts.Sampler != nil,
	))
	return a
}

// Allocate returns size bytes of zeroed memory. The returned slice's capacity
// is size rounded up to [Align].
func (a *Arena) Allocate(size int) []byte {
	if size < 0 {
		panic(fmt.Sprintf("hyperwire: negative arena allocation: %d", size))
	}
	aligned := alignUp(size)
	b := a.blockFor(aligned)
	p := b.bump(aligned)[:size:aligned]
	if a.opts.Sampler != nil {
		a.opts.Sampler.record(a, size, aligned)
	}
	return p
}

// AllocateAndAddCleanup is like [Arena.Allocate], but also registers drop to
// be called with the returned memory when the arena is reset.
//
// Cleanups registered on the same block run in reverse order of
// registration.
func (a *Arena) AllocateAndAddCleanup(size int, drop func([]byte)) []byte {
	if size < 0 {
		panic(fmt.Sprintf("hyperwire: negative arena allocation: %d", size))
	}
	aligned := alignUp(size)
	b := a.blockFor(aligned)
	p := b.bump(aligned)[:size:aligned]
	if a.opts.Sampler != nil {
		a.opts.Sampler.record(a, size, aligned)
	}
	b.addCleanup(p, func(v any) { drop(v.([]byte)) }) //nolint:errcheck
	return p
}

// AddCleanup registers drop to be called with v when the arena is reset.
// A nil drop only keeps v reachable until then.
func (a *Arena) AddCleanup(v any, drop func(any)) {
	a.blockFor(0).addCleanup(v, drop)
}

// Own transfers ownership of v to the arena: v is kept reachable until the
// next reset, at which point it is closed if it has a Close or Reset method.
func (a *Arena) Own(v any) {
	a.AddCleanup(v, release)
}

func release(v any) {
	switch v := v.(type) {
	case interface{ Close() error }:
		_ = v.Close()
	case interface{ Reset() }:
		v.Reset()
	}
}

// Reset runs every cleanup, releases every block except the caller-supplied
// one, which is rewound, and returns the number of bytes the arena had
// allocated.
//
// Cleanups run oldest block first, and in reverse registration order within
// a block. Memory previously returned by the arena must not be used after
// calling Reset.
func (a *Arena) Reset() int64 {
	freed := a.allocated.Load()

	var blocks []*block
	for b := a.head.Load(); b != nil; b = b.next {
		blocks = append(blocks, b)
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		blocks[i].runCleanups()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Drop the caller's cached block so it does not outlive the reset. Other
	// goroutines' entries fail the lifecycle check and are replaced on their
	// next allocation.
	if tc := cache.Get(); tc != nil && tc.lifecycle == a.lifecycle.Load() {
		tc.block = nil
	}

	a.hint.Store(nil)
	a.head.Store(nil)
	a.allocated.Store(0)
	a.next = a.opts.StartBlockSize
	if a.initial != nil {
		a.initial.rewind()
		a.head.Store(a.initial)
		a.allocated.Store(int64(len(a.initial.buf)))
	}
	a.lifecycle.Store(lifecycles.Add(1))

	a.log("reset", "freed %d bytes in %d blocks", freed, len(blocks))
	return freed
}

// SpaceAllocated returns the total capacity of all blocks owned by the arena,
// including the caller-supplied block.
func (a *Arena) SpaceAllocated() int64 {
	return a.allocated.Load()
}

// SpaceUsed returns the number of bytes handed out by the arena since the
// last reset.
func (a *Arena) SpaceUsed() int64 {
	var n int64
	for b := a.head.Load(); b != nil; b = b.next {
		n += b.pos.Load()
	}
	return n
}

// Blocks returns the number of blocks currently in the arena.
func (a *Arena) Blocks() int {
	var n int
	for b := a.head.Load(); b != nil; b = b.next {
		n++
	}
	return n
}

// blockFor returns a block owned by the calling goroutine with at least size
// bytes free.
func (a *Arena) blockFor(size int) *block {
	lifecycle := a.lifecycle.Load()

	tc := cache.Get()
	if tc != nil && tc.lifecycle == lifecycle && tc.block.fits(size) {
		return tc.block
	}

	goid := goid()
	if h := a.hint.Load(); h != nil && h.owner.Load() == goid && h.fits(size) {
		a.remember(tc, lifecycle, h)
		return h
	}

	b := a.slowBlockFor(size, goid)
	a.remember(tc, lifecycle, b)
	return b
}

// slowBlockFor searches for an owned block with room, claiming the caller's
// block if nobody owns it yet, and allocates a new block if that fails.
func (a *Arena) slowBlockFor(size int, goid uint64) *block {
	a.mu.Lock()
	defer a.mu.Unlock()

	for b := a.head.Load(); b != nil; b = b.next {
		owner := b.owner.Load()
		if (owner == goid || owner == 0) && b.fits(size) {
			b.owner.Store(goid)
			return b
		}
	}

	n := max(a.next, size)
	a.next = min(a.next*2, a.opts.MaxBlockSize)

	b := newBlock(n)
	b.owner.Store(goid)
	b.next = a.head.Load()
	a.allocated.Add(int64(n))

	// Publishing the block is the release store that makes its contents
	// visible to other goroutines walking the list.
	a.head.Store(b)
	a.hint.Store(b)

	a.log("grow", "%d bytes for g%d, next: %d", n, goid, a.next)
	return b
}

func (a *Arena) remember(tc *threadCache, lifecycle uint64, b *block) {
	if tc == nil {
		tc = new(threadCache)
		cache.Set(tc)
	}
	tc.lifecycle = lifecycle
	tc.block = b
}

func (a *Arena) log(op, format string, args ...any) {
	if debug.Enabled {
		debug.Log([]any{"%p", a}, op, format, args...)
	}
}

// block is a single contiguous region of arena memory.
type block struct {
	next  *block // Immutable once published.
	buf   []byte
	pos   atomic.Int64
	owner atomic.Uint64 // Goroutine id; zero if unclaimed.

	caller bool

	// Only touched by the owning goroutine, or by Reset.
	cleanups [][]cleanup
	slabs    map[slabKey]any
}

// cleanup is a deferred destructor.
type cleanup struct {
	value any
	drop  func(any)
}

const (
	minCleanupChunk = 4
	maxCleanupChunk = 256
)

func newBlock(size int) *block {
	// Back the block with words so that it is suitably aligned for any
	// pointer-free type.
	words := make([]uint64, size/Align)
	return &block{buf: xunsafe.Reinterpret[byte](words, size)}
}

func newCallerBlock(buf []byte) *block {
	if len(buf) > 0 {
		skip := xunsafe.Padding(buf, Align)
		buf = buf[min(skip, len(buf)):]
		buf = buf[:len(buf)&^(Align-1)]
	}
	clear(buf)
	return &block{buf: buf, caller: true}
}

func (b *block) fits(size int) bool {
	return b.pos.Load()+int64(size) <= int64(len(b.buf))
}

func (b *block) bump(size int) []byte {
	pos := b.pos.Load()
	end := pos + int64(size)
	debug.Assert(end <= int64(len(b.buf)), "block overrun: %d > %d", end, len(b.buf))
	b.pos.Store(end)
	return b.buf[pos:end:end]
}

func (b *block) addCleanup(v any, drop func(any)) {
	n := len(b.cleanups)
	if n == 0 || len(b.cleanups[n-1]) == cap(b.cleanups[n-1]) {
		size := minCleanupChunk
		if n > 0 {
			size = min(cap(b.cleanups[n-1])*2, maxCleanupChunk)
		}
		b.cleanups = append(b.cleanups, make([]cleanup, 0, size))
		n++
	}
	b.cleanups[n-1] = append(b.cleanups[n-1], cleanup{v, drop})
}

func (b *block) runCleanups() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		chunk := b.cleanups[i]
		for j := len(chunk) - 1; j >= 0; j-- {
			if c := chunk[j]; c.drop != nil {
				c.drop(c.value)
			}
		}
	}
	b.cleanups = nil
}

// rewind makes a caller-owned block empty again.
func (b *block) rewind() {
	clear(b.buf[:b.pos.Load()])
	b.pos.Store(0)
	b.owner.Store(0)
	b.next = nil
	b.cleanups = nil
	b.slabs = nil
}

func alignUp(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

func goid() uint64 {
	return uint64(routine.Goid())
}
