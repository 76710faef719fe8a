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

package arena

import (
	"reflect"
	"unsafe"

	"buf.build/go/hyperwire/internal/xsync"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// New allocates a zeroed T on a.
//
// If a is nil, this is equivalent to new(T).
func New[T any](a *Arena) *T {
	if a == nil {
		return new(T)
	}
	return &MakeSlice[T](a, 1, 1)[0]
}

// MakeSlice allocates a zeroed []T with the given length and capacity on a.
//
// Pointer-free element types are carved out of the arena's byte blocks.
// Other element types come from a typed slab owned by the calling
// goroutine's block, so that the GC can see their pointers.
//
// If a is nil, this is equivalent to make([]T, n, c).
func MakeSlice[T any](a *Arena, n, c int) []T {
	if a == nil {
		return make([]T, n, c)
	}
	if c == 0 {
		return nil
	}

	var z T
	size := int(unsafe.Sizeof(z))
	switch {
	case size == 0:
		return make([]T, n, c)
	case !pointerFree[T]():
		return takeSlab[T](a.blockFor(0), c)[:n]
	}

	buf := a.Allocate(size * c)
	return xunsafe.Reinterpret[T](buf, c)[:n]
}

// Append appends vs to s, growing it on a if necessary.
//
// If a is nil, this is equivalent to the append builtin.
func Append[T any](a *Arena, s []T, vs ...T) []T {
	if a == nil || len(s)+len(vs) <= cap(s) {
		return append(s, vs...)
	}

	c := max(2*cap(s), len(s)+len(vs), 4)
	grown := MakeSlice[T](a, len(s), c)
	copy(grown, s)
	return append(grown, vs...)
}

// Bytes copies b onto a.
func Bytes(a *Arena, b []byte) []byte {
	if a == nil {
		return append([]byte(nil), b...)
	}
	if len(b) == 0 {
		return []byte{}
	}
	out := a.Allocate(len(b))[:len(b):len(b)]
	copy(out, b)
	return out
}

// slabKey identifies the element type of a slab.
type slabKey = reflect.Type

const (
	minSlab = 8
	maxSlab = 1024
)

// slab is a chunk of T's waiting to be handed out.
type slab[T any] struct {
	free []T
	next int
}

func takeSlab[T any](b *block, n int) []T {
	key := reflect.TypeFor[T]()
	if b.slabs == nil {
		b.slabs = make(map[slabKey]any)
	}

	s, _ := b.slabs[key].(*slab[T])
	if s == nil {
		s = &slab[T]{next: minSlab}
		b.slabs[key] = s
	}

	if len(s.free) < n {
		s.free = make([]T, max(n, s.next))
		s.next = min(s.next*2, maxSlab)
	}

	out := s.free[:n:n]
	s.free = s.free[n:]
	return out
}

var pointerFreeCache xsync.Map[reflect.Type, bool]

// pointerFree returns whether T has no pointers the GC needs to trace.
func pointerFree[T any]() bool {
	t := reflect.TypeFor[T]()
	return pointerFreeCache.LoadOrCompute(t, func() bool { return hasNoPointers(t) })
}

func hasNoPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || hasNoPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !hasNoPointers(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
