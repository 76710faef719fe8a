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

// Package xunsafe provides a more convenient interface for the unsafe
// conversions hyperwire needs than Go's built-in package unsafe.
package xunsafe

import "unsafe"

// Cast casts one pointer type to another.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// Reinterpret returns a slice of n values of type To that starts at the first
// element of s.
//
// The caller must ensure that s's backing array is large enough and suitably
// aligned for To.
func Reinterpret[To, From any](s []From, n int) []To {
	return unsafe.Slice((*To)(unsafe.Pointer(unsafe.SliceData(s))), n)
}

// Padding returns the number of bytes that must be skipped from the start of s
// to reach an address that is a multiple of align, which must be a power of
// two.
func Padding[E any](s []E, align int) int {
	return int(-uintptr(unsafe.Pointer(unsafe.SliceData(s))) & uintptr(align-1))
}
