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

// Package wire contains the primitive codecs of the Protobuf binary format:
// varints, fixed-width integers, and tags.
package wire

import "math/bits"

// MaxVarintLen is the longest a varint can be on the wire.
const MaxVarintLen = 10

// Result codes returned in place of a length by the Decode* functions.
const (
	// Truncated means the input ended before the value did.
	Truncated = 0
	// Overflow means the 10th byte of a varint had its continuation bit set.
	Overflow = -1
)

// DecodeVarint decodes a varint at the start of b, returning the value and the
// number of bytes consumed. On failure, the length is either [Truncated] or
// [Overflow].
//
// Over-long encodings are accepted. The 10th byte can only contribute one
// bit; the rest of its payload is discarded.
func DecodeVarint(b []byte) (uint64, int) {
	var x, y uint64
	var n int

	// Each byte position is spelled out separately so the compiler can
	// eliminate bounds checks and keep x in a register.
	if len(b) <= 0 {
		goto fail
	}
	y = uint64(b[0])
	if y < 0x80 {
		return y, 1
	}
	x = y - 0x80

	if len(b) <= 1 {
		goto fail
	}
	y = uint64(b[1])
	x += y << 7
	if y < 0x80 {
		n = 2
		goto exit
	}
	x -= 0x80 << 7

	if len(b) <= 2 {
		goto fail
	}
	y = uint64(b[2])
	x += y << 14
	if y < 0x80 {
		n = 3
		goto exit
	}
	x -= 0x80 << 14

	if len(b) <= 3 {
		goto fail
	}
	y = uint64(b[3])
	x += y << 21
	if y < 0x80 {
		n = 4
		goto exit
	}
	x -= 0x80 << 21

	if len(b) <= 4 {
		goto fail
	}
	y = uint64(b[4])
	x += y << 28
	if y < 0x80 {
		n = 5
		goto exit
	}
	x -= 0x80 << 28

	if len(b) <= 5 {
		goto fail
	}
	y = uint64(b[5])
	x += y << 35
	if y < 0x80 {
		n = 6
		goto exit
	}
	x -= 0x80 << 35

	if len(b) <= 6 {
		goto fail
	}
	y = uint64(b[6])
	x += y << 42
	if y < 0x80 {
		n = 7
		goto exit
	}
	x -= 0x80 << 42

	if len(b) <= 7 {
		goto fail
	}
	y = uint64(b[7])
	x += y << 49
	if y < 0x80 {
		n = 8
		goto exit
	}
	x -= 0x80 << 49

	if len(b) <= 8 {
		goto fail
	}
	y = uint64(b[8])
	x += y << 56
	if y < 0x80 {
		n = 9
		goto exit
	}
	x -= 0x80 << 56

	if len(b) <= 9 {
		goto fail
	}
	y = uint64(b[9])
	x += y << 63 // Only the low bit survives the shift.
	if y < 0x80 {
		n = 10
		goto exit
	}
	return 0, Overflow

exit:
	return x, n

fail:
	return 0, Truncated
}

// AppendVarint appends the varint encoding of v to b.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// PutVarint writes v into the start of b, which must be at least
// SizeVarint(v) bytes long, and returns the number of bytes written.
func PutVarint(b []byte, v uint64) int {
	n := 0
	for v >= 0x80 {
		b[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	b[n] = byte(v)
	return n + 1
}

// SizeVarint returns the encoded size of v, between 1 and [MaxVarintLen].
func SizeVarint(v uint64) int {
	// This computes 1 + (bits.Len64(v)-1)/7 without a division or a branch on
	// zero. 9/64 is a good enough approximation of 1/7 for 64-bit inputs.
	return int(9*uint32(bits.Len64(v))+64) / 64
}
