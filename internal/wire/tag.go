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

package wire

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// Number is a field number. It is the same type the descriptor layer uses.
type Number = protowire.Number

// Type is a wire type.
type Type = protowire.Type

// The wire types.
const (
	VarintType     = protowire.VarintType
	Fixed32Type    = protowire.Fixed32Type
	Fixed64Type    = protowire.Fixed64Type
	BytesType      = protowire.BytesType
	StartGroupType = protowire.StartGroupType
	EndGroupType   = protowire.EndGroupType
)

// Valid field numbers are in the range [MinValidNumber, MaxValidNumber].
const (
	MinValidNumber Number = 1
	MaxValidNumber Number = 1<<29 - 1
)

// MakeTag combines a field number and a wire type into a tag.
func MakeTag(n Number, t Type) uint64 {
	return uint64(n)<<3 | uint64(t&7)
}

// SplitTag is the inverse of [MakeTag].
//
// The field number is not validated; a tag with more than 32 bits of field
// number is truncated, so callers must check the raw tag first.
func SplitTag(tag uint64) (Number, Type) {
	return Number(tag >> 3), Type(tag & 7)
}

// ValidTag reports whether tag encodes a usable field number and wire type.
func ValidTag(tag uint64) bool {
	n := tag >> 3
	return n >= uint64(MinValidNumber) && n <= uint64(MaxValidNumber) && tag&7 <= 5
}

// TagSize returns the encoded size of a tag for n. The wire type does not
// affect the size.
func TagSize(n Number) int {
	return SizeVarint(uint64(n) << 3)
}

// AppendTag appends the encoded tag for n and t.
func AppendTag(b []byte, n Number, t Type) []byte {
	return AppendVarint(b, MakeTag(n, t))
}

// DecodeFixed32 decodes a little-endian 32-bit value at the start of b.
// Returns [Truncated] if b is too short.
func DecodeFixed32(b []byte) (uint32, int) {
	if len(b) < 4 {
		return 0, Truncated
	}
	return binary.LittleEndian.Uint32(b), 4
}

// DecodeFixed64 decodes a little-endian 64-bit value at the start of b.
// Returns [Truncated] if b is too short.
func DecodeFixed64(b []byte) (uint64, int) {
	if len(b) < 8 {
		return 0, Truncated
	}
	return binary.LittleEndian.Uint64(b), 8
}

// AppendFixed32 appends v in little-endian order.
func AppendFixed32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendFixed64 appends v in little-endian order.
func AppendFixed64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// SizeBytes returns the encoded size of a length-delimited value with n bytes
// of payload, excluding the tag.
func SizeBytes(n int) int {
	return SizeVarint(uint64(n)) + n
}

// AppendBytes appends a length prefix followed by v.
func AppendBytes(b []byte, v []byte) []byte {
	b = AppendVarint(b, uint64(len(v)))
	return append(b, v...)
}
