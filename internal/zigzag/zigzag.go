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

// Package zigzag implements the zigzag transform used by sint32 and sint64
// fields, which maps small-magnitude signed integers to small unsigned ones.
package zigzag

// Encode32 zigzag-encodes a 32-bit value.
func Encode32(n int32) uint32 {
	return uint32(n<<1) ^ uint32(n>>31)
}

// Decode32 is the inverse of [Encode32].
func Decode32(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}

// Encode64 zigzag-encodes a 64-bit value.
func Encode64(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

// Decode64 is the inverse of [Encode64].
func Decode64(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
