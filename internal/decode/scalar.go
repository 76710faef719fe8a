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

package decode

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/zigzag"
)

const enumKind = protoreflect.EnumKind

// varintBits converts a raw varint into the storage representation of f.
func varintBits(f *schema.Field, v uint64) uint64 {
	switch f.Kind {
	case protoreflect.BoolKind:
		if v != 0 {
			return 1
		}
		return 0
	case protoreflect.Int32Kind, protoreflect.EnumKind:
		return uint64(int64(int32(v)))
	case protoreflect.Uint32Kind:
		return uint64(uint32(v))
	case protoreflect.Sint32Kind:
		return uint64(int64(zigzag.Decode32(uint32(v))))
	case protoreflect.Sint64Kind:
		return uint64(zigzag.Decode64(v))
	default:
		return v
	}
}

// fixed32Bits converts a raw fixed32 into the storage representation of f.
func fixed32Bits(f *schema.Field, v uint32) uint64 {
	if f.Kind == protoreflect.Sfixed32Kind {
		return uint64(int64(int32(v)))
	}
	return uint64(v)
}
