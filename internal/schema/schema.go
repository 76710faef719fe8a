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

// Package schema contains the compiled form of a message descriptor: the
// layout the parser, serializer, and message model agree on.
//
// A [Type] is produced once per message descriptor by [Compile] and is
// immutable afterwards, so it may be shared freely between goroutines.
package schema

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// denseLimit is the largest field number stored in a type's dense lookup
// table; larger numbers go through a map.
const denseLimit = 255

// Library is a set of types compiled together. Every message type reachable
// from the root of a compilation lives in the same library.
type Library struct {
	opts  Options
	types map[protoreflect.FullName]*Type
}

// Lookup returns the type with the given name, or nil.
func (l *Library) Lookup(name protoreflect.FullName) *Type {
	return l.types[name]
}

// Len returns the number of types in this library.
func (l *Library) Len() int {
	return len(l.types)
}

// Type is a compiled message type.
type Type struct {
	Desc    protoreflect.MessageDescriptor
	Library *Library

	// Fields in slot order: declared fields first, in declaration order,
	// followed by extensions.
	Fields []*Field
	// Fields in ascending number order; this is the emission order.
	Sorted []*Field
	Oneofs []*Oneof

	Presence int      // Number of presence bits.
	Required []*Field // Fields declared required, in slot order.

	// Set if this type, or any type reachable from it, declares a required
	// field.
	HasRequired bool

	DiscardUnknown bool
	MapEntry       bool

	dense  []*Field
	sparse map[protowire.Number]*Field
	exts   map[protoreflect.FullName]*Field
}

// Name returns this type's full name.
func (t *Type) Name() protoreflect.FullName {
	return t.Desc.FullName()
}

// ByNumber returns the field with the given number, or nil.
func (t *Type) ByNumber(n protowire.Number) *Field {
	if n >= 0 && int(n) < len(t.dense) {
		return t.dense[n]
	}
	return t.sparse[n]
}

// ByDescriptor returns the field compiled from fd, or nil if fd does not
// belong to this type.
func (t *Type) ByDescriptor(fd protoreflect.FieldDescriptor) *Field {
	if fd.IsExtension() {
		return t.exts[fd.FullName()]
	}
	if fd.ContainingMessage().FullName() != t.Desc.FullName() {
		return nil
	}
	i := fd.Index()
	if i < 0 || i >= t.Desc.Fields().Len() {
		return nil
	}
	return t.Fields[i]
}

// ByName returns the non-extension field with the given name, or nil.
func (t *Type) ByName(name protoreflect.Name) *Field {
	fd := t.Desc.Fields().ByName(name)
	if fd == nil {
		return nil
	}
	return t.Fields[fd.Index()]
}

// String implements [fmt.Stringer].
func (t *Type) String() string {
	return string(t.Desc.FullName())
}

// Oneof is a non-synthetic oneof.
type Oneof struct {
	Desc   protoreflect.OneofDescriptor
	Index  int
	Fields []*Field
}

// Field is a compiled field.
type Field struct {
	Desc   protoreflect.FieldDescriptor
	Parent *Type

	Number   protowire.Number
	Kind     protoreflect.Kind
	WireType protowire.Type // The wire type used when this field is not packed.
	Index    int            // Slot index in the parent message.

	Repeated bool
	Packed   bool // Emit packed. Both forms are always accepted.
	Map      bool
	Required bool
	// Proto3 singular scalar without explicit presence; present iff nonzero.
	Implicit bool

	Presence int    // Presence bit, or -1.
	Oneof    *Oneof // Nil for synthetic oneofs.

	// The message type for message, group, and map fields. For maps, this is
	// the synthetic entry type.
	Message    *Type
	Key, Value *Field // Map entry fields.

	UTF8       bool
	ClosedEnum protoreflect.EnumValueDescriptors

	DefaultBits  uint64
	DefaultBytes []byte
}

// Name returns the name used for this field in error paths.
func (f *Field) Name() string {
	return f.Desc.TextName()
}

// IsMessage returns whether this field's values (or list elements) are
// messages.
func (f *Field) IsMessage() bool {
	return f.Kind == protoreflect.MessageKind || f.Kind == protoreflect.GroupKind
}

// IsBytes returns whether this field's values are stored as bytes.
func (f *Field) IsBytes() bool {
	return f.Kind == protoreflect.StringKind || f.Kind == protoreflect.BytesKind
}

// Packable returns whether this field may appear in packed form.
func (f *Field) Packable() bool {
	return f.Repeated && !f.Map && f.WireType != protowire.BytesType &&
		f.WireType != protowire.StartGroupType
}

// ValidEnum reports whether v is acceptable for this field. Open enums and
// non-enum fields accept everything.
func (f *Field) ValidEnum(v int32) bool {
	return f.ClosedEnum == nil || f.ClosedEnum.ByNumber(protoreflect.EnumNumber(v)) != nil
}

// String implements [fmt.Stringer].
func (f *Field) String() string {
	return fmt.Sprintf("%s#%d", f.Desc.FullName(), f.Number)
}

// WireTypeOf returns the wire type for a field of the given kind.
func WireTypeOf(k protoreflect.Kind) protowire.Type {
	switch k {
	case protoreflect.BoolKind, protoreflect.EnumKind,
		protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Uint32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Uint64Kind:
		return protowire.VarintType
	case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
		return protowire.Fixed32Type
	case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
		return protowire.Fixed64Type
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.MessageKind:
		return protowire.BytesType
	case protoreflect.GroupKind:
		return protowire.StartGroupType
	default:
		panic(fmt.Sprintf("hyperwire: unknown kind %v", k))
	}
}

// Bits converts a scalar value into its storage representation.
//
// Signed 32-bit kinds (and enums) are sign-extended, unsigned 32-bit kinds are
// zero-extended, and floating point values are stored as their IEEE bits.
func Bits(k protoreflect.Kind, v protoreflect.Value) uint64 {
	switch k {
	case protoreflect.BoolKind:
		if v.Bool() {
			return 1
		}
		return 0
	case protoreflect.EnumKind:
		return uint64(int64(v.Enum()))
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return uint64(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return v.Uint()
	case protoreflect.FloatKind:
		return uint64(math.Float32bits(float32(v.Float())))
	case protoreflect.DoubleKind:
		return math.Float64bits(v.Float())
	default:
		panic(fmt.Sprintf("hyperwire: %v is not a scalar kind", k))
	}
}

// ValueOf is the inverse of [Bits].
func ValueOf(k protoreflect.Kind, bits uint64) protoreflect.Value {
	switch k {
	case protoreflect.BoolKind:
		return protoreflect.ValueOfBool(bits != 0)
	case protoreflect.EnumKind:
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(int32(bits)))
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(int32(bits))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(int64(bits))
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(uint32(bits))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(bits)
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(math.Float32frombits(uint32(bits)))
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(math.Float64frombits(bits))
	default:
		panic(fmt.Sprintf("hyperwire: %v is not a scalar kind", k))
	}
}
