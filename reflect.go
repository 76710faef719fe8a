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
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
)

// Has returns whether a field is populated.
//
// Repeated and map fields are populated if they are non-empty. Fields without
// explicit presence are populated if they are not the zero value.
func (m *Message) Has(fd protoreflect.FieldDescriptor) bool {
	return m.impl.Has(m.Type().field(fd))
}

// Get returns the value of a field.
//
// For unset scalar fields this is the field's default. For unset message
// fields this is a message value holding nil. For repeated and map fields
// this is a [List] or [Map] view, which may be used to mutate the field.
func (m *Message) Get(fd protoreflect.FieldDescriptor) Value {
	return getField(&m.impl, m.Type().field(fd))
}

// Set sets the value of a singular field.
//
// String and bytes values are copied, as are messages that live on a
// different arena. Setting a member of a oneof clears the other members.
//
// Panics if v is of the wrong kind for the field, or if the field is
// repeated or a map; use [Message.List] and [Message.Map] instead.
func (m *Message) Set(fd protoreflect.FieldDescriptor, v Value) {
	setField(&m.impl, m.Type().field(fd), v)
}

// ClearField clears a field, so that [Message.Has] reports false.
func (m *Message) ClearField(fd protoreflect.FieldDescriptor) {
	m.impl.ClearField(m.Type().field(fd))
}

// Mutable returns the value of a singular message field, setting it to an
// empty message on this message's arena first if it is unset.
func (m *Message) Mutable(fd protoreflect.FieldDescriptor) *Message {
	f := m.Type().field(fd)
	if !f.IsMessage() || f.Repeated {
		panic(fmt.Sprintf("hyperwire: Mutable called on %v, which is not a singular message field", f))
	}
	return wrapMessage(m.impl.MutableMessage(f))
}

// List returns a view of a repeated field.
func (m *Message) List(fd protoreflect.FieldDescriptor) List {
	f := m.Type().field(fd)
	if !f.Repeated || f.Map {
		panic(fmt.Sprintf("hyperwire: List called on %v, which is not a repeated field", f))
	}
	return List{msg: &m.impl, field: f}
}

// Map returns a view of a map field.
func (m *Message) Map(fd protoreflect.FieldDescriptor) Map {
	f := m.Type().field(fd)
	if !f.Map {
		panic(fmt.Sprintf("hyperwire: Map called on %v, which is not a map field", f))
	}
	return Map{msg: &m.impl, field: f}
}

// WhichOneof returns the populated member of a oneof, or nil if none is.
func (m *Message) WhichOneof(od protoreflect.OneofDescriptor) protoreflect.FieldDescriptor {
	ty := m.impl.Type()
	for _, o := range ty.Oneofs {
		if o.Desc.FullName() == od.FullName() {
			if f := m.impl.WhichOneof(o); f != nil {
				return f.Desc
			}
			return nil
		}
	}

	// Synthetic oneofs, for proto3 optional fields, have a single member.
	if od.Fields().Len() == 1 {
		if fd := od.Fields().Get(0); m.Has(fd) {
			return fd
		}
	}
	return nil
}

// Range calls yield on every populated field in ascending field number order,
// until it returns false.
func (m *Message) Range(yield func(protoreflect.FieldDescriptor, Value) bool) {
	for _, f := range m.impl.Type().Sorted {
		if m.impl.Has(f) && !yield(f.Desc, getField(&m.impl, f)) {
			return
		}
	}
}

// HasUnknown returns whether this message has any unknown fields. Unlike
// [Message.Unknown], it never allocates.
func (m *Message) HasUnknown() bool {
	return !m.impl.Unknown().IsEmpty()
}

// Unknown returns the fields of this message that its type does not know
// about, creating an empty set if there are none.
func (m *Message) Unknown() *UnknownFields {
	return wrapUnknown(m.impl.MutableUnknown())
}

func getField(m *dynamic.Message, f *schema.Field) Value {
	switch {
	case f.Map:
		return Value{kind: mapValue, ref: Map{msg: m, field: f}}
	case f.Repeated:
		return Value{kind: listValue, ref: List{msg: m, field: f}}
	case f.IsMessage():
		if v := m.Message(f); v != nil {
			return ValueOfMessage(wrapMessage(v))
		}
		return Value{kind: messageValue}
	default:
		return scalarValue(f, m.Bits(f), m.Bytes(f))
	}
}

func setField(m *dynamic.Message, f *schema.Field, v Value) {
	if f.Repeated {
		panic(fmt.Sprintf("hyperwire: cannot Set %v; use List or Map instead", f))
	}
	checkKind(f, v)

	switch v.kind {
	case stringValue, bytesValue:
		m.SetBytes(f, arena.Bytes(m.Arena(), v.bytes))
	case messageValue:
		m.SetMessage(f, adopt(m, f, v.Message()))
	default:
		m.SetBits(f, v.bits)
	}
}

// adopt returns a message that can be stored in f: src itself if it lives on
// the same arena as m, or a copy otherwise.
func adopt(m *dynamic.Message, f *schema.Field, src *Message) *dynamic.Message {
	if src == nil {
		panic(fmt.Sprintf("hyperwire: cannot set %v to a nil message", f))
	}
	if src.impl.Type() != f.Message {
		panic(fmt.Sprintf("hyperwire: cannot set %v to a %v", f, src.impl.Type()))
	}
	if src.impl.Arena() == m.Arena() {
		return &src.impl
	}
	v := dynamic.New(f.Message, m.Arena())
	v.MergeFrom(&src.impl)
	return v
}

func checkKind(f *schema.Field, v Value) {
	if want := kindOf(f.Kind); v.kind != want {
		panic(fmt.Sprintf("hyperwire: cannot use a %s value for %v, which has kind %v", v.kind, f, f.Kind))
	}
}
