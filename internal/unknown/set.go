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

// Package unknown implements the set of fields retained by a message whose
// numbers its schema does not know about.
package unknown

import (
	"fmt"
	"iter"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/wire"
)

// Field is a single unknown field: a field number and a raw value whose
// shape depends on the wire type.
type Field struct {
	number wire.Number
	typ    wire.Type
	bits   uint64
	data   []byte
	group  *Set
}

// Number returns this field's number.
func (f Field) Number() wire.Number { return f.number }

// Type returns this field's wire type. Groups report [wire.StartGroupType].
func (f Field) Type() wire.Type { return f.typ }

// Varint returns the value of a varint field.
func (f Field) Varint() uint64 {
	f.check(wire.VarintType)
	return f.bits
}

// Fixed32 returns the value of a fixed32 field.
func (f Field) Fixed32() uint32 {
	f.check(wire.Fixed32Type)
	return uint32(f.bits)
}

// Fixed64 returns the value of a fixed64 field.
func (f Field) Fixed64() uint64 {
	f.check(wire.Fixed64Type)
	return f.bits
}

// LengthDelimited returns the payload of a length-delimited field.
func (f Field) LengthDelimited() []byte {
	f.check(wire.BytesType)
	return f.data
}

// Group returns the contents of a group field.
func (f Field) Group() *Set {
	f.check(wire.StartGroupType)
	return f.group
}

func (f Field) check(want wire.Type) {
	if f.typ != want {
		panic(fmt.Sprintf("hyperwire: unknown field %d has wire type %d, not %d", f.number, f.typ, want))
	}
}

// Set is an ordered list of unknown fields.
//
// A Set either owns its storage or is a view of another set's storage.
// Mutating a view first gives it storage of its own, so the viewed set is
// never affected.
type Set struct {
	arena  *arena.Arena
	fields []Field
	view   bool
}

// New returns an empty set allocated on a, which may be nil.
func New(a *arena.Arena) *Set {
	s := arena.New[Set](a)
	s.arena = a
	return s
}

// Init prepares a zero set for use with the given arena.
func (s *Set) Init(a *arena.Arena) {
	*s = Set{arena: a}
}

// Len returns the number of fields in this set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// IsEmpty returns whether this set has no fields.
func (s *Set) IsEmpty() bool { return s.Len() == 0 }

// IsView returns whether this set is a view of another set.
func (s *Set) IsView() bool { return s != nil && s.view }

// Field returns the ith field.
func (s *Set) Field(i int) Field { return s.fields[i] }

// All iterates over the fields in capture order.
func (s *Set) All() iter.Seq2[int, Field] {
	return func(yield func(int, Field) bool) {
		if s == nil {
			return
		}
		for i, f := range s.fields {
			if !yield(i, f) {
				return
			}
		}
	}
}

// AddVarint appends a varint field.
func (s *Set) AddVarint(n wire.Number, v uint64) {
	s.add(Field{number: n, typ: wire.VarintType, bits: v})
}

// AddFixed32 appends a fixed32 field.
func (s *Set) AddFixed32(n wire.Number, v uint32) {
	s.add(Field{number: n, typ: wire.Fixed32Type, bits: uint64(v)})
}

// AddFixed64 appends a fixed64 field.
func (s *Set) AddFixed64(n wire.Number, v uint64) {
	s.add(Field{number: n, typ: wire.Fixed64Type, bits: v})
}

// AddLengthDelimited appends a length-delimited field holding a copy of data,
// and returns that copy, which the caller may modify in place.
func (s *Set) AddLengthDelimited(n wire.Number, data []byte) []byte {
	data = arena.Bytes(s.arena, data)
	s.add(Field{number: n, typ: wire.BytesType, data: data})
	return data
}

// AddGroup appends an empty group field and returns its contents for the
// caller to populate.
func (s *Set) AddGroup(n wire.Number) *Set {
	g := New(s.arena)
	s.add(Field{number: n, typ: wire.StartGroupType, group: g})
	return g
}

// AddField appends a deep copy of f.
func (s *Set) AddField(f Field) {
	s.add(s.clone(f))
}

// MergeFrom appends deep copies of every field in that, in order.
func (s *Set) MergeFrom(that *Set) {
	if that.IsEmpty() {
		return
	}

	// Take a snapshot first, since that may be s.
	fields := that.fields
	s.own()
	for _, f := range fields {
		s.fields = arena.Append(s.arena, s.fields, s.clone(f))
	}
}

// DeleteByNumber removes every field with the given number.
func (s *Set) DeleteByNumber(n wire.Number) {
	if s.IsEmpty() {
		return
	}
	s.own()

	kept := 0
	for _, f := range s.fields {
		if f.number != n {
			s.fields[kept] = f
			kept++
		}
	}
	s.truncate(kept)
}

// DeleteSubrange removes count fields starting at start.
func (s *Set) DeleteSubrange(start, count int) {
	if start < 0 || count < 0 || start+count > s.Len() {
		panic(fmt.Sprintf("hyperwire: DeleteSubrange(%d, %d) out of range for %d fields", start, count, s.Len()))
	}
	if count == 0 {
		return
	}
	s.own()

	copy(s.fields[start:], s.fields[start+count:])
	s.truncate(len(s.fields) - count)
}

// Clear removes every field.
//
// Clearing a view only forgets the fields it was viewing.
func (s *Set) Clear() {
	if !s.view {
		clear(s.fields)
	}
	s.fields = nil
	s.view = false
}

// View returns a set viewing count fields of s starting at start. The view
// shares storage with s and must not outlive it.
func (s *Set) View(start, count int) *Set {
	if start < 0 || count < 0 || start+count > s.Len() {
		panic(fmt.Sprintf("hyperwire: View(%d, %d) out of range for %d fields", start, count, s.Len()))
	}
	return &Set{
		arena:  s.arena,
		fields: s.fields[start : start+count : start+count],
		view:   true,
	}
}

// Size returns the number of bytes [Set.Append] would write.
func (s *Set) Size() int {
	if s == nil {
		return 0
	}

	n := 0
	for i := range s.fields {
		f := &s.fields[i]
		n += wire.TagSize(f.number)
		switch f.typ {
		case wire.VarintType:
			n += wire.SizeVarint(f.bits)
		case wire.Fixed32Type:
			n += 4
		case wire.Fixed64Type:
			n += 8
		case wire.BytesType:
			n += wire.SizeBytes(len(f.data))
		case wire.StartGroupType:
			n += f.group.Size() + wire.TagSize(f.number)
		}
	}
	return n
}

// Append appends the wire encoding of every field to b, in order.
func (s *Set) Append(b []byte) []byte {
	if s == nil {
		return b
	}

	for i := range s.fields {
		f := &s.fields[i]
		b = wire.AppendTag(b, f.number, f.typ)
		switch f.typ {
		case wire.VarintType:
			b = wire.AppendVarint(b, f.bits)
		case wire.Fixed32Type:
			b = wire.AppendFixed32(b, uint32(f.bits))
		case wire.Fixed64Type:
			b = wire.AppendFixed64(b, f.bits)
		case wire.BytesType:
			b = wire.AppendBytes(b, f.data)
		case wire.StartGroupType:
			b = f.group.Append(b)
			b = wire.AppendTag(b, f.number, wire.EndGroupType)
		}
	}
	return b
}

func (s *Set) add(f Field) {
	s.own()
	s.fields = arena.Append(s.arena, s.fields, f)
}

// own gives a view storage of its own.
func (s *Set) own() {
	if !s.view {
		return
	}

	fields := s.fields
	s.fields = nil
	s.view = false
	for _, f := range fields {
		s.fields = arena.Append(s.arena, s.fields, s.clone(f))
	}
}

// truncate shrinks the set to n fields, releasing storage if it becomes
// empty.
func (s *Set) truncate(n int) {
	clear(s.fields[n:])
	s.fields = s.fields[:n]
	if n == 0 {
		s.fields = nil
	}
}

// clone deep-copies f onto s's arena.
func (s *Set) clone(f Field) Field {
	switch f.typ {
	case wire.BytesType:
		f.data = arena.Bytes(s.arena, f.data)
	case wire.StartGroupType:
		g := New(s.arena)
		g.MergeFrom(f.group)
		f.group = g
	}
	return f
}
