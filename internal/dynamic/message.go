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

// Package dynamic contains the storage behind hyperwire's messages.
//
// A [Message] is a slot per compiled field, a presence bitset, and one
// discriminator per oneof. Every allocation a message makes, including its
// sub-messages, lists, maps, and unknown fields, comes from the arena the
// message was created on.
package dynamic

import (
	"fmt"
	"sync/atomic"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/debug"
	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/unknown"
)

// Message is a dynamic message value.
type Message struct {
	typ   *schema.Type
	arena *arena.Arena

	present []uint64
	oneofs  []int32 // Index+1 of the active member of each oneof; 0 if none.
	slots   []Slot

	unknown *unknown.Set
	size    atomic.Int64
}

// Slot is the storage for a single field. Which member is in use depends on
// the field's kind and cardinality.
type Slot struct {
	Bits  uint64
	Bytes []byte
	Msg   *Message
	List  *List
	Map   *Map
}

// New allocates an empty message of type t on a, which may be nil.
func New(t *schema.Type, a *arena.Arena) *Message {
	m := arena.New[Message](a)
	m.Init(t, a)
	return m
}

// Init initializes m as an empty message of type t.
func (m *Message) Init(t *schema.Type, a *arena.Arena) {
	m.typ = t
	m.arena = a
	m.present = arena.MakeSlice[uint64](a, (t.Presence+63)/64, (t.Presence+63)/64)
	m.oneofs = arena.MakeSlice[int32](a, len(t.Oneofs), len(t.Oneofs))
	m.slots = arena.MakeSlice[Slot](a, len(t.Fields), len(t.Fields))
	m.unknown = nil
	m.size.Store(0)
}

// Type returns this message's type.
func (m *Message) Type() *schema.Type { return m.typ }

// Arena returns the arena this message allocates on. May be nil.
func (m *Message) Arena() *arena.Arena { return m.arena }

// Slot returns the raw storage for f.
func (m *Message) Slot(f *schema.Field) *Slot {
	m.check(f)
	return &m.slots[f.Index]
}

// Has returns whether f is populated.
func (m *Message) Has(f *schema.Field) bool {
	m.check(f)
	s := &m.slots[f.Index]
	switch {
	case f.Map:
		return s.Map.Len() > 0
	case f.Repeated:
		return s.List.Len() > 0
	case f.Oneof != nil:
		return m.oneofs[f.Oneof.Index] == int32(f.Index)+1
	case f.Presence >= 0:
		return m.present[f.Presence/64]&(1<<(f.Presence%64)) != 0
	case f.IsBytes():
		return len(s.Bytes) > 0
	default:
		return s.Bits != 0
	}
}

// Bits returns the value of a singular scalar field, or its default.
func (m *Message) Bits(f *schema.Field) uint64 {
	if !m.Has(f) {
		return f.DefaultBits
	}
	return m.slots[f.Index].Bits
}

// Bytes returns the value of a singular string or bytes field, or its
// default.
func (m *Message) Bytes(f *schema.Field) []byte {
	if !m.Has(f) {
		return f.DefaultBytes
	}
	return m.slots[f.Index].Bytes
}

// Message returns the value of a singular message field, or nil.
func (m *Message) Message(f *schema.Field) *Message {
	if !m.Has(f) {
		return nil
	}
	return m.slots[f.Index].Msg
}

// List returns the list for a repeated field. May be nil.
func (m *Message) List(f *schema.Field) *List {
	m.check(f)
	return m.slots[f.Index].List
}

// Map returns the map for a map field. May be nil.
func (m *Message) Map(f *schema.Field) *Map {
	m.check(f)
	return m.slots[f.Index].Map
}

// WhichOneof returns the populated member of o, or nil.
func (m *Message) WhichOneof(o *schema.Oneof) *schema.Field {
	i := m.oneofs[o.Index]
	if i == 0 {
		return nil
	}
	return m.typ.Fields[i-1]
}

// SetBits sets a singular scalar field.
func (m *Message) SetBits(f *schema.Field, bits uint64) {
	m.mark(f).Bits = bits
}

// SetBytes sets a singular string or bytes field. b is stored as-is; the
// caller decides whether it needs to be copied onto the arena first.
func (m *Message) SetBytes(f *schema.Field, b []byte) {
	m.mark(f).Bytes = b
}

// SetMessage sets a singular message field to v, which must have been
// allocated on m's arena.
func (m *Message) SetMessage(f *schema.Field, v *Message) {
	m.mark(f).Msg = v
}

// MutableMessage returns the value of a singular message field, creating an
// empty one if it is not populated.
func (m *Message) MutableMessage(f *schema.Field) *Message {
	if m.Has(f) {
		if v := m.slots[f.Index].Msg; v != nil {
			return v
		}
	}
	v := New(f.Message, m.arena)
	m.mark(f).Msg = v
	return v
}

// MutableList returns the list for a repeated field, creating it if needed.
func (m *Message) MutableList(f *schema.Field) *List {
	s := m.Slot(f)
	if s.List == nil {
		s.List = arena.New[List](m.arena)
	}
	return s.List
}

// MutableMap returns the map for a map field, creating it if needed.
func (m *Message) MutableMap(f *schema.Field) *Map {
	s := m.Slot(f)
	if s.Map == nil {
		s.Map = newMap(f)
	}
	return s.Map
}

// AppendBits appends to a repeated scalar field.
func (m *Message) AppendBits(f *schema.Field, bits uint64) {
	l := m.MutableList(f)
	l.Bits = arena.Append(m.arena, l.Bits, bits)
}

// AppendBytes appends to a repeated string or bytes field.
func (m *Message) AppendBytes(f *schema.Field, b []byte) {
	l := m.MutableList(f)
	l.Bytes = arena.Append(m.arena, l.Bytes, b)
}

// AppendMessage appends a new empty element to a repeated message field and
// returns it.
func (m *Message) AppendMessage(f *schema.Field) *Message {
	v := New(f.Message, m.arena)
	l := m.MutableList(f)
	l.Msgs = arena.Append(m.arena, l.Msgs, v)
	return v
}

// NewEntry returns a new, unattached entry message for a map field. It
// becomes part of the map once passed to [Message.InsertEntry].
func (m *Message) NewEntry(f *schema.Field) *Message {
	return New(f.Message, m.arena)
}

// InsertEntry adds an entry to a map field, replacing any entry with the
// same key.
func (m *Message) InsertEntry(f *schema.Field, entry *Message) {
	m.MutableMap(f).insert(entry)
}

// Unknown returns this message's unknown fields. May be nil.
func (m *Message) Unknown() *unknown.Set {
	return m.unknown
}

// MutableUnknown returns this message's unknown fields, creating an empty
// set if needed.
func (m *Message) MutableUnknown() *unknown.Set {
	if m.unknown == nil {
		m.unknown = unknown.New(m.arena)
	}
	return m.unknown
}

// ClearField clears a single field.
func (m *Message) ClearField(f *schema.Field) {
	m.check(f)
	switch {
	case f.Oneof != nil:
		if m.oneofs[f.Oneof.Index] == int32(f.Index)+1 {
			m.oneofs[f.Oneof.Index] = 0
		}
	case f.Presence >= 0:
		m.present[f.Presence/64] &^= 1 << (f.Presence % 64)
	}
	m.slots[f.Index] = Slot{}
	m.size.Store(0)
}

// Clear resets m to the empty message. Memory already taken from the arena
// is not returned to it.
func (m *Message) Clear() {
	clear(m.present)
	clear(m.oneofs)
	clear(m.slots)
	m.unknown = nil
	m.size.Store(0)
}

// CachedSize returns the size recorded by the last call to
// [Message.SetCachedSize].
func (m *Message) CachedSize() int {
	return int(m.size.Load())
}

// SetCachedSize records the encoded size of m.
func (m *Message) SetCachedSize(n int) {
	m.size.Store(int64(n))
}

// String implements [fmt.Stringer].
func (m *Message) String() string {
	return fmt.Sprintf("%s@%p", m.typ, m)
}

// mark records that f is populated, switching its oneof if necessary, and
// returns its slot.
func (m *Message) mark(f *schema.Field) *Slot {
	m.check(f)
	switch {
	case f.Oneof != nil:
		active := &m.oneofs[f.Oneof.Index]
		if prev := *active - 1; prev >= 0 && int(prev) != f.Index {
			debug.Log(nil, "oneof", "%s: %v -> %v", m.typ, m.typ.Fields[prev], f)
			m.slots[prev] = Slot{}
		}
		*active = int32(f.Index) + 1
	case f.Presence >= 0:
		m.present[f.Presence/64] |= 1 << (f.Presence % 64)
	}
	return &m.slots[f.Index]
}

func (m *Message) check(f *schema.Field) {
	if f.Parent != m.typ {
		panic(fmt.Sprintf("hyperwire: field %v does not belong to %v", f, m.typ))
	}
}
