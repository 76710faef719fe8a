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

	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
)

// Map is a view of a map field of a [Message].
//
// Keys are passed as [Value]s of the map's key kind. Entries are kept in
// insertion order; replacing the value of an existing key does not move it.
type Map struct {
	msg   *dynamic.Message
	field *schema.Field
}

// Len returns the number of entries in the map.
func (m Map) Len() int {
	return m.msg.Map(m.field).Len()
}

// Has returns whether the map has an entry for k.
func (m Map) Has(k Value) bool {
	return m.msg.Map(m.field).Get(m.key(k)) != nil
}

// Get returns the value for k, or the zero [Value] if there is none.
func (m Map) Get(k Value) Value {
	e := m.msg.Map(m.field).Get(m.key(k))
	if e == nil {
		return Value{}
	}
	return getField(e, m.field.Value)
}

// Set sets the value for k.
func (m Map) Set(k, v Value) {
	e := m.msg.NewEntry(m.field)
	setField(e, m.field.Key, k)
	setField(e, m.field.Value, v)
	m.msg.InsertEntry(m.field, e)
}

// Mutable returns the message value for k, inserting an empty message first if
// there is no entry for k. Panics if this is not a map of messages.
func (m Map) Mutable(k Value) *Message {
	if !m.field.Value.IsMessage() {
		panic(fmt.Sprintf("hyperwire: Mutable called on %v, which does not have message values", m.field))
	}

	e := m.msg.Map(m.field).Get(m.key(k))
	if e == nil {
		e = m.msg.NewEntry(m.field)
		setField(e, m.field.Key, k)
		m.msg.InsertEntry(m.field, e)
	}
	return wrapMessage(e.MutableMessage(m.field.Value))
}

// Delete removes the entry for k, if there is one.
func (m Map) Delete(k Value) {
	if mp := m.msg.Map(m.field); mp != nil {
		mp.Delete(m.key(k))
	}
}

// Range calls yield on every entry in insertion order, until it returns false.
func (m Map) Range(yield func(k, v Value) bool) {
	for _, e := range m.msg.Map(m.field).All() {
		if !yield(getField(e, m.field.Key), getField(e, m.field.Value)) {
			return
		}
	}
}

func (m Map) key(k Value) dynamic.MapKey {
	checkKind(m.field.Key, k)
	if m.field.Key.IsBytes() {
		return dynamic.MapKey{Str: string(k.bytes)}
	}
	return dynamic.MapKey{Bits: k.bits}
}
