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

package dynamic

import (
	"fmt"

	"buf.build/go/hyperwire/internal/arena"
)

// MergeFrom merges src into m.
//
// Populated singular fields of src overwrite those of m, repeated fields are
// appended, sub-messages are merged recursively, and map entries replace
// entries with the same key. Everything copied is copied onto m's arena.
//
// Panics if src has a different type.
func (m *Message) MergeFrom(src *Message) {
	if src.typ != m.typ {
		panic(fmt.Sprintf("hyperwire: cannot merge %v into %v", src.typ, m.typ))
	}
	if m == src {
		src = src.clone()
	}

	for _, f := range m.typ.Fields {
		if !src.Has(f) {
			continue
		}
		s := &src.slots[f.Index]

		switch {
		case f.Map:
			for _, e := range s.Map.All() {
				entry := m.NewEntry(f)
				entry.MergeFrom(e)
				m.InsertEntry(f, entry)
			}

		case f.Repeated:
			l := m.MutableList(f)
			switch {
			case f.IsMessage():
				for _, v := range s.List.Msgs {
					m.AppendMessage(f).MergeFrom(v)
				}
			case f.IsBytes():
				for _, v := range s.List.Bytes {
					l.Bytes = arena.Append(m.arena, l.Bytes, arena.Bytes(m.arena, v))
				}
			default:
				l.Bits = arena.Append(m.arena, l.Bits, s.List.Bits...)
			}

		case f.IsMessage():
			m.MutableMessage(f).MergeFrom(s.Msg)
		case f.IsBytes():
			m.SetBytes(f, arena.Bytes(m.arena, s.Bytes))
		default:
			m.SetBits(f, s.Bits)
		}
	}

	if !src.unknown.IsEmpty() {
		m.MutableUnknown().MergeFrom(src.unknown)
	}
	m.size.Store(0)
}

// clone returns a deep copy of m on the same arena.
func (m *Message) clone() *Message {
	c := New(m.typ, m.arena)
	c.MergeFrom(m)
	return c
}
