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
	"iter"
	"slices"

	"buf.build/go/hyperwire/internal/schema"
)

// MapKey is the hashable form of a map key.
type MapKey struct {
	Bits uint64
	Str  string
}

// Map is the storage for a map field: a list of entry messages in insertion
// order, plus an index from key to position.
type Map struct {
	key, value *schema.Field
	entries    []*Message
	index      map[MapKey]int
}

func newMap(f *schema.Field) *Map {
	return &Map{key: f.Key, value: f.Value, index: make(map[MapKey]int)}
}

// Len returns the number of entries. A nil map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// KeyOf returns the key of an entry.
func (m *Map) KeyOf(entry *Message) MapKey {
	if m.key.IsBytes() {
		return MapKey{Str: string(entry.Bytes(m.key))}
	}
	return MapKey{Bits: entry.Bits(m.key)}
}

// Get returns the entry with the given key, or nil.
func (m *Map) Get(k MapKey) *Message {
	if m == nil {
		return nil
	}
	i, ok := m.index[k]
	if !ok {
		return nil
	}
	return m.entries[i]
}

// Delete removes the entry with the given key, if present.
func (m *Map) Delete(k MapKey) bool {
	i, ok := m.index[k]
	if !ok {
		return false
	}
	delete(m.index, k)
	m.entries = slices.Delete(m.entries, i, i+1)
	for j := i; j < len(m.entries); j++ {
		m.index[m.KeyOf(m.entries[j])] = j
	}
	return true
}

// All yields every entry in insertion order. A replaced entry keeps the
// position of the entry it replaced.
func (m *Map) All() iter.Seq2[MapKey, *Message] {
	return func(yield func(MapKey, *Message) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(m.KeyOf(e), e) {
				return
			}
		}
	}
}

// Key returns the key field of this map's entries.
func (m *Map) Key() *schema.Field { return m.key }

// Value returns the value field of this map's entries.
func (m *Map) Value() *schema.Field { return m.value }

func (m *Map) insert(entry *Message) {
	k := m.KeyOf(entry)
	if i, ok := m.index[k]; ok {
		m.entries[i] = entry
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, entry)
}
