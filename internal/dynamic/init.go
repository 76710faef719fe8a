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
	"strconv"

	"buf.build/go/hyperwire/internal/schema"
)

// IsInitialized returns whether every required field in m, and in every
// message reachable from it, is populated.
func (m *Message) IsInitialized() bool {
	if !m.typ.HasRequired {
		return true
	}
	for _, f := range m.typ.Required {
		if !m.Has(f) {
			return false
		}
	}

	ok := true
	m.rangeChildren(func(_ *schema.Field, _ string, child *Message) bool {
		ok = child.IsInitialized()
		return ok
	})
	return ok
}

// FindMissing returns the paths of every unpopulated required field, such as
// "child.x", "children[1].x", or `by_name["k"].x`.
func (m *Message) FindMissing() []string {
	var out []string
	m.findMissing("", &out)
	return out
}

func (m *Message) findMissing(prefix string, out *[]string) {
	if !m.typ.HasRequired {
		return
	}
	for _, f := range m.typ.Required {
		if !m.Has(f) {
			*out = append(*out, prefix+f.Name())
		}
	}
	m.rangeChildren(func(f *schema.Field, sub string, child *Message) bool {
		child.findMissing(prefix+f.Name()+sub+".", out)
		return true
	})
}

// rangeChildren calls yield for every populated sub-message of m whose type
// may contain required fields. sub is the index suffix for repeated and map
// fields.
func (m *Message) rangeChildren(yield func(f *schema.Field, sub string, child *Message) bool) {
	for _, f := range m.typ.Fields {
		if f.Message == nil || !f.Message.HasRequired || !m.Has(f) {
			continue
		}
		s := &m.slots[f.Index]
		switch {
		case f.Map:
			if !f.Value.IsMessage() {
				continue
			}
			for k, e := range s.Map.All() {
				v := e.Message(f.Value)
				if v != nil && !yield(f, "["+formatKey(f.Key, k)+"]", v) {
					return
				}
			}
		case f.Repeated:
			for i, v := range s.List.Msgs {
				if !yield(f, "["+strconv.Itoa(i)+"]", v) {
					return
				}
			}
		default:
			if !yield(f, "", s.Msg) {
				return
			}
		}
	}
}

func formatKey(f *schema.Field, k MapKey) string {
	if f.IsBytes() {
		return strconv.Quote(k.Str)
	}
	return fmt.Sprint(schema.ValueOf(f.Kind, k.Bits).Interface())
}
