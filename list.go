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
	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
)

// List is a view of a repeated field of a [Message].
type List struct {
	msg   *dynamic.Message
	field *schema.Field
}

// Len returns the number of elements in the list.
func (l List) Len() int {
	return l.msg.List(l.field).Len()
}

// Get returns the ith element. Panics if i is out of range.
func (l List) Get(i int) Value {
	list := l.msg.List(l.field)
	switch {
	case l.field.IsMessage():
		return ValueOfMessage(wrapMessage(list.Msgs[i]))
	case l.field.IsBytes():
		return scalarValue(l.field, 0, list.Bytes[i])
	default:
		return scalarValue(l.field, list.Bits[i], nil)
	}
}

// Set replaces the ith element. Panics if i is out of range.
func (l List) Set(i int, v Value) {
	checkKind(l.field, v)
	list := l.msg.MutableList(l.field)
	switch {
	case l.field.IsMessage():
		list.Msgs[i] = adopt(l.msg, l.field, v.Message())
	case l.field.IsBytes():
		list.Bytes[i] = arena.Bytes(l.msg.Arena(), v.bytes)
	default:
		list.Bits[i] = v.bits
	}
}

// Append appends an element to the list.
func (l List) Append(v Value) {
	checkKind(l.field, v)
	switch {
	case l.field.IsMessage():
		list := l.msg.MutableList(l.field)
		list.Msgs = arena.Append(l.msg.Arena(), list.Msgs, adopt(l.msg, l.field, v.Message()))
	case l.field.IsBytes():
		l.msg.AppendBytes(l.field, arena.Bytes(l.msg.Arena(), v.bytes))
	default:
		l.msg.AppendBits(l.field, v.bits)
	}
}

// AppendMutable appends a new empty message to a list of messages and returns
// it.
func (l List) AppendMutable() *Message {
	return wrapMessage(l.msg.AppendMessage(l.field))
}

// Truncate shortens the list to n elements.
func (l List) Truncate(n int) {
	if list := l.msg.List(l.field); list != nil {
		list.Truncate(n)
	}
}
