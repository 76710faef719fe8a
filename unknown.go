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
	"iter"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/emptypb"

	"buf.build/go/hyperwire/internal/unknown"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// UnknownFields is an ordered list of fields whose numbers a message's type
// does not know about.
//
// Unknown fields are kept in the order they were parsed in, and are
// serialized after all known fields.
type UnknownFields struct {
	impl unknown.Set
}

// UnknownField is a single unknown field. Its accessors panic if called for
// the wrong wire type.
type UnknownField = unknown.Field

var emptyType = sync.OnceValue(func() *MessageType { return CompileFor[*emptypb.Empty]() })

// ParseUnknown parses data as a standalone list of unknown fields, allocated
// on a, which may be nil.
func ParseUnknown(data []byte, a *Arena, options ...UnmarshalOption) (*UnknownFields, error) {
	m := emptyType().New(a)
	if err := m.Unmarshal(data, options...); err != nil {
		return nil, err
	}
	return m.Unknown(), nil
}

// Len returns the number of fields.
func (u *UnknownFields) Len() int { return u.impl.Len() }

// IsEmpty returns whether there are no fields.
func (u *UnknownFields) IsEmpty() bool { return u.impl.IsEmpty() }

// Field returns the ith field.
func (u *UnknownFields) Field(i int) UnknownField { return u.impl.Field(i) }

// All iterates over the fields in order.
func (u *UnknownFields) All() iter.Seq2[int, UnknownField] { return u.impl.All() }

// AddVarint appends a varint field.
func (u *UnknownFields) AddVarint(n protoreflect.FieldNumber, v uint64) {
	u.impl.AddVarint(n, v)
}

// AddFixed32 appends a fixed32 field.
func (u *UnknownFields) AddFixed32(n protoreflect.FieldNumber, v uint32) {
	u.impl.AddFixed32(n, v)
}

// AddFixed64 appends a fixed64 field.
func (u *UnknownFields) AddFixed64(n protoreflect.FieldNumber, v uint64) {
	u.impl.AddFixed64(n, v)
}

// AddLengthDelimited appends a copy of data as a length-delimited field, and
// returns the copy.
func (u *UnknownFields) AddLengthDelimited(n protoreflect.FieldNumber, data []byte) []byte {
	return u.impl.AddLengthDelimited(n, data)
}

// AddGroup appends an empty group and returns its contents.
func (u *UnknownFields) AddGroup(n protoreflect.FieldNumber) *UnknownFields {
	return wrapUnknown(u.impl.AddGroup(n))
}

// AddField appends a deep copy of f.
func (u *UnknownFields) AddField(f UnknownField) { u.impl.AddField(f) }

// MergeFrom appends deep copies of every field in that.
func (u *UnknownFields) MergeFrom(that *UnknownFields) { u.impl.MergeFrom(&that.impl) }

// DeleteByNumber removes every field with number n.
func (u *UnknownFields) DeleteByNumber(n protoreflect.FieldNumber) { u.impl.DeleteByNumber(n) }

// DeleteSubrange removes count fields starting at start.
func (u *UnknownFields) DeleteSubrange(start, count int) { u.impl.DeleteSubrange(start, count) }

// Clear removes every field.
func (u *UnknownFields) Clear() { u.impl.Clear() }

// View returns a view of count fields starting at start. Modifying the view
// does not affect u.
func (u *UnknownFields) View(start, count int) *UnknownFields {
	return wrapUnknown(u.impl.View(start, count))
}

// IsView returns whether u is a view of another set of fields.
func (u *UnknownFields) IsView() bool { return u.impl.IsView() }

// Size returns the encoded size of the fields.
func (u *UnknownFields) Size() int { return u.impl.Size() }

// Append appends the wire encoding of the fields to b.
func (u *UnknownFields) Append(b []byte) []byte { return u.impl.Append(b) }

// wrapUnknown wraps an internal Set pointer.
func wrapUnknown(s *unknown.Set) *UnknownFields {
	return xunsafe.Cast[UnknownFields](s)
}
