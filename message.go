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
	"io"

	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/decode"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/encode"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// Message is a dynamic message value constructed with this package.
type Message struct {
	impl dynamic.Message
}

// New allocates a new empty [Message] of the given type on a, which may be
// nil.
func New(ty *MessageType, a *Arena) *Message {
	return ty.New(a)
}

// Type returns this message's type.
func (m *Message) Type() *MessageType {
	return wrapType(m.impl.Type())
}

// Descriptor returns this message's descriptor.
func (m *Message) Descriptor() protoreflect.MessageDescriptor {
	return m.impl.Type().Desc
}

// Arena returns the arena this message is allocated on. Returns nil for
// messages on the heap.
func (m *Message) Arena() *Arena {
	return wrapArena(m.impl.Arena())
}

// Unmarshal parses data into this message, replacing its contents unless
// [WithMerge] is set.
//
// The returned error is a [*ParseError] for malformed input, or a
// [*RequiredNotSetError] if the message is missing required fields and
// [WithAllowPartial] is not set. On error, the message holds whatever was
// parsed before the error was found.
func (m *Message) Unmarshal(data []byte, options ...UnmarshalOption) error {
	return m.UnmarshalFrom(decode.Bytes(data), options...)
}

// UnmarshalFrom is like [Message.Unmarshal], but parses input pulled from a
// [Source] one chunk at a time.
//
// Errors returned by src other than io.EOF are wrapped and returned.
func (m *Message) UnmarshalFrom(src Source, options ...UnmarshalOption) error {
	opts := newUnmarshalOptions(options)
	if !opts.merge {
		m.impl.Clear()
	}
	return decode.Unmarshal(&m.impl, src, opts.Options)
}

// Marshal serializes this message.
//
// Unless [WithPartialMarshal] is set, this returns a [*RequiredNotSetError]
// if the message is missing required fields.
func (m *Message) Marshal(options ...MarshalOption) ([]byte, error) {
	opts := newMarshalOptions(options)
	if !opts.allowPartial {
		if err := m.CheckInitialized(); err != nil {
			return opts.buf, err
		}
	}
	return encode.Marshal(opts.buf, &m.impl)
}

// ByteSize computes the encoded size of this message, caching the size of it
// and every sub-message for use by [Message.SerializeWithCachedSizes].
func (m *Message) ByteSize() int {
	return encode.Size(&m.impl)
}

// SerializeWithCachedSizes writes this message to w using the sizes cached by
// the last call to [Message.ByteSize], and returns the number of bytes
// written.
//
// If the message has changed since sizes were cached, this returns a
// [*SizeMismatchError] and writes nothing. Errors from w are wrapped and
// returned.
func (m *Message) SerializeWithCachedSizes(w io.Writer) (int, error) {
	return encode.WriteTo(w, &m.impl)
}

// MergeFrom merges src into this message.
//
// Singular fields set in src overwrite those in m, repeated fields are
// appended, sub-messages are merged recursively, map entries are overwritten
// key by key, and unknown fields are appended.
//
// Panics if src is not of the same type as m.
func (m *Message) MergeFrom(src *Message) {
	m.impl.MergeFrom(&src.impl)
}

// Clone returns a deep copy of this message allocated on a, which may be nil.
func (m *Message) Clone(a *Arena) *Message {
	c := m.Type().New(a)
	c.MergeFrom(m)
	return c
}

// Clear resets this message to the empty message.
//
// Memory used by the message is not returned to its arena until the arena is
// reset.
func (m *Message) Clear() {
	m.impl.Clear()
}

// IsInitialized returns whether every required field in this message, and in
// every sub-message, is set.
func (m *Message) IsInitialized() bool {
	return m.impl.IsInitialized()
}

// CheckInitialized returns a [*RequiredNotSetError] listing every missing
// required field, or nil if there are none.
func (m *Message) CheckInitialized() error {
	if m.impl.IsInitialized() {
		return nil
	}
	return &RequiredNotSetError{Type: m.impl.Type().Name(), Missing: m.impl.FindMissing()}
}

// Format implements [fmt.Formatter].
func (m *Message) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, fmt.FormatString(f, verb), &m.impl)
}

// wrapMessage wraps an internal Message pointer.
func wrapMessage(m *dynamic.Message) *Message {
	return xunsafe.Cast[Message](m)
}
