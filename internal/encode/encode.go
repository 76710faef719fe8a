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

// Package encode contains the two-pass serializer.
//
// [Size] walks a message and records the encoded size of it and every
// sub-message. [Append] then writes the message using those recorded sizes
// for length prefixes, checking as it goes that each sub-message produced
// exactly as many bytes as were recorded for it.
package encode

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/debug"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/sync2"
	"buf.build/go/hyperwire/internal/wire"
	"buf.build/go/hyperwire/internal/zigzag"
)

// SizeMismatchError is returned when a message serializes to a different
// number of bytes than was computed for it, which happens when a message is
// mutated between the size and write passes.
type SizeMismatchError struct {
	Type      protoreflect.FullName
	Want, Got int
}

// Error implements [error].
func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("hyperwire: %s was modified concurrently during serialization: computed size %d, wrote %d bytes",
		e.Type, e.Want, e.Got)
}

// Marshal appends the encoding of m to b, running both passes.
func Marshal(b []byte, m *dynamic.Message) ([]byte, error) {
	Size(m)
	return AppendCached(b, m)
}

// AppendCached appends the encoding of m to b using the sizes recorded by the
// most recent call to [Size].
func AppendCached(b []byte, m *dynamic.Message) ([]byte, error) {
	want := m.CachedSize()
	if cap(b)-len(b) < want {
		grown := make([]byte, len(b), len(b)+want)
		copy(grown, b)
		b = grown
	}

	start := len(b)
	b, err := Append(b, m)
	if err != nil {
		return b, err
	}
	if got := len(b) - start; got != want {
		return b, &SizeMismatchError{Type: m.Type().Name(), Want: want, Got: got}
	}
	return b, nil
}

type buffer struct{ buf []byte }

var buffers = sync2.Pool[buffer]{
	Keep:  func(b *buffer) bool { return cap(b.buf) <= 64<<10 },
	Reset: func(b *buffer) { b.buf = b.buf[:0] },
}

// WriteTo writes the encoding of m to w using the sizes recorded by the most
// recent call to [Size].
func WriteTo(w io.Writer, m *dynamic.Message) (int, error) {
	buf, drop := buffers.Get()
	defer drop()

	var err error
	buf.buf, err = AppendCached(buf.buf, m)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(buf.buf)
	if err != nil {
		return n, fmt.Errorf("hyperwire: writing %s: %w", m.Type().Name(), err)
	}
	return n, nil
}

// Size computes the encoded size of m, recording it (and the size of every
// sub-message) for use by [Append].
func Size(m *dynamic.Message) int {
	n := 0
	for _, f := range m.Type().Sorted {
		if m.Has(f) {
			n += fieldSize(m, f)
		}
	}
	n += m.Unknown().Size()

	m.SetCachedSize(n)
	return n
}

func fieldSize(m *dynamic.Message, f *schema.Field) int {
	tag := wire.TagSize(f.Number)
	s := m.Slot(f)

	switch {
	case f.Map:
		n := 0
		for _, e := range s.Map.All() {
			n += tag + wire.SizeBytes(Size(e))
		}
		return n

	case f.Repeated && f.IsMessage():
		n := 0
		for _, v := range s.List.Msgs {
			n += messageSize(f, tag, v)
		}
		return n

	case f.Repeated && f.IsBytes():
		n := 0
		for _, v := range s.List.Bytes {
			n += tag + wire.SizeBytes(len(v))
		}
		return n

	case f.Repeated:
		n := packedSize(f, s.List.Bits)
		if f.Packed {
			return tag + wire.SizeBytes(n)
		}
		return n + tag*len(s.List.Bits)

	case f.IsMessage():
		return messageSize(f, tag, s.Msg)
	case f.IsBytes():
		return tag + wire.SizeBytes(len(s.Bytes))
	default:
		return tag + scalarSize(f, s.Bits)
	}
}

func messageSize(f *schema.Field, tag int, v *dynamic.Message) int {
	if f.Kind == protoreflect.GroupKind {
		return 2*tag + Size(v)
	}
	return tag + wire.SizeBytes(Size(v))
}

func packedSize(f *schema.Field, bits []uint64) int {
	switch f.WireType {
	case wire.Fixed32Type:
		return 4 * len(bits)
	case wire.Fixed64Type:
		return 8 * len(bits)
	}
	n := 0
	for _, v := range bits {
		n += scalarSize(f, v)
	}
	return n
}

func scalarSize(f *schema.Field, bits uint64) int {
	switch f.WireType {
	case wire.Fixed32Type:
		return 4
	case wire.Fixed64Type:
		return 8
	}
	return wire.SizeVarint(varint(f, bits))
}

// varint converts the storage representation of a varint field into the
// value written on the wire.
func varint(f *schema.Field, bits uint64) uint64 {
	switch f.Kind {
	case protoreflect.Sint32Kind:
		return uint64(zigzag.Encode32(int32(bits)))
	case protoreflect.Sint64Kind:
		return zigzag.Encode64(int64(bits))
	default:
		return bits
	}
}

// Append appends the encoding of m to b, using the sizes recorded by the most
// recent call to [Size] for length prefixes.
func Append(b []byte, m *dynamic.Message) ([]byte, error) {
	var err error
	for _, f := range m.Type().Sorted {
		if !m.Has(f) {
			continue
		}
		b, err = appendField(b, m, f)
		if err != nil {
			return b, err
		}
	}
	return m.Unknown().Append(b), nil
}

func appendField(b []byte, m *dynamic.Message, f *schema.Field) ([]byte, error) {
	s := m.Slot(f)
	var err error

	switch {
	case f.Map:
		for _, e := range s.Map.All() {
			b = wire.AppendTag(b, f.Number, wire.BytesType)
			b = wire.AppendVarint(b, uint64(e.CachedSize()))
			if b, err = appendNested(b, e); err != nil {
				return b, err
			}
		}

	case f.Repeated && f.IsMessage():
		for _, v := range s.List.Msgs {
			if b, err = appendMessage(b, f, v); err != nil {
				return b, err
			}
		}

	case f.Repeated && f.IsBytes():
		for _, v := range s.List.Bytes {
			b = wire.AppendTag(b, f.Number, wire.BytesType)
			b = wire.AppendBytes(b, v)
		}

	case f.Repeated && f.Packed:
		b = wire.AppendTag(b, f.Number, wire.BytesType)
		b = wire.AppendVarint(b, uint64(packedSize(f, s.List.Bits)))
		for _, v := range s.List.Bits {
			b = appendScalar(b, f, v)
		}

	case f.Repeated:
		for _, v := range s.List.Bits {
			b = wire.AppendTag(b, f.Number, f.WireType)
			b = appendScalar(b, f, v)
		}

	case f.IsMessage():
		return appendMessage(b, f, s.Msg)

	case f.IsBytes():
		b = wire.AppendTag(b, f.Number, wire.BytesType)
		b = wire.AppendBytes(b, s.Bytes)

	default:
		b = wire.AppendTag(b, f.Number, f.WireType)
		b = appendScalar(b, f, s.Bits)
	}
	return b, nil
}

func appendMessage(b []byte, f *schema.Field, v *dynamic.Message) ([]byte, error) {
	if f.Kind == protoreflect.GroupKind {
		b = wire.AppendTag(b, f.Number, wire.StartGroupType)
		b, err := appendNested(b, v)
		if err != nil {
			return b, err
		}
		return wire.AppendTag(b, f.Number, wire.EndGroupType), nil
	}

	b = wire.AppendTag(b, f.Number, wire.BytesType)
	b = wire.AppendVarint(b, uint64(v.CachedSize()))
	return appendNested(b, v)
}

// appendNested appends a sub-message and checks it against its cached size.
func appendNested(b []byte, v *dynamic.Message) ([]byte, error) {
	start := len(b)
	b, err := Append(b, v)
	if err != nil {
		return b, err
	}
	if got, want := len(b)-start, v.CachedSize(); got != want {
		debug.Log(nil, "mismatch", "%v: want %d, got %d", v, want, got)
		return b, &SizeMismatchError{Type: v.Type().Name(), Want: want, Got: got}
	}
	return b, nil
}

func appendScalar(b []byte, f *schema.Field, bits uint64) []byte {
	switch f.WireType {
	case wire.Fixed32Type:
		return wire.AppendFixed32(b, uint32(bits))
	case wire.Fixed64Type:
		return wire.AppendFixed64(b, bits)
	default:
		return wire.AppendVarint(b, varint(f, bits))
	}
}
