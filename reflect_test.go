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

package hyperwire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire"
	"buf.build/go/hyperwire/internal/testdata"
)

func TestScalarFields(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Scalars")
	fields := md.Fields()
	m := compile(t, md).New(hyperwire.NewArena())

	// Defaults.
	assert.Equal(t, int32(42), m.Get(fields.ByName("with_default")).Int32())
	assert.Equal(t, "hello", m.Get(fields.ByName("str_default")).String())
	assert.False(t, m.Has(fields.ByName("with_default")))

	tests := []struct {
		name protoreflect.Name
		v    hyperwire.Value
	}{
		{"i32", hyperwire.ValueOfInt32(-5)},
		{"i64", hyperwire.ValueOfInt64(-1 << 40)},
		{"u32", hyperwire.ValueOfUint32(1<<32 - 1)},
		{"u64", hyperwire.ValueOfUint64(1<<64 - 1)},
		{"s32", hyperwire.ValueOfInt32(-7)},
		{"s64", hyperwire.ValueOfInt64(-8)},
		{"f32", hyperwire.ValueOfUint32(9)},
		{"sf64", hyperwire.ValueOfInt64(-10)},
		{"fl", hyperwire.ValueOfFloat32(1.5)},
		{"db", hyperwire.ValueOfFloat64(-2.25)},
		{"b", hyperwire.ValueOfBool(true)},
		{"str", hyperwire.ValueOfString("héllo")},
		{"byt", hyperwire.ValueOfBytes([]byte{0, 1})},
		{"color", hyperwire.ValueOfEnum(2)},
	}
	for _, tt := range tests {
		fd := fields.ByName(tt.name)
		m.Set(fd, tt.v)
		assert.True(t, m.Has(fd), tt.name)
		assert.Equal(t, tt.v.Interface(), m.Get(fd).Interface(), tt.name)
	}

	// Round trip through the wire format.
	data, err := m.Marshal()
	require.NoError(t, err)
	m2 := m.Type().New(nil)
	require.NoError(t, m2.Unmarshal(data))
	for _, tt := range tests {
		assert.Equal(t, tt.v.Interface(), m2.Get(fields.ByName(tt.name)).Interface(), tt.name)
	}

	// Range is in field number order.
	var seen []protoreflect.FieldNumber
	m2.Range(func(fd protoreflect.FieldDescriptor, _ hyperwire.Value) bool {
		seen = append(seen, fd.Number())
		return true
	})
	assert.Equal(t, []protoreflect.FieldNumber{1, 2, 3, 4, 5, 6, 7, 10, 11, 12, 13, 14, 15, 16}, seen)

	m2.ClearField(fields.ByName("i32"))
	assert.False(t, m2.Has(fields.ByName("i32")))
	assert.Equal(t, int32(0), m2.Get(fields.ByName("i32")).Int32())

	assert.Panics(t, func() { m.Set(fields.ByName("i32"), hyperwire.ValueOfInt64(1)) })
	assert.Panics(t, func() { m.Get(fields.ByName("i32")).Bool() })
	other := testdata.Message(t, "hyperwire.test.Small").Fields().ByName("i32")
	assert.Panics(t, func() { m.Has(other) })
}

func TestStringsAreCopied(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Scalars")
	m := compile(t, md).New(hyperwire.NewArena())
	fd := md.Fields().ByName("byt")

	b := []byte("abc")
	m.Set(fd, hyperwire.ValueOfBytes(b))
	b[0] = 'x'
	assert.Equal(t, []byte("abc"), m.Get(fd).Bytes())
}

func TestImplicitPresence(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test3.Scalars")
	fields := md.Fields()
	m := compile(t, md).New(nil)

	m.Set(fields.ByName("i32"), hyperwire.ValueOfInt32(0))
	assert.False(t, m.Has(fields.ByName("i32")))
	m.Set(fields.ByName("opt"), hyperwire.ValueOfInt32(0))
	assert.True(t, m.Has(fields.ByName("opt")))
	assert.Equal(t, fields.ByName("opt"), m.WhichOneof(md.Oneofs().ByName("_opt")))

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x38, 0x00}, data)
}

func TestOneofFields(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Oneof")
	fields := md.Fields()
	od := md.Oneofs().ByName("kind")
	m := compile(t, md).New(hyperwire.NewArena())

	assert.Nil(t, m.WhichOneof(od))
	m.Set(fields.ByName("a"), hyperwire.ValueOfInt32(1))
	assert.Equal(t, fields.ByName("a"), m.WhichOneof(od))

	c := m.Mutable(fields.ByName("c"))
	c.Set(c.Descriptor().Fields().ByName("value"), hyperwire.ValueOfInt32(5))
	assert.Equal(t, fields.ByName("c"), m.WhichOneof(od))
	assert.False(t, m.Has(fields.ByName("a")))
	assert.Same(t, c, m.Get(fields.ByName("c")).Message())

	m.ClearField(fields.ByName("c"))
	assert.Nil(t, m.WhichOneof(od))
	assert.Nil(t, m.Get(fields.ByName("c")).Message())
}

func TestListFields(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Repeated")
	fields := md.Fields()
	m := compile(t, md).New(hyperwire.NewArena())

	ints := m.List(fields.ByName("i32"))
	assert.Equal(t, 0, ints.Len())
	for i := range int32(4) {
		ints.Append(hyperwire.ValueOfInt32(i * 10))
	}
	ints.Set(0, hyperwire.ValueOfInt32(127))
	ints.Truncate(3)
	assert.Equal(t, 3, ints.Len())
	assert.Equal(t, int32(127), ints.Get(0).Int32())
	assert.Equal(t, int32(20), ints.Get(2).Int32())

	strs := m.Get(fields.ByName("str")).List()
	strs.Append(hyperwire.ValueOfString("a"))
	strs.Append(hyperwire.ValueOfString(""))
	assert.Equal(t, "", strs.Get(1).String())

	msgs := m.List(fields.ByName("msg"))
	e := msgs.AppendMutable()
	e.Set(e.Descriptor().Fields().ByName("i32"), hyperwire.ValueOfInt32(7))
	assert.Equal(t, 1, msgs.Len())
	assert.Same(t, e, msgs.Get(0).Message())

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x08, 0x7f, 0x08, 0x0a, 0x08, 0x14, // Unpacked i32.
		0x2a, 0x01, 'a', 0x2a, 0x00,
		0x52, 0x02, 0x08, 0x07,
	}, data)

	assert.Panics(t, func() { m.Set(fields.ByName("i32"), hyperwire.ValueOfInt32(1)) })
	assert.Panics(t, func() { m.List(fields.ByName("i32")).Append(hyperwire.ValueOfString("x")) })
}

func TestMapFields(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Maps")
	fields := md.Fields()
	m := compile(t, md).New(hyperwire.NewArena())

	ints := m.Map(fields.ByName("int_str"))
	ints.Set(hyperwire.ValueOfInt32(2), hyperwire.ValueOfString("two"))
	ints.Set(hyperwire.ValueOfInt32(1), hyperwire.ValueOfString("one"))
	ints.Set(hyperwire.ValueOfInt32(2), hyperwire.ValueOfString("deux"))
	assert.Equal(t, 2, ints.Len())
	assert.True(t, ints.Has(hyperwire.ValueOfInt32(1)))
	assert.False(t, ints.Get(hyperwire.ValueOfInt32(3)).IsValid())

	var keys []int32
	var values []string
	ints.Range(func(k, v hyperwire.Value) bool {
		keys = append(keys, k.Int32())
		values = append(values, v.String())
		return true
	})
	assert.Equal(t, []int32{2, 1}, keys)
	assert.Equal(t, []string{"deux", "one"}, values)

	ints.Delete(hyperwire.ValueOfInt32(2))
	assert.Equal(t, 1, ints.Len())
	assert.Equal(t, "one", ints.Get(hyperwire.ValueOfInt32(1)).String())

	msgs := m.Get(fields.ByName("str_msg")).Map()
	v := msgs.Mutable(hyperwire.ValueOfString("k"))
	v.Set(v.Descriptor().Fields().ByName("value"), hyperwire.ValueOfInt32(3))
	assert.Same(t, v, msgs.Mutable(hyperwire.ValueOfString("k")))
	assert.Same(t, v, msgs.Get(hyperwire.ValueOfString("k")).Message())

	assert.Panics(t, func() { ints.Mutable(hyperwire.ValueOfInt32(1)) })
	assert.Panics(t, func() { ints.Get(hyperwire.ValueOfString("1")) })

	data, err := m.Marshal()
	require.NoError(t, err)
	got := oracle(t, md, data)
	assert.Equal(t, 1, got.Get(fields.ByName("int_str")).Map().Len())
	assert.Equal(t, 1, got.Get(fields.ByName("str_msg")).Map().Len())
}

func TestMergeAndClone(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Nested")
	fields := md.Fields()
	ty := compile(t, md)

	src := ty.New(hyperwire.NewArena())
	require.NoError(t, src.Unmarshal([]byte{
		0x10, 0x01, // value: 1
		0x0a, 0x02, 0x10, 0x02, // child { value: 2 }
		0x1a, 0x00, // children {}
		0xa0, 0x06, 0x07, // 100: 7
	}))

	dst := ty.New(nil)
	require.NoError(t, dst.Unmarshal([]byte{0x10, 0x05, 0x0a, 0x02, 0x0a, 0x00, 0x1a, 0x00}))
	dst.MergeFrom(src)

	assert.Equal(t, int32(1), dst.Get(fields.ByName("value")).Int32())
	child := dst.Get(fields.ByName("child")).Message()
	assert.Equal(t, int32(2), child.Get(fields.ByName("value")).Int32())
	assert.True(t, child.Has(fields.ByName("child")))
	assert.Equal(t, 2, dst.List(fields.ByName("children")).Len())
	assert.Equal(t, 1, dst.Unknown().Len())

	clone := src.Clone(hyperwire.NewArena())
	want, err := src.Marshal()
	require.NoError(t, err)
	got, err := clone.Marshal()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Setting a message from another arena copies it.
	other := ty.New(hyperwire.NewArena())
	other.Set(fields.ByName("child"), hyperwire.ValueOfMessage(src))
	assert.NotSame(t, src, other.Get(fields.ByName("child")).Message())

	assert.Panics(t, func() { dst.MergeFrom(compile(t, testdata.Message(t, "hyperwire.test.Small")).New(nil)) })
}

func TestRequiredFields(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.HasRequired")
	fields := md.Fields()
	m := compile(t, md).New(nil)
	require.NoError(t, m.CheckInitialized())

	req := m.Mutable(fields.ByName("req"))
	m.Map(fields.ByName("by_name")).Mutable(hyperwire.ValueOfString("k"))
	assert.False(t, m.IsInitialized())

	_, err := m.Marshal()
	var missing *hyperwire.RequiredNotSetError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"req.x", `by_name["k"].x`}, missing.Missing)

	_, err = m.Marshal(hyperwire.WithPartialMarshal(true))
	require.NoError(t, err)

	req.Set(req.Descriptor().Fields().ByName("x"), hyperwire.ValueOfInt32(0))
	assert.Equal(t, []string{`by_name["k"].x`}, m.CheckInitialized().(*hyperwire.RequiredNotSetError).Missing) //nolint:errcheck
}

func TestUnknownFields(t *testing.T) {
	t.Parallel()

	u, err := hyperwire.ParseUnknown([]byte{0x08, 0x01, 0x13, 0x18, 0x02, 0x14, 0x2a, 0x01, 'x'}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, u.Len())
	assert.Equal(t, uint64(1), u.Field(0).Varint())
	assert.Equal(t, uint64(2), u.Field(1).Group().Field(0).Varint())
	assert.Equal(t, []byte("x"), u.Field(2).LengthDelimited())

	view := u.View(1, 2)
	view.DeleteByNumber(5)
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, 3, u.Len())

	md := testdata.Message(t, "hyperwire.test.Small")
	m := compile(t, md).New(hyperwire.NewArena())
	assert.False(t, m.HasUnknown())
	m.Unknown().AddFixed32(0, 7)
	assert.True(t, m.HasUnknown())
	m.Unknown().MergeFrom(u)
	m.Unknown().DeleteSubrange(0, 2)
	data, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x13, 0x18, 0x02, 0x14, 0x2a, 0x01, 'x'}, data)

	_, err = hyperwire.ParseUnknown([]byte{0x0c}, nil)
	require.ErrorIs(t, err, hyperwire.ErrEndGroup)
}

func TestSizeMismatch(t *testing.T) {
	t.Parallel()

	md := testdata.Message(t, "hyperwire.test.Nested")
	fields := md.Fields()
	m := compile(t, md).New(hyperwire.NewArena())
	child := m.Mutable(fields.ByName("child"))

	m.ByteSize()
	child.Set(fields.ByName("value"), hyperwire.ValueOfInt32(1))

	var buf writer
	_, err := m.SerializeWithCachedSizes(&buf)
	var mismatch *hyperwire.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Empty(t, buf)

	m.ByteSize()
	n, err := m.SerializeWithCachedSizes(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, writer{0x0a, 0x02, 0x10, 0x01}, buf)
}

type writer []byte

func (w *writer) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
