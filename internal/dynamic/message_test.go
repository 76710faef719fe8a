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

package dynamic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/testdata"
)

func compile(t *testing.T, name protoreflect.FullName) *schema.Type {
	t.Helper()
	return schema.Compile(testdata.Message(t, name), schema.Options{})
}

func TestPresence(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.Scalars")
	m := dynamic.New(ty, arena.NewArena(arena.Options{}))

	i32 := ty.ByName("i32")
	assert.False(t, m.Has(i32))
	m.SetBits(i32, 0)
	assert.True(t, m.Has(i32), "explicit presence tracks zero values")
	m.ClearField(i32)
	assert.False(t, m.Has(i32))

	def := ty.ByName("with_default")
	assert.Equal(t, uint64(42), m.Bits(def))
	m.SetBits(def, 7)
	assert.Equal(t, uint64(7), m.Bits(def))

	str := ty.ByName("str_default")
	assert.Equal(t, []byte("hello"), m.Bytes(str))
	m.SetBytes(str, nil)
	assert.True(t, m.Has(str))
	assert.Empty(t, m.Bytes(str))

	m.Clear()
	assert.False(t, m.Has(def))
	assert.Equal(t, uint64(42), m.Bits(def))

	other := compile(t, "hyperwire.test.Small")
	assert.Panics(t, func() { m.Has(other.ByName("i32")) })
}

func TestImplicit(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test3.Scalars")
	m := dynamic.New(ty, nil)

	i32 := ty.ByName("i32")
	m.SetBits(i32, 0)
	assert.False(t, m.Has(i32))
	m.SetBits(i32, 5)
	assert.True(t, m.Has(i32))

	opt := ty.ByName("opt")
	m.SetBits(opt, 0)
	assert.True(t, m.Has(opt))

	str := ty.ByName("str")
	m.SetBytes(str, []byte{})
	assert.False(t, m.Has(str))
}

func TestOneof(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.Oneof")
	m := dynamic.New(ty, arena.NewArena(arena.Options{}))
	o := ty.Oneofs[0]
	a, b, c := ty.ByNumber(1), ty.ByNumber(2), ty.ByNumber(3)

	assert.Nil(t, m.WhichOneof(o))

	m.SetBits(a, 1)
	assert.Same(t, a, m.WhichOneof(o))

	m.SetBytes(b, []byte("x"))
	assert.Same(t, b, m.WhichOneof(o))
	assert.False(t, m.Has(a))
	assert.Equal(t, uint64(0), m.Bits(a))

	child := m.MutableMessage(c)
	assert.Same(t, child, m.MutableMessage(c))
	assert.Same(t, c, m.WhichOneof(o))
	assert.Empty(t, m.Slot(b).Bytes, "previous member is cleared")

	m.ClearField(a)
	assert.Same(t, c, m.WhichOneof(o), "clearing an inactive member is a no-op")
	m.ClearField(c)
	assert.Nil(t, m.WhichOneof(o))
}

func TestMap(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.Maps")
	m := dynamic.New(ty, arena.NewArena(arena.Options{}))
	f := ty.ByName("int_str")

	put := func(k int32, v string) {
		e := m.NewEntry(f)
		e.SetBits(f.Key, uint64(k))
		e.SetBytes(f.Value, []byte(v))
		m.InsertEntry(f, e)
	}
	put(3, "three")
	put(1, "one")
	put(3, "drei")
	put(-2, "minus two")

	mp := m.Map(f)
	require.Equal(t, 3, mp.Len())

	var keys []int32
	var values []string
	for k, e := range mp.All() {
		keys = append(keys, int32(k.Bits))
		values = append(values, string(e.Bytes(f.Value)))
	}
	assert.Equal(t, []int32{3, 1, -2}, keys)
	assert.Equal(t, []string{"drei", "one", "minus two"}, values)

	assert.True(t, mp.Delete(dynamic.MapKey{Bits: 3}))
	assert.False(t, mp.Delete(dynamic.MapKey{Bits: 3}))
	assert.Nil(t, mp.Get(dynamic.MapKey{Bits: 3}))
	neg := mp.Get(dynamic.MapKey{Bits: 1<<64 - 2})
	require.NotNil(t, neg)
	assert.Equal(t, "minus two", string(neg.Bytes(f.Value)))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.Nested")
	a1, a2 := arena.NewArena(arena.Options{}), arena.NewArena(arena.Options{})
	dst, src := dynamic.New(ty, a1), dynamic.New(ty, a2)

	value, child, children := ty.ByName("value"), ty.ByName("child"), ty.ByName("children")

	dst.SetBits(value, 1)
	dst.MutableMessage(child).SetBits(value, 10)
	dst.AppendMessage(children).SetBits(value, 100)

	src.SetBits(value, 2)
	src.MutableMessage(child).MutableMessage(child).SetBits(value, 20)
	src.AppendMessage(children).SetBits(value, 200)
	src.MutableUnknown().AddVarint(99, 5)

	dst.MergeFrom(src)
	assert.Equal(t, uint64(2), dst.Bits(value))
	assert.Equal(t, uint64(10), dst.Message(child).Bits(value))
	assert.Equal(t, uint64(20), dst.Message(child).Message(child).Bits(value))
	require.Equal(t, 2, dst.List(children).Len())
	assert.Equal(t, uint64(200), dst.List(children).Msgs[1].Bits(value))
	assert.NotSame(t, src.List(children).Msgs[0], dst.List(children).Msgs[1])
	assert.Same(t, a1, dst.List(children).Msgs[1].Arena())
	assert.Equal(t, 1, dst.Unknown().Len())

	dst.MergeFrom(dst)
	assert.Equal(t, 4, dst.List(children).Len())
	assert.Equal(t, 2, dst.Unknown().Len())

	assert.Panics(t, func() { dst.MergeFrom(dynamic.New(compile(t, "hyperwire.test.Small"), nil)) })
}

func TestMergeMap(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.Maps")
	f := ty.ByName("bool_i64")
	put := func(m *dynamic.Message, k bool, v int64) {
		e := m.NewEntry(f)
		if k {
			e.SetBits(f.Key, 1)
		}
		e.SetBits(f.Value, uint64(v))
		m.InsertEntry(f, e)
	}

	dst, src := dynamic.New(ty, nil), dynamic.New(ty, nil)
	put(dst, true, 1)
	put(dst, false, 2)
	put(src, true, 3)

	dst.MergeFrom(src)
	mp := dst.Map(f)
	require.Equal(t, 2, mp.Len())
	assert.Equal(t, uint64(3), mp.Get(dynamic.MapKey{Bits: 1}).Bits(f.Value))
	assert.Equal(t, uint64(2), mp.Get(dynamic.MapKey{Bits: 0}).Bits(f.Value))
}

func TestInitialized(t *testing.T) {
	t.Parallel()

	ty := compile(t, "hyperwire.test.HasRequired")
	m := dynamic.New(ty, nil)
	assert.True(t, m.IsInitialized())

	req := ty.ByName("req")
	x := req.Message.ByName("x")

	r := m.MutableMessage(req)
	assert.False(t, m.IsInitialized())
	assert.Equal(t, []string{"req.x"}, m.FindMissing())

	r.SetBits(x, 0)
	r.AppendMessage(req.Message.ByName("children"))
	r.MutableMessage(req.Message.ByName("child")).SetBits(x, 1)
	assert.Equal(t, []string{"req.children[0].x"}, m.FindMissing())

	byName := ty.ByName("by_name")
	e := m.NewEntry(byName)
	e.SetBytes(byName.Key, []byte("k"))
	e.MutableMessage(byName.Value)
	m.InsertEntry(byName, e)
	assert.Equal(t, []string{"req.children[0].x", `by_name["k"].x`}, m.FindMissing())

	r.ClearField(req.Message.ByName("children"))
	e.Message(byName.Value).SetBits(x, 3)
	assert.True(t, m.IsInitialized())
	assert.Empty(t, m.FindMissing())
}
