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

package unknown_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/unknown"
	"buf.build/go/hyperwire/internal/wire"
)

func numbers(s *unknown.Set) []wire.Number {
	var out []wire.Number
	for _, f := range s.All() {
		out = append(out, f.Number())
	}
	return out
}

func withNumbers(a *arena.Arena, ns ...wire.Number) *unknown.Set {
	s := unknown.New(a)
	for _, n := range ns {
		s.AddVarint(n, uint64(n))
	}
	return s
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	for _, a := range []*arena.Arena{nil, arena.NewArena(arena.Options{})} {
		s := unknown.New(a)
		s.AddVarint(1, 150)
		s.AddFixed32(2, 0xdeadbeef)
		s.AddFixed64(3, 0x0123456789abcdef)
		s.AddLengthDelimited(4, []byte("hello"))
		g := s.AddGroup(5)
		g.AddVarint(6, 1)
		g.AddGroup(7).AddFixed32(8, 2)

		var want []byte
		want = protowire.AppendTag(want, 1, protowire.VarintType)
		want = protowire.AppendVarint(want, 150)
		want = protowire.AppendTag(want, 2, protowire.Fixed32Type)
		want = protowire.AppendFixed32(want, 0xdeadbeef)
		want = protowire.AppendTag(want, 3, protowire.Fixed64Type)
		want = protowire.AppendFixed64(want, 0x0123456789abcdef)
		want = protowire.AppendTag(want, 4, protowire.BytesType)
		want = protowire.AppendBytes(want, []byte("hello"))
		want = protowire.AppendTag(want, 5, protowire.StartGroupType)
		want = protowire.AppendTag(want, 6, protowire.VarintType)
		want = protowire.AppendVarint(want, 1)
		want = protowire.AppendTag(want, 7, protowire.StartGroupType)
		want = protowire.AppendTag(want, 8, protowire.Fixed32Type)
		want = protowire.AppendFixed32(want, 2)
		want = protowire.AppendTag(want, 7, protowire.EndGroupType)
		want = protowire.AppendTag(want, 5, protowire.EndGroupType)

		assert.Equal(t, want, s.Append(nil))
		assert.Equal(t, len(want), s.Size())
		assert.Equal(t, 5, s.Len())

		assert.Equal(t, uint64(150), s.Field(0).Varint())
		assert.Equal(t, uint32(0xdeadbeef), s.Field(1).Fixed32())
		assert.Equal(t, uint64(0x0123456789abcdef), s.Field(2).Fixed64())
		assert.Equal(t, []byte("hello"), s.Field(3).LengthDelimited())
		assert.Equal(t, 2, s.Field(4).Group().Len())
		assert.Equal(t, wire.StartGroupType, s.Field(4).Type())

		assert.Panics(t, func() { s.Field(0).Fixed32() })
	}
}

func TestFieldNumberZero(t *testing.T) {
	t.Parallel()

	s := unknown.New(nil)
	s.AddFixed32(0, 1)
	assert.Equal(t, []byte{0x05, 0x01, 0x00, 0x00, 0x00}, s.Append(nil))
}

func TestLengthDelimitedHandle(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	s := unknown.New(nil)
	h := s.AddLengthDelimited(1, src)
	h[0] = 'x'
	src[1] = 'y'
	assert.Equal(t, []byte("xbc"), s.Field(0).LengthDelimited())
}

func TestMergeFrom(t *testing.T) {
	t.Parallel()

	a := arena.NewArena(arena.Options{})
	src := unknown.New(nil)
	src.AddVarint(1, 1)
	data := src.AddLengthDelimited(2, []byte("data"))
	src.AddGroup(3).AddVarint(4, 4)

	dst := unknown.New(a)
	dst.AddFixed64(9, 9)
	dst.MergeFrom(src)
	assert.Equal(t, []wire.Number{9, 1, 2, 3}, numbers(dst))

	// The merge is a deep copy.
	copy(data, "DATA")
	src.Field(2).Group().AddVarint(5, 5)
	assert.Equal(t, []byte("data"), dst.Field(2).LengthDelimited())
	assert.Equal(t, 1, dst.Field(3).Group().Len())

	// Appends rather than deduplicating.
	dst.MergeFrom(src)
	assert.Equal(t, []wire.Number{9, 1, 2, 3, 1, 2, 3}, numbers(dst))

	// Merging into itself doubles the fields.
	dst.MergeFrom(dst)
	assert.Equal(t, 14, dst.Len())

	// Merging an empty set is a no-op.
	dst.MergeFrom(unknown.New(nil))
	dst.MergeFrom(nil)
	assert.Equal(t, 14, dst.Len())
}

func TestDeleteByNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     []wire.Number
		delete wire.Number
		want   []wire.Number
	}{
		{in: []wire.Number{1, 2, 1, 4, 1}, delete: 1, want: []wire.Number{2, 4}},
		{in: []wire.Number{1, 2, 1, 4, 1}, delete: 2, want: []wire.Number{1, 1, 4, 1}},
		{in: []wire.Number{1, 2, 1, 4, 1}, delete: 4, want: []wire.Number{1, 2, 1, 1}},
		{in: []wire.Number{1, 2, 1, 4, 1}, delete: 5, want: []wire.Number{1, 2, 1, 4, 1}},
		{in: []wire.Number{1, 1, 1}, delete: 1, want: nil},
		{in: nil, delete: 1, want: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in, "-", tt.delete), func(t *testing.T) {
			t.Parallel()

			s := withNumbers(nil, tt.in...)
			s.DeleteByNumber(tt.delete)
			assert.Equal(t, tt.want, numbers(s))
			if tt.want == nil {
				assert.True(t, s.IsEmpty())
				assert.Nil(t, unknown.Storage(s), "empty set should hold no storage")
			}
		})
	}
}

func TestDeleteSubrange(t *testing.T) {
	t.Parallel()

	// Exhaustively check every subrange of every set size up to 6.
	for size := range 7 {
		all := make([]wire.Number, size)
		for i := range all {
			all[i] = wire.Number(i + 1)
		}

		for start := range size + 1 {
			for count := range size - start + 1 {
				s := withNumbers(nil, all...)
				s.DeleteSubrange(start, count)

				want := slices.Concat(all[:start], all[start+count:])
				if len(want) == 0 {
					want = nil
				}
				assert.Equal(t, want, numbers(s), "size %d, start %d, count %d", size, start, count)
				if len(want) == 0 {
					assert.Nil(t, unknown.Storage(s))
				}
			}
		}
	}

	s := withNumbers(nil, 1, 2, 3)
	assert.Panics(t, func() { s.DeleteSubrange(2, 2) })
	assert.Panics(t, func() { s.DeleteSubrange(-1, 1) })
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := withNumbers(arena.NewArena(arena.Options{}), 1, 2, 3)
	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Nil(t, unknown.Storage(s))
	assert.Empty(t, s.Append(nil))

	s.AddVarint(4, 4)
	assert.Equal(t, []wire.Number{4}, numbers(s))
}

func TestView(t *testing.T) {
	t.Parallel()

	s := withNumbers(nil, 1, 2, 3, 4)
	g := s.AddGroup(5)
	g.AddVarint(6, 6)

	v := s.View(1, 4)
	require.True(t, v.IsView())
	assert.False(t, s.IsView())
	assert.Equal(t, []wire.Number{2, 3, 4, 5}, numbers(v))

	// Clearing a view leaves the original alone.
	v.Clear()
	assert.True(t, v.IsEmpty())
	assert.Equal(t, []wire.Number{1, 2, 3, 4, 5}, numbers(s))

	// Mutating a view detaches it first.
	v = s.View(0, 5)
	v.DeleteByNumber(2)
	v.AddVarint(7, 7)
	assert.False(t, v.IsView())
	assert.Equal(t, []wire.Number{1, 3, 4, 5, 7}, numbers(v))
	assert.Equal(t, []wire.Number{1, 2, 3, 4, 5}, numbers(s))

	v.Field(3).Group().AddVarint(8, 8)
	assert.Equal(t, 1, g.Len(), "groups are copied when a view detaches")

	assert.Panics(t, func() { s.View(3, 3) })
}

func TestArenaBacked(t *testing.T) {
	t.Parallel()

	a := arena.NewArena(arena.Options{})
	s := unknown.New(a)
	before := a.SpaceUsed()
	s.AddLengthDelimited(1, make([]byte, 100))
	assert.GreaterOrEqual(t, a.SpaceUsed()-before, int64(100))
}
