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

package schema

import (
	"cmp"
	"iter"
	"maps"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/debug"
	"buf.build/go/hyperwire/internal/scc"
)

// Options configures [Compile].
type Options struct {
	// If set, every compiled type drops unknown fields while parsing.
	DiscardUnknown bool
	// Extensions to compile into each message type. May be nil.
	Extensions ExtensionResolver
}

// Compile compiles md and every message type reachable from it.
func Compile(md protoreflect.MessageDescriptor, opts Options) *Type {
	c := &compiler{
		lib: &Library{
			opts:  opts,
			types: make(map[protoreflect.FullName]*Type),
		},
	}
	root := c.typeFor(md)
	for len(c.queue) > 0 {
		t := c.queue[0]
		c.queue = c.queue[1:]
		c.fields(t)
	}
	c.propagateRequired(root)

	debug.Log(nil, "compile", "%s: %d types", md.FullName(), c.lib.Len())
	return root
}

type compiler struct {
	lib   *Library
	queue []*Type
}

// typeFor returns the type for md, allocating and enqueuing it if this is
// the first time md is seen. Fields are filled in later, so that recursive
// types can refer to themselves.
func (c *compiler) typeFor(md protoreflect.MessageDescriptor) *Type {
	if t := c.lib.types[md.FullName()]; t != nil {
		return t
	}

	t := &Type{
		Desc:           md,
		Library:        c.lib,
		DiscardUnknown: c.lib.opts.DiscardUnknown,
		MapEntry:       md.IsMapEntry(),
	}
	c.lib.types[md.FullName()] = t
	c.queue = append(c.queue, t)
	return t
}

func (c *compiler) fields(t *Type) {
	md := t.Desc

	oneofs := md.Oneofs()
	for i := range oneofs.Len() {
		od := oneofs.Get(i)
		if od.IsSynthetic() {
			continue
		}
		t.Oneofs = append(t.Oneofs, &Oneof{Desc: od, Index: len(t.Oneofs)})
	}

	fds := md.Fields()
	for i := range fds.Len() {
		c.field(t, fds.Get(i))
	}

	if c.lib.opts.Extensions != nil && md.ExtensionRanges().Len() > 0 {
		exts := c.lib.opts.Extensions.FindExtensionsByMessage(md.FullName())
		slices.SortFunc(exts, func(a, b protoreflect.ExtensionDescriptor) int {
			return cmp.Compare(a.Number(), b.Number())
		})
		for _, xd := range exts {
			if t.ByNumber(xd.Number()) != nil {
				continue // Duplicate registration.
			}
			if t.exts == nil {
				t.exts = make(map[protoreflect.FullName]*Field)
			}
			t.exts[xd.FullName()] = c.field(t, xd)
		}
	}

	t.Sorted = slices.Clone(t.Fields)
	slices.SortFunc(t.Sorted, func(a, b *Field) int {
		return cmp.Compare(a.Number, b.Number)
	})

	debug.Log(nil, "type", "%s: %d fields, %d presence bits", t, len(t.Fields), t.Presence)
}

func (c *compiler) field(t *Type, fd protoreflect.FieldDescriptor) *Field {
	f := &Field{
		Desc:     fd,
		Parent:   t,
		Number:   fd.Number(),
		Kind:     fd.Kind(),
		WireType: WireTypeOf(fd.Kind()),
		Index:    len(t.Fields),
		Repeated: fd.IsList() || fd.IsMap(),
		Map:      fd.IsMap(),
		Required: fd.Cardinality() == protoreflect.Required,
		Presence: -1,
	}
	f.Packed = f.Repeated && !f.Map && fd.IsPacked()

	if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
		for _, o := range t.Oneofs {
			if o.Desc == od {
				f.Oneof = o
				o.Fields = append(o.Fields, f)
				break
			}
		}
	}

	switch {
	case f.Repeated || f.Oneof != nil:
	case fd.HasPresence():
		f.Presence = t.Presence
		t.Presence++
	default:
		f.Implicit = true
	}

	if f.IsMessage() {
		f.Message = c.typeFor(fd.Message())
	}
	if f.Kind == protoreflect.StringKind {
		f.UTF8 = enforceUTF8(fd)
	}
	if f.Kind == protoreflect.EnumKind && fd.Enum().IsClosed() {
		f.ClosedEnum = fd.Enum().Values()
	}

	if !f.Repeated && fd.HasDefault() {
		switch {
		case f.Kind == protoreflect.StringKind:
			f.DefaultBytes = []byte(fd.Default().String())
		case f.Kind == protoreflect.BytesKind:
			f.DefaultBytes = fd.Default().Bytes()
		case !f.IsMessage():
			f.DefaultBits = Bits(f.Kind, fd.Default())
		}
	}

	if f.Required {
		t.Required = append(t.Required, f)
	}
	if t.ByNumber(f.Number) == nil {
		t.index(f)
	}
	t.Fields = append(t.Fields, f)
	return f
}

func (t *Type) index(f *Field) {
	if f.Number <= denseLimit {
		for len(t.dense) <= int(f.Number) {
			t.dense = append(t.dense, nil)
		}
		t.dense[f.Number] = f
		return
	}
	if t.sparse == nil {
		t.sparse = make(map[protowire.Number]*Field)
	}
	t.sparse[f.Number] = f
}

// propagateRequired computes [Type.HasRequired] for every type in the
// library, and resolves map entry fields now that every type is complete.
func (c *compiler) propagateRequired(root *Type) {
	edges := func(t *Type) iter.Seq[*Type] {
		return func(yield func(*Type) bool) {
			for _, f := range t.Fields {
				if f.Message != nil && !yield(f.Message) {
					return
				}
			}
		}
	}

	types := slices.SortedFunc(maps.Values(c.lib.types), func(a, b *Type) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	dag := scc.SortAll(slices.Values(append([]*Type{root}, types...)), edges)

	has := make([]bool, dag.Len())
	for comp := range dag.LeavesFirst() {
		for _, t := range comp.Members() {
			has[comp.Index()] = has[comp.Index()] || len(t.Required) > 0
		}
		for dep := range comp.Deps() {
			has[comp.Index()] = has[comp.Index()] || has[dep.Index()]
		}
		for _, t := range comp.Members() {
			t.HasRequired = has[comp.Index()]
		}
	}

	for _, t := range types {
		for _, f := range t.Fields {
			if f.Map {
				f.Key = f.Message.ByNumber(1)
				f.Value = f.Message.ByNumber(2)
			}
		}
	}
}

// enforceUTF8 mirrors the rule protobuf-go uses for string validation.
func enforceUTF8(fd protoreflect.FieldDescriptor) bool {
	if fd.Syntax() == protoreflect.Editions {
		if fd, ok := fd.(interface{ EnforceUTF8() bool }); ok {
			return fd.EnforceUTF8()
		}
	}
	return fd.Syntax() == protoreflect.Proto3
}
