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

// Package decode contains the streaming parser.
//
// The parser is a single non-recursive loop over an explicit stack of
// frames, one per open message or group. Input arrives as a sequence of
// chunks from a [Source]; values are decoded directly out of the current
// chunk whenever they fit, and only values that straddle a chunk boundary
// take the slower gathering path.
package decode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"buf.build/go/hyperwire/internal/arena"
	"buf.build/go/hyperwire/internal/dbg"
	"buf.build/go/hyperwire/internal/debug"
	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/sync2"
	"buf.build/go/hyperwire/internal/unknown"
	"buf.build/go/hyperwire/internal/wire"
)

// DefaultMaxDepth is the default limit on message and group nesting.
const DefaultMaxDepth = 100

// Options is options for [Unmarshal].
type Options struct {
	// Maximum nesting depth. The top-level message is at depth zero.
	MaxDepth int
	// Maximum total number of input bytes.
	MaxSize int64

	// If set, unknown fields are dropped instead of being retained.
	DiscardUnknown bool
	// If set, missing required fields are not an error.
	AllowPartial bool
	// If set, string and bytes values may point into the input chunks rather
	// than being copied onto the message's arena.
	AllowAlias bool
	// If set, strings are not validated as UTF-8.
	AllowInvalidUTF8 bool
}

// NewOptions returns the default settings for [Options].
func NewOptions() Options {
	return Options{
		MaxDepth: DefaultMaxDepth,
		MaxSize:  math.MaxInt32,
	}
}

// frame is an open message or group.
//
// Exactly one of msg and set is non-nil, unless the frame is an unknown group
// that is being skipped, in which case both are nil.
type frame struct {
	msg *dynamic.Message
	set *unknown.Set

	end   int64       // Absolute offset of the end of this frame, or -1.
	group wire.Number // Expected END_GROUP number; zero if not a group.

	// Set for map entries: the entry is inserted into parent when this frame
	// is popped.
	parent *dynamic.Message
	entry  *schema.Field
}

type parser struct {
	Options
	src Source

	buf   []byte // Unconsumed part of the current chunk.
	off   int64  // Absolute offset of buf[0].
	total int64  // Total bytes received from src.
	eof   bool

	stack   []frame
	scratch [wire.MaxVarintLen]byte
}

var parsers = sync2.Pool[parser]{
	Keep: func(p *parser) bool { return cap(p.stack) <= DefaultMaxDepth+1 },
	Reset: func(p *parser) {
		clear(p.stack)
		*p = parser{stack: p.stack[:0]}
	},
}

// Unmarshal parses the input in src into m, merging with its existing
// contents.
func Unmarshal(m *dynamic.Message, src Source, opts Options) (err error) {
	p, drop := parsers.Get()
	defer drop()

	p.Options = opts
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if p.MaxSize <= 0 {
		p.MaxSize = math.MaxInt32
	}
	p.src = src
	p.stack = append(p.stack, frame{msg: m, end: -1})

	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			err = a.err
			if debug.Enabled {
				p.log("fail", "%v\n%s", err, debug.Stack(4))
			}
		}
	}()

	p.log("start", "%v, %+v", m, opts)
	p.loop()
	p.log("done", "%v, %d bytes", m, p.off)

	if !p.AllowPartial && !m.IsInitialized() {
		return &RequiredNotSetError{Type: m.Type().Name(), Missing: m.FindMissing()}
	}
	return nil
}

func (p *parser) fail(code ErrorCode) {
	panic(abort{&ParseError{code: code, offset: p.off}})
}

func (p *parser) log(op, format string, args ...any) {
	if !debug.Enabled {
		return
	}
	debug.Log([]any{"%d:%d", len(p.stack), p.off}, op, format, args...)
}

// more returns whether there is unconsumed input, pulling a new chunk from
// the source if the current one is exhausted.
func (p *parser) more() bool {
	if len(p.buf) > 0 {
		return true
	}
	for !p.eof {
		chunk, err := p.src.Next()
		switch {
		case errors.Is(err, io.EOF):
			p.eof = true
		case err != nil:
			panic(abort{fmt.Errorf("hyperwire: reading input at offset %d: %w", p.off, err)})
		}

		p.total += int64(len(chunk))
		if p.total > p.MaxSize {
			p.fail(ErrorTooBig)
		}
		if len(chunk) > 0 {
			p.log("chunk", "%d bytes, eof: %v", len(chunk), p.eof)
			p.buf = chunk
			return true
		}
	}
	return false
}

func (p *parser) advance(n int) {
	p.buf = p.buf[n:]
	p.off += int64(n)
}

// read fills out with the next len(out) bytes of input.
func (p *parser) read(out []byte) {
	for len(out) > 0 {
		if !p.more() {
			p.fail(ErrorTruncated)
		}
		n := copy(out, p.buf)
		p.advance(n)
		out = out[n:]
	}
}

func (p *parser) varint() uint64 {
	v, n := wire.DecodeVarint(p.buf)
	switch {
	case n > 0:
		p.advance(n)
		return v
	case n == wire.Overflow:
		p.fail(ErrorOverflow)
	}

	// The varint straddles a chunk boundary. Gather it into scratch and
	// decode it from there.
	n = 0
	for {
		if !p.more() {
			p.fail(ErrorTruncated)
		}
		b := p.buf[0]
		p.advance(1)
		p.scratch[n] = b
		n++
		if b < 0x80 {
			break
		}
		if n == wire.MaxVarintLen {
			p.fail(ErrorOverflow)
		}
	}
	v, _ = wire.DecodeVarint(p.scratch[:n])
	return v
}

func (p *parser) fixed32() uint32 {
	if v, n := wire.DecodeFixed32(p.buf); n > 0 {
		p.advance(n)
		return v
	}
	p.read(p.scratch[:4])
	v, _ := wire.DecodeFixed32(p.scratch[:4])
	return v
}

func (p *parser) fixed64() uint64 {
	if v, n := wire.DecodeFixed64(p.buf); n > 0 {
		p.advance(n)
		return v
	}
	p.read(p.scratch[:8])
	v, _ := wire.DecodeFixed64(p.scratch[:8])
	return v
}

// length reads a length prefix and checks it against the enclosing frame.
// Returns the absolute end offset of the length-delimited value.
func (p *parser) length() (int, int64) {
	n := p.varint()
	limit := p.stack[len(p.stack)-1].end
	if limit < 0 {
		limit = p.MaxSize
	}
	if remaining := limit - p.off; remaining < 0 || n > uint64(remaining) {
		if p.stack[len(p.stack)-1].end < 0 {
			p.fail(ErrorTooBig)
		}
		p.fail(ErrorTruncated)
	}
	return int(n), p.off + int64(n)
}

// payload reads n bytes. If owned is set, the result lives on a (or the heap);
// otherwise it may alias the current chunk.
func (p *parser) payload(n int, a *arena.Arena, owned bool) []byte {
	if n <= len(p.buf) {
		b := p.buf[:n:n]
		p.advance(n)
		if owned {
			b = arena.Bytes(a, b)
		}
		return b
	}

	// Gather the value across chunks. This grows with the input actually
	// received rather than trusting n up front.
	var b []byte
	for len(b) < n {
		if !p.more() {
			p.fail(ErrorTruncated)
		}
		k := min(n-len(b), len(p.buf))
		b = append(b, p.buf[:k]...)
		p.advance(k)
	}
	if owned && a != nil {
		b = arena.Bytes(a, b)
	}
	return b
}

func (p *parser) skip(n int) {
	for n > 0 {
		if !p.more() {
			p.fail(ErrorTruncated)
		}
		k := min(n, len(p.buf))
		p.advance(k)
		n -= k
	}
}

func (p *parser) push(f frame) {
	if len(p.stack) > p.MaxDepth {
		p.fail(ErrorRecursionDepth)
	}
	p.stack = append(p.stack, f)
	p.log("push", "%v", dbg.Dict(f.msg, "end", f.end, "group", f.group))
}

func (p *parser) pop() {
	top := p.stack[len(p.stack)-1]
	p.stack[len(p.stack)-1] = frame{}
	p.stack = p.stack[:len(p.stack)-1]

	if top.entry != nil {
		if v := top.entry.Value; v.IsMessage() && !top.msg.Has(v) {
			top.msg.MutableMessage(v)
		}
		top.parent.InsertEntry(top.entry, top.msg)
	}
	p.log("pop", "%v", top.msg)
}

// loop is the core parser loop. This function is not recursive.
func (p *parser) loop() {
	for {
		top := &p.stack[len(p.stack)-1]
		switch {
		case top.end >= 0 && p.off > top.end:
			p.fail(ErrorTruncated)
		case top.end >= 0 && p.off == top.end:
			if top.group != 0 {
				p.fail(ErrorTruncated)
			}
			p.pop()
			continue
		case !p.more():
			if len(p.stack) > 1 || top.group != 0 {
				p.fail(ErrorTruncated)
			}
			return
		}

		tag := p.varint()
		if tag>>3 < uint64(wire.MinValidNumber) || tag>>3 > uint64(wire.MaxValidNumber) {
			p.fail(ErrorFieldNumber)
		}
		n, t := wire.SplitTag(tag)

		switch t {
		case 6, 7:
			p.fail(ErrorReserved)
		case wire.EndGroupType:
			if top.group != n {
				p.fail(ErrorEndGroup)
			}
			p.pop()
			continue
		}

		if top.msg == nil {
			p.unknown(top.set, n, t)
			continue
		}

		f := top.msg.Type().ByNumber(n)
		switch {
		case f == nil:
		case t == f.WireType:
			p.field(top.msg, f)
			continue
		case t == wire.BytesType && f.Packable():
			p.packed(top.msg, f)
			continue
		}

		var set *unknown.Set
		if !p.DiscardUnknown && !top.msg.Type().DiscardUnknown {
			set = top.msg.MutableUnknown()
		}
		p.unknown(set, n, t)
	}
}

// field parses a value for a known field whose wire type matches.
func (p *parser) field(m *dynamic.Message, f *schema.Field) {
	switch f.WireType {
	case wire.VarintType:
		v := p.varint()
		if f.Kind == enumKind && !f.ValidEnum(int32(v)) {
			p.unknownEnum(m, f, v)
			return
		}
		p.store(m, f, varintBits(f, v))

	case wire.Fixed32Type:
		p.store(m, f, fixed32Bits(f, p.fixed32()))

	case wire.Fixed64Type:
		p.store(m, f, p.fixed64())

	case wire.BytesType:
		if f.IsMessage() {
			_, end := p.length()
			switch {
			case f.Map:
				p.push(frame{msg: m.NewEntry(f), end: end, parent: m, entry: f})
			case f.Repeated:
				p.push(frame{msg: m.AppendMessage(f), end: end})
			default:
				p.push(frame{msg: m.MutableMessage(f), end: end})
			}
			return
		}

		n, _ := p.length()
		b := p.payload(n, m.Arena(), !p.AllowAlias)
		if f.UTF8 && !p.AllowInvalidUTF8 && !utf8.Valid(b) {
			p.fail(ErrorUTF8)
		}
		if f.Repeated {
			m.AppendBytes(f, b)
		} else {
			m.SetBytes(f, b)
		}

	case wire.StartGroupType:
		end := p.stack[len(p.stack)-1].end
		if f.Repeated {
			p.push(frame{msg: m.AppendMessage(f), end: end, group: f.Number})
		} else {
			p.push(frame{msg: m.MutableMessage(f), end: end, group: f.Number})
		}
	}
}

// packed parses a packed run of scalars.
func (p *parser) packed(m *dynamic.Message, f *schema.Field) {
	_, end := p.length()
	for p.off < end {
		switch f.WireType {
		case wire.VarintType:
			v := p.varint()
			if f.Kind == enumKind && !f.ValidEnum(int32(v)) {
				p.unknownEnum(m, f, v)
				continue
			}
			m.AppendBits(f, varintBits(f, v))
		case wire.Fixed32Type:
			m.AppendBits(f, fixed32Bits(f, p.fixed32()))
		case wire.Fixed64Type:
			m.AppendBits(f, p.fixed64())
		}
	}
	if p.off != end {
		p.fail(ErrorTruncated)
	}
}

func (p *parser) store(m *dynamic.Message, f *schema.Field, bits uint64) {
	if f.Repeated {
		m.AppendBits(f, bits)
	} else {
		m.SetBits(f, bits)
	}
}

// unknownEnum records a closed enum value that the enum does not declare.
func (p *parser) unknownEnum(m *dynamic.Message, f *schema.Field, v uint64) {
	p.log("enum", "%v: unknown value %d", f, int32(v))
	if !p.DiscardUnknown && !m.Type().DiscardUnknown {
		m.MutableUnknown().AddVarint(f.Number, v)
	}
}

// unknown parses an unrecognized field into set. If set is nil, the field is
// skipped.
func (p *parser) unknown(set *unknown.Set, n wire.Number, t wire.Type) {
	switch t {
	case wire.VarintType:
		v := p.varint()
		if set != nil {
			set.AddVarint(n, v)
		}
	case wire.Fixed32Type:
		v := p.fixed32()
		if set != nil {
			set.AddFixed32(n, v)
		}
	case wire.Fixed64Type:
		v := p.fixed64()
		if set != nil {
			set.AddFixed64(n, v)
		}
	case wire.BytesType:
		k, _ := p.length()
		if set == nil {
			p.skip(k)
			return
		}
		set.AddLengthDelimited(n, p.payload(k, nil, false))
	case wire.StartGroupType:
		var group *unknown.Set
		if set != nil {
			group = set.AddGroup(n)
		}
		p.push(frame{set: group, end: p.stack[len(p.stack)-1].end, group: n})
	}
}
