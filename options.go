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
	"math"

	"buf.build/go/hyperwire/internal/decode"
)

// UnmarshalOption is a configuration setting for [Message.Unmarshal].
type UnmarshalOption struct{ apply func(*unmarshalOptions) }

type unmarshalOptions struct {
	decode.Options
	merge bool
}

// WithMaxDepth sets the maximum nesting depth for the parser. The default is
// 100.
//
// Setting a large value enables potential DoS vectors.
func WithMaxDepth(depth int) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.MaxDepth = min(depth, math.MaxInt32) }}
}

// WithMaxSize sets the maximum number of input bytes the parser will accept.
// The default is math.MaxInt32.
func WithMaxSize(size int64) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.MaxSize = size }}
}

// WithDiscardUnknown sets whether unknown fields should be discarded while
// parsing. Analogous to [proto.UnmarshalOptions].
//
// Setting this option will break round-tripping.
func WithDiscardUnknown(discard bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.DiscardUnknown = discard }}
}

// WithAllowPartial sets whether a message may be missing required fields after
// parsing. Analogous to [proto.UnmarshalOptions].
func WithAllowPartial(allow bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.AllowPartial = allow }}
}

// WithAllowInvalidUTF8 sets whether UTF-8 is validated when parsing string
// fields originating from non-proto2 files.
func WithAllowInvalidUTF8(allow bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.AllowInvalidUTF8 = allow }}
}

// WithAllowAlias sets whether string and bytes fields may point into the
// input, rather than being copied onto the message's arena.
//
// The input must then outlive the message and must not be modified.
func WithAllowAlias(allow bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.AllowAlias = allow }}
}

// WithMerge sets whether parsing merges into the existing contents of the
// message rather than replacing them.
func WithMerge(merge bool) UnmarshalOption {
	return UnmarshalOption{func(o *unmarshalOptions) { o.merge = merge }}
}

func newUnmarshalOptions(options []UnmarshalOption) unmarshalOptions {
	opts := unmarshalOptions{Options: decode.NewOptions()}
	for _, opt := range options {
		if opt.apply != nil {
			opt.apply(&opts)
		}
	}
	return opts
}

// MarshalOption is a configuration setting for [Message.Marshal].
type MarshalOption struct{ apply func(*marshalOptions) }

type marshalOptions struct {
	buf          []byte
	allowPartial bool
}

// WithBuffer appends the output of [Message.Marshal] to buf.
func WithBuffer(buf []byte) MarshalOption {
	return MarshalOption{func(o *marshalOptions) { o.buf = buf }}
}

// WithPartialMarshal sets whether a message that is missing required fields
// may be serialized.
func WithPartialMarshal(allow bool) MarshalOption {
	return MarshalOption{func(o *marshalOptions) { o.allowPartial = allow }}
}

func newMarshalOptions(options []MarshalOption) marshalOptions {
	var opts marshalOptions
	for _, opt := range options {
		if opt.apply != nil {
			opt.apply(&opts)
		}
	}
	return opts
}
