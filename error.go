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
	"buf.build/go/hyperwire/internal/decode"
	"buf.build/go/hyperwire/internal/encode"
)

// ParseError is returned by the parser when its input is malformed.
//
// It unwraps to one of the Err* sentinels below, and records the offset into
// the input at which the problem was found.
type ParseError = decode.ParseError

// ErrorCode is the kind of a [ParseError].
type ErrorCode = decode.ErrorCode

// RequiredNotSetError is returned when a message is missing required fields.
// Missing lists the paths to every missing field, such as "a.b[2].c".
type RequiredNotSetError = decode.RequiredNotSetError

// SizeMismatchError is returned by the serializer when a message changed
// between computing its size and writing it.
type SizeMismatchError = encode.SizeMismatchError

// Sentinel errors wrapped by [ParseError]. These mirror the errors produced by
// protowire.
var (
	ErrTruncated      = decode.ErrTruncated
	ErrFieldNumber    = decode.ErrFieldNumber
	ErrOverflow       = decode.ErrOverflow
	ErrReserved       = decode.ErrReserved
	ErrEndGroup       = decode.ErrEndGroup
	ErrRecursionDepth = decode.ErrRecursionDepth
	ErrUTF8           = decode.ErrUTF8
	ErrTooBig         = decode.ErrTooBig
)
