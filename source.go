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
	"io"

	"buf.build/go/hyperwire/internal/decode"
)

// Source is a sequence of input chunks for [Message.UnmarshalFrom].
//
// Next returns the next chunk of input, or io.EOF once the input is
// exhausted. A chunk may be returned alongside io.EOF. Empty chunks are
// skipped. Any other error aborts parsing and is returned, wrapped, to the
// caller of UnmarshalFrom; this is how a caller cancels a parse.
//
// Chunks must not be modified until parsing is done, and for as long as the
// parsed message is in use if parsing with [WithAllowAlias].
type Source = decode.Source

// BytesSource returns a [Source] that yields b as a single chunk.
func BytesSource(b []byte) Source {
	return decode.Bytes(b)
}

// ChunkSource returns a [Source] that yields each of chunks in order.
func ChunkSource(chunks ...[]byte) Source {
	return decode.Chunks(chunks...)
}

// ReaderSource returns a [Source] that reads chunks of up to size bytes from
// r. Each chunk is read into a fresh buffer.
func ReaderSource(r io.Reader, size int) Source {
	return decode.Reader(r, size)
}
