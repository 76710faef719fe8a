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

package decode

import (
	"bytes"
	"io"
	"slices"
)

// Source is a pull-based sequence of input chunks.
//
// Next returns the next chunk, or io.EOF once the input is exhausted. A
// chunk may be returned together with io.EOF. Empty chunks are skipped. Any
// other error aborts the parse and is returned, wrapped, to the caller.
//
// The parser does not retain chunks after Next is called again, unless
// aliasing is enabled; a Source used with aliasing must not reuse buffers.
type Source interface {
	Next() ([]byte, error)
}

// Bytes returns a Source that yields b as a single chunk.
func Bytes(b []byte) Source {
	return Chunks(b)
}

// Chunks returns a Source that yields each chunk in turn.
func Chunks(chunks ...[]byte) Source {
	return &chunkSource{chunks: chunks}
}

type chunkSource struct {
	chunks [][]byte
}

func (s *chunkSource) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}

// Split returns a Source that yields b split at each of the given offsets,
// which must be ascending.
func Split(b []byte, at ...int) Source {
	var chunks [][]byte
	prev := 0
	for _, n := range at {
		chunks = append(chunks, b[prev:n])
		prev = n
	}
	return Chunks(append(chunks, b[prev:])...)
}

// Reader returns a Source that reads chunks of up to size bytes from r. Every
// chunk is a fresh buffer, so reader sources are safe to alias.
func Reader(r io.Reader, size int) Source {
	if size <= 0 {
		size = bytes.MinRead
	}
	return &readerSource{r: r, size: size}
}

type readerSource struct {
	r    io.Reader
	size int
}

func (s *readerSource) Next() ([]byte, error) {
	buf := make([]byte, s.size)
	n, err := s.r.Read(buf)
	return slices.Clip(buf[:n]), err
}
