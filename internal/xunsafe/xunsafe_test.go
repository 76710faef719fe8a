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

package xunsafe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"buf.build/go/hyperwire/internal/xunsafe"
)

func TestCast(t *testing.T) {
	t.Parallel()

	type wrapper struct{ v uint64 }
	x := uint64(42)
	w := xunsafe.Cast[wrapper](&x)
	assert.Equal(t, uint64(42), w.v)

	w.v = 7
	assert.Equal(t, uint64(7), x)
}

func TestReinterpret(t *testing.T) {
	t.Parallel()

	words := []uint64{0x0807060504030201, 0x100f0e0d0c0b0a09}
	b := xunsafe.Reinterpret[byte](words, 16)
	assert.Len(t, b, 16)
	assert.Equal(t, 16, cap(b))
	// Byte order depends on the host, but every byte must be present.
	assert.ElementsMatch(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, b)

	b[0] = 0xff
	b[1] = 0xff
	b[2] = 0xff
	b[3] = 0xff
	b[4] = 0xff
	b[5] = 0xff
	b[6] = 0xff
	b[7] = 0xff
	assert.Equal(t, ^uint64(0), words[0])
}

func TestPadding(t *testing.T) {
	t.Parallel()

	words := make([]uint64, 4)
	b := xunsafe.Reinterpret[byte](words, 32)
	for i := range 8 {
		assert.Equal(t, (8-i)%8, xunsafe.Padding(b[i:], 8), "offset %d", i)
	}
	assert.Equal(t, 0, xunsafe.Padding(b[4:], 4))
	assert.Equal(t, 3, xunsafe.Padding(b[1:], 4))
}
