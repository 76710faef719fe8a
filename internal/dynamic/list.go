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

package dynamic

// List is the storage for a repeated field. Exactly one of the slices is used,
// depending on the element kind.
type List struct {
	Bits  []uint64
	Bytes [][]byte
	Msgs  []*Message
}

// Len returns the number of elements. A nil list is empty.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return max(len(l.Bits), len(l.Bytes), len(l.Msgs))
}

// Truncate shortens the list to n elements.
func (l *List) Truncate(n int) {
	switch {
	case l.Bits != nil:
		l.Bits = l.Bits[:n]
	case l.Bytes != nil:
		clear(l.Bytes[n:])
		l.Bytes = l.Bytes[:n]
	case l.Msgs != nil:
		clear(l.Msgs[n:])
		l.Msgs = l.Msgs[:n]
	}
}
