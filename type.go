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
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/dynamic"
	"buf.build/go/hyperwire/internal/schema"
	"buf.build/go/hyperwire/internal/xunsafe"
)

// MessageType is a compiled message type.
//
// To obtain a [MessageType], use any of the Compile* functions.
type MessageType struct {
	impl schema.Type
}

// Descriptor returns the message descriptor.
func (t *MessageType) Descriptor() protoreflect.MessageDescriptor {
	if t == nil {
		return nil
	}
	return t.impl.Desc
}

// New returns a new empty message of this type allocated on a, which may be
// nil.
func (t *MessageType) New(a *Arena) *Message {
	return wrapMessage(dynamic.New(&t.impl, a.raw()))
}

// Lookup returns the type of another message compiled alongside this one, such
// as the type of one of its fields. Returns nil if name was not compiled.
func (t *MessageType) Lookup(name protoreflect.FullName) *MessageType {
	return wrapType(t.impl.Library.Lookup(name))
}

// Format implements [fmt.Formatter].
func (t *MessageType) Format(f fmt.State, verb rune) {
	if f.Flag('#') {
		fmt.Fprintf(f, fmt.FormatString(f, verb), t.Descriptor())
	} else {
		fmt.Fprint(f, t.Descriptor().FullName())
	}
}

// field resolves a field descriptor, panicking if it is not a field of this
// type.
func (t *MessageType) field(fd protoreflect.FieldDescriptor) *schema.Field {
	f := t.impl.ByDescriptor(fd)
	if f == nil {
		panic(fmt.Sprintf("hyperwire: %s is not a field of %s", fd.FullName(), t.impl.Name()))
	}
	return f
}

// wrapType wraps an internal Type pointer.
func wrapType(t *schema.Type) *MessageType {
	return xunsafe.Cast[MessageType](t)
}
