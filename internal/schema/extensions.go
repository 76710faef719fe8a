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
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// ExtensionResolver finds the extensions of some message.
//
// [protoregistry.Types] and [protoregistry.Files] both carry this
// information, but expose it differently.
type ExtensionResolver interface {
	FindExtensionsByMessage(name protoreflect.FullName) []protoreflect.ExtensionDescriptor
}

// ExtensionsFromTypes wraps a [protoregistry.Types] to implement
// [ExtensionResolver].
type ExtensionsFromTypes protoregistry.Types

// FindExtensionsByMessage implements [ExtensionResolver].
func (e *ExtensionsFromTypes) FindExtensionsByMessage(
	name protoreflect.FullName,
) []protoreflect.ExtensionDescriptor {
	r := (*protoregistry.Types)(e)
	out := make([]protoreflect.ExtensionDescriptor, 0, r.NumExtensionsByMessage(name))
	r.RangeExtensionsByMessage(name, func(xt protoreflect.ExtensionType) bool {
		out = append(out, xt.TypeDescriptor().Descriptor())
		return true
	})
	return out
}

// ExtensionsFromFiles wraps a [protoregistry.Files] to implement
// [ExtensionResolver]. Every file is searched, including extensions declared
// inside messages.
type ExtensionsFromFiles protoregistry.Files

// FindExtensionsByMessage implements [ExtensionResolver].
func (e *ExtensionsFromFiles) FindExtensionsByMessage(
	name protoreflect.FullName,
) []protoreflect.ExtensionDescriptor {
	var out []protoreflect.ExtensionDescriptor
	collect := func(xds protoreflect.ExtensionDescriptors) {
		for i := range xds.Len() {
			if xd := xds.Get(i); xd.ContainingMessage().FullName() == name {
				out = append(out, xd)
			}
		}
	}

	var walk func(protoreflect.MessageDescriptors)
	walk = func(mds protoreflect.MessageDescriptors) {
		for i := range mds.Len() {
			md := mds.Get(i)
			collect(md.Extensions())
			walk(md.Messages())
		}
	}

	(*protoregistry.Files)(e).RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		collect(fd.Extensions())
		walk(fd.Messages())
		return true
	})
	return out
}
