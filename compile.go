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
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"buf.build/go/hyperwire/internal/schema"
)

// CompileOption is a configuration setting for [Compile].
type CompileOption struct{ apply func(*schema.Options) }

// ExtensionResolver finds the extensions of a message, so that they can be
// compiled as ordinary fields.
type ExtensionResolver = schema.ExtensionResolver

// WithExtensions provides an extension resolver for the compiler.
//
// hyperwire does not resolve extensions while parsing. Any extensions that
// should be parsed as known fields must be provided up-front; all others are
// retained as unknown fields.
func WithExtensions(resolver ExtensionResolver) CompileOption {
	return CompileOption{func(o *schema.Options) { o.Extensions = resolver }}
}

// WithExtensionsFromTypes uses a type registry to provide extension information
// about a message type.
func WithExtensionsFromTypes(types *protoregistry.Types) CompileOption {
	return CompileOption{func(o *schema.Options) { o.Extensions = (*schema.ExtensionsFromTypes)(types) }}
}

// WithExtensionsFromFiles uses a file registry to provide extension information
// about a message type.
func WithExtensionsFromFiles(files *protoregistry.Files) CompileOption {
	return CompileOption{func(o *schema.Options) { o.Extensions = (*schema.ExtensionsFromFiles)(files) }}
}

// WithDiscardUnknownFields marks every compiled type as dropping unknown
// fields when parsed, regardless of [WithDiscardUnknown].
func WithDiscardUnknownFields(discard bool) CompileOption {
	return CompileOption{func(o *schema.Options) { o.DiscardUnknown = discard }}
}

// Compile compiles a message descriptor, and every message type reachable from
// it, into a [MessageType].
func Compile(md protoreflect.MessageDescriptor, options ...CompileOption) *MessageType {
	var opts schema.Options
	for _, opt := range options {
		if opt.apply != nil {
			opt.apply(&opts)
		}
	}
	return wrapType(schema.Compile(md, opts))
}

// CompileFor is a helper for calling [Compile] using the descriptor of an
// existing message type.
//
// This is useful for getting a [MessageType] for a message type compiled into
// the binary. Extensions are looked up in [protoregistry.GlobalTypes] unless
// another resolver is provided.
func CompileFor[T proto.Message](options ...CompileOption) *MessageType {
	// Allow the caller to override the extension registry by placing our
	// default registry first.
	options = append([]CompileOption{WithExtensionsFromTypes(protoregistry.GlobalTypes)}, options...)

	var m T
	return Compile(m.ProtoReflect().Descriptor(), options...)
}

// CompileFromBytes unmarshals a google.protobuf.FileDescriptorSet from schema,
// looks up a message with the given name, and compiles a type for it.
//
// Extensions are looked up in the same file set unless another resolver is
// provided.
func CompileFromBytes(schema []byte, messageName protoreflect.FullName, options ...CompileOption) (*MessageType, error) {
	fds := new(descriptorpb.FileDescriptorSet)
	if err := proto.Unmarshal(schema, fds); err != nil {
		return nil, err
	}
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, err
	}
	desc, err := files.FindDescriptorByName(messageName)
	if err != nil {
		return nil, err
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, protoregistry.NotFound
	}

	options = append([]CompileOption{WithExtensionsFromFiles(files)}, options...)
	return Compile(md, options...), nil
}
