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

// Package hyperwire is a Protobuf wire format codec for dynamic messages.
//
// To use this package, compile a [MessageType] using one of the Compile
// functions. This is a one-time cost. Messages of that type can then be
// parsed from contiguous or chunked input, inspected and mutated through a
// small reflection API, and serialized back to the wire format.
//
// # Arenas
//
// Every [Message] lives on an [Arena], which owns all of the memory used by
// the message and its sub-messages. Arenas are reset, rather than freed: after
// [Arena.Reset] all messages allocated on it are invalid. A nil *Arena is
// allowed everywhere, in which case allocations come from the Go heap.
//
// Arenas may be shared by several goroutines: each goroutine allocates from
// blocks it owns. Reset must not race with any other use of the arena.
//
// # Parsing
//
// [Message.Unmarshal] parses a byte slice; [Message.UnmarshalFrom] pulls
// chunks from a [Source], so input need not be contiguous. Parsing never
// recurses on the Go stack, and the nesting depth is limited by
// [WithMaxDepth].
//
// Fields the schema does not know about, and values of closed enums that the
// enum does not declare, are retained as [UnknownFields] and serialized back
// verbatim after all known fields.
//
// # Serializing
//
// Serialization runs in two passes: [Message.ByteSize] computes and caches
// the encoded size of every message in the tree, and
// [Message.SerializeWithCachedSizes] writes using those sizes. If a message
// is mutated between the two passes, the writer reports a
// [*SizeMismatchError] rather than producing corrupt output.
package hyperwire
