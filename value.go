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
	"math"

	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire/internal/schema"
)

// Value is a single field value: a scalar, a string or bytes, a message, or a
// view of a repeated or map field.
//
// The zero Value is invalid.
type Value struct {
	kind  valueKind
	bits  uint64
	bytes []byte
	ref   any // *Message, List, or Map.
}

type valueKind uint8

const (
	invalidValue valueKind = iota
	boolValue
	int32Value
	int64Value
	uint32Value
	uint64Value
	float32Value
	float64Value
	stringValue
	bytesValue
	enumValue
	messageValue
	listValue
	mapValue
)

var kindNames = [...]string{
	invalidValue: "invalid",
	boolValue:    "bool",
	int32Value:   "int32",
	int64Value:   "int64",
	uint32Value:  "uint32",
	uint64Value:  "uint64",
	float32Value: "float32",
	float64Value: "float64",
	stringValue:  "string",
	bytesValue:   "bytes",
	enumValue:    "enum",
	messageValue: "message",
	listValue:    "list",
	mapValue:     "map",
}

// String implements [fmt.Stringer].
func (k valueKind) String() string { return kindNames[k] }

// ValueOfBool returns a new bool value.
func ValueOfBool(v bool) Value {
	if v {
		return Value{kind: boolValue, bits: 1}
	}
	return Value{kind: boolValue}
}

// ValueOfInt32 returns a new int32 value.
func ValueOfInt32(v int32) Value { return Value{kind: int32Value, bits: uint64(int64(v))} }

// ValueOfInt64 returns a new int64 value.
func ValueOfInt64(v int64) Value { return Value{kind: int64Value, bits: uint64(v)} }

// ValueOfUint32 returns a new uint32 value.
func ValueOfUint32(v uint32) Value { return Value{kind: uint32Value, bits: uint64(v)} }

// ValueOfUint64 returns a new uint64 value.
func ValueOfUint64(v uint64) Value { return Value{kind: uint64Value, bits: v} }

// ValueOfFloat32 returns a new float32 value.
func ValueOfFloat32(v float32) Value {
	return Value{kind: float32Value, bits: uint64(math.Float32bits(v))}
}

// ValueOfFloat64 returns a new float64 value.
func ValueOfFloat64(v float64) Value { return Value{kind: float64Value, bits: math.Float64bits(v)} }

// ValueOfString returns a new string value.
func ValueOfString(v string) Value { return Value{kind: stringValue, bytes: []byte(v)} }

// ValueOfBytes returns a new bytes value. The value aliases v.
func ValueOfBytes(v []byte) Value { return Value{kind: bytesValue, bytes: v} }

// ValueOfEnum returns a new enum value.
func ValueOfEnum(v protoreflect.EnumNumber) Value {
	return Value{kind: enumValue, bits: uint64(int64(v))}
}

// ValueOfMessage returns a new message value.
func ValueOfMessage(v *Message) Value { return Value{kind: messageValue, ref: v} }

// IsValid returns whether v is not the zero Value.
func (v Value) IsValid() bool { return v.kind != invalidValue }

// Bool returns v as a bool. Panics if v is not a bool.
func (v Value) Bool() bool {
	v.must(boolValue)
	return v.bits != 0
}

// Int32 returns v as an int32. Panics if v is not an int32.
func (v Value) Int32() int32 {
	v.must(int32Value)
	return int32(v.bits)
}

// Int64 returns v as an int64. Panics if v is not an int64.
func (v Value) Int64() int64 {
	v.must(int64Value)
	return int64(v.bits)
}

// Uint32 returns v as a uint32. Panics if v is not a uint32.
func (v Value) Uint32() uint32 {
	v.must(uint32Value)
	return uint32(v.bits)
}

// Uint64 returns v as a uint64. Panics if v is not a uint64.
func (v Value) Uint64() uint64 {
	v.must(uint64Value)
	return v.bits
}

// Float32 returns v as a float32. Panics if v is not a float32.
func (v Value) Float32() float32 {
	v.must(float32Value)
	return math.Float32frombits(uint32(v.bits))
}

// Float64 returns v as a float64. Panics if v is not a float64.
func (v Value) Float64() float64 {
	v.must(float64Value)
	return math.Float64frombits(v.bits)
}

// String returns v as a string.
//
// Unlike the other accessors, this does not panic: for values that are not
// strings it returns a description of the value, as with [fmt.Stringer].
func (v Value) String() string {
	if v.kind == stringValue {
		return string(v.bytes)
	}
	return fmt.Sprint(v.Interface())
}

// Bytes returns v as a byte slice. Panics if v is not bytes.
func (v Value) Bytes() []byte {
	v.must(bytesValue)
	return v.bytes
}

// Enum returns v as an enum number. Panics if v is not an enum.
func (v Value) Enum() protoreflect.EnumNumber {
	v.must(enumValue)
	return protoreflect.EnumNumber(int32(v.bits))
}

// Message returns v as a message. Panics if v is not a message.
//
// Returns nil for unset message fields.
func (v Value) Message() *Message {
	v.must(messageValue)
	m, _ := v.ref.(*Message)
	return m
}

// List returns v as a list. Panics if v is not a list.
func (v Value) List() List {
	v.must(listValue)
	return v.ref.(List) //nolint:errcheck
}

// Map returns v as a map. Panics if v is not a map.
func (v Value) Map() Map {
	v.must(mapValue)
	return v.ref.(Map) //nolint:errcheck
}

// Interface returns v as a Go value of the corresponding type, or nil for the
// zero Value.
func (v Value) Interface() any {
	switch v.kind {
	case boolValue:
		return v.Bool()
	case int32Value:
		return v.Int32()
	case int64Value:
		return v.Int64()
	case uint32Value:
		return v.Uint32()
	case uint64Value:
		return v.Uint64()
	case float32Value:
		return v.Float32()
	case float64Value:
		return v.Float64()
	case stringValue:
		return string(v.bytes)
	case bytesValue:
		return v.bytes
	case enumValue:
		return v.Enum()
	case messageValue, listValue, mapValue:
		return v.ref
	default:
		return nil
	}
}

func (v Value) must(k valueKind) {
	if v.kind != k {
		panic(fmt.Sprintf("hyperwire: type mismatch: cannot convert %s to %s", v.kind, k))
	}
}

// kindOf returns the kind of value stored in a singular field of kind k.
func kindOf(k protoreflect.Kind) valueKind {
	switch k {
	case protoreflect.BoolKind:
		return boolValue
	case protoreflect.EnumKind:
		return enumValue
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return int32Value
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return int64Value
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return uint32Value
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return uint64Value
	case protoreflect.FloatKind:
		return float32Value
	case protoreflect.DoubleKind:
		return float64Value
	case protoreflect.StringKind:
		return stringValue
	case protoreflect.BytesKind:
		return bytesValue
	default:
		return messageValue
	}
}

// scalarValue converts the storage of a scalar field into a Value. The storage
// representation matches the one used by Value, so no conversion is needed.
func scalarValue(f *schema.Field, bits uint64, bytes []byte) Value {
	k := kindOf(f.Kind)
	if k == stringValue || k == bytesValue {
		return Value{kind: k, bytes: bytes}
	}
	return Value{kind: k, bits: bits}
}
