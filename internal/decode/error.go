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
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	ErrorOk ErrorCode = iota
	// These match the errors in protowire.
	ErrorTruncated
	ErrorFieldNumber
	ErrorOverflow
	ErrorReserved
	ErrorEndGroup
	ErrorRecursionDepth

	ErrorUTF8
	ErrorTooBig
)

// Sentinel errors that a [ParseError] unwraps to.
var (
	ErrTruncated      = io.ErrUnexpectedEOF
	ErrFieldNumber    = errors.New("invalid field number")
	ErrOverflow       = errors.New("variable length integer overflow")
	ErrReserved       = errors.New("cannot parse reserved wire type")
	ErrEndGroup       = errors.New("mismatching end group marker")
	ErrRecursionDepth = errors.New("recursion depth exceeded")
	ErrUTF8           = errors.New("invalid UTF-8 in string")
	ErrTooBig         = errors.New("input exceeds the size limit")
)

var errs = [...]error{
	ErrorOk:             nil,
	ErrorTruncated:      ErrTruncated,
	ErrorFieldNumber:    ErrFieldNumber,
	ErrorOverflow:       ErrOverflow,
	ErrorReserved:       ErrReserved,
	ErrorEndGroup:       ErrEndGroup,
	ErrorRecursionDepth: ErrRecursionDepth,
	ErrorUTF8:           ErrUTF8,
	ErrorTooBig:         ErrTooBig,
}

// ErrorCode is one of the possible types of errors in [ParseError].
type ErrorCode int

// ParseError is an error returned by the parser for malformed input.
type ParseError struct {
	code   ErrorCode
	offset int64
}

// Code returns the kind of failure.
func (e *ParseError) Code() ErrorCode {
	return e.code
}

// Offset returns the absolute input offset at which the error occurred.
func (e *ParseError) Offset() int64 {
	return e.offset
}

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *ParseError) Unwrap() error {
	return errs[e.code]
}

// Error implements [error].
func (e *ParseError) Error() string {
	return fmt.Sprintf("hyperwire: parser error at offset %d/%#x: %v", e.offset, e.offset, e.Unwrap())
}

// RequiredNotSetError is returned when a parsed message is missing required
// fields.
type RequiredNotSetError struct {
	Type    protoreflect.FullName
	Missing []string
}

// Error implements [error].
func (e *RequiredNotSetError) Error() string {
	return fmt.Sprintf("hyperwire: %s is missing required fields: %s", e.Type, strings.Join(e.Missing, ", "))
}

// abort is the panic payload used to unwind out of the parser loop.
type abort struct{ err error }
