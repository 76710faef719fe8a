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

// Package testdata provides the test schemas and the YAML test corpus.
//
// Schemas are FileDescriptorProtos written as textproto under schema/, so
// that tests do not depend on generated code. The corpus under corpus/
// contains wire-format specimens for those schemas.
package testdata

import (
	"bytes"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"gopkg.in/yaml.v3"

	"buf.build/go/hyperwire/internal/debug"
)

//go:embed schema/*.textproto corpus/*.yaml
var testdata embed.FS

var registry = sync.OnceValues(func() (*protoregistry.Files, *dynamicpb.Types) {
	set := new(descriptorpb.FileDescriptorSet)
	entries, err := fs.ReadDir(testdata, "schema")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(testdata, path.Join("schema", e.Name()))
		if err != nil {
			panic(err)
		}
		fdp := new(descriptorpb.FileDescriptorProto)
		if err := prototext.Unmarshal(data, fdp); err != nil {
			panic(fmt.Errorf("testdata: %s: %w", e.Name(), err))
		}
		set.File = append(set.File, fdp)
	}

	files, err := protodesc.NewFiles(set)
	if err != nil {
		panic(fmt.Errorf("testdata: %w", err))
	}
	return files, dynamicpb.NewTypes(files)
})

// Files returns the registry containing every test schema.
func Files() *protoregistry.Files {
	files, _ := registry()
	return files
}

// Types returns dynamic types for every test schema, including extensions.
func Types() *dynamicpb.Types {
	_, types := registry()
	return types
}

// FileDescriptorSet returns the serialized form of every test schema.
func FileDescriptorSet(t testing.TB) []byte {
	t.Helper()

	set := new(descriptorpb.FileDescriptorSet)
	Files().RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		set.File = append(set.File, protodesc.ToFileDescriptorProto(fd))
		return true
	})
	b, err := proto.Marshal(set)
	require.NoError(t, err)
	return b
}

// Message returns the descriptor for the named test message.
func Message(t testing.TB, name protoreflect.FullName) protoreflect.MessageDescriptor {
	t.Helper()

	d, err := Files().FindDescriptorByName(name)
	require.NoError(t, err, "looking up %q", name)
	md, ok := d.(protoreflect.MessageDescriptor)
	require.True(t, ok, "%q is not a message", name)
	return md
}

// Extension returns the descriptor for the named test extension.
func Extension(t testing.TB, name protoreflect.FullName) protoreflect.ExtensionDescriptor {
	t.Helper()

	xt, err := Types().FindExtensionByName(name)
	require.NoError(t, err, "looking up %q", name)
	return xt.TypeDescriptor().Descriptor()
}

// Harness is a generalization of [testing.TB] that also includes the
// [testing.T.Run] method. It must be generic because the signature of this
// function varies across [testing.T] and [testing.B].
type Harness[T any] interface {
	testing.TB
	Run(string, func(T)) bool
}

// TestCase is a test case from the corpus.
type TestCase struct {
	Name string `yaml:"-"`

	TypeName string                   `yaml:"type"`
	Type     protoreflect.MessageType `yaml:"-"`

	// If set, run this test as a benchmark.
	Benchmark bool `yaml:"benchmark"`

	// Three ways to encode the test: hex, textproto, and protoscope.
	Hex        []string `yaml:"hex"`
	TextProto  []string `yaml:"textproto"`
	Protoscope []string `yaml:"protoscope"`

	Specimens [][]byte `yaml:"-"`
}

// RunAll runs all of the test cases against the given harness.
func RunAll[T Harness[T]](t T, f func(T, *TestCase)) {
	t.Helper()

	err := fs.WalkDir(testdata, "corpus", func(p string, d fs.DirEntry, err error) error {
		require.NoError(t, err, "loading test %q", p)
		if d.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}

		t.Run(strings.TrimSuffix(path.Base(p), ".yaml"), func(t T) {
			if t, ok := any(t).(*testing.T); ok {
				t.Parallel()
			}
			data, err := fs.ReadFile(testdata, p)
			require.NoError(t, err, "loading test %q", p)

			if test := parseTestCase(t, p, data); test != nil {
				f(t, test)
			}
		})
		return nil
	})
	require.NoError(t, err)
}

// parseTestCase parses a single test case from the given data.
//
// This will call t.FailNow() if loading fails.
func parseTestCase(t testing.TB, p string, file []byte) *TestCase {
	t.Helper()
	defer debug.WithTesting(t)()

	require.True(t, bytes.HasSuffix(file, []byte("\n")), "missing trailing newline in %q", p)

	test := new(TestCase)
	dec := yaml.NewDecoder(bytes.NewReader(file))
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(test), "loading test %q", p)

	if _, isBench := t.(*testing.B); isBench && !test.Benchmark {
		t.SkipNow()
	}

	var err error
	test.Name = strings.TrimPrefix(p, "corpus/")
	test.Type, err = Types().FindMessageByName(protoreflect.FullName(test.TypeName))
	require.NoError(t, err, "loading type %q", test.TypeName)

	for _, raw := range test.Hex {
		r := strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "")
		b, err := hex.DecodeString(r.Replace(raw))
		require.NoError(t, err, "loading test %q", p)
		test.Specimens = append(test.Specimens, b)
	}

	for _, raw := range test.TextProto {
		m := test.Type.New().Interface()
		err = prototext.UnmarshalOptions{Resolver: Types()}.Unmarshal([]byte(raw), m)
		require.NoError(t, err, "loading test %q", p)

		b, err := proto.MarshalOptions{AllowPartial: true}.Marshal(m)
		require.NoError(t, err, "loading test %q", p)
		test.Specimens = append(test.Specimens, b)
	}

	for _, raw := range test.Protoscope {
		b, err := protoscope.NewScanner(raw).Exec()
		require.NoError(t, err, "loading test %q", p)
		test.Specimens = append(test.Specimens, b)
	}

	return test
}
