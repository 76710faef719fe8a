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

// wiredump inspects protobuf wire data.
//
// With -descriptors and -type, it parses the input as the named message using
// hyperwire, prints it, and optionally writes the re-encoded message to -o.
// With -protoscope, it prints a disassembly of the raw input instead.
//
// Input is read from the file named by the first argument, or from stdin.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/protocolbuffers/protoscope"
	"github.com/rs/zerolog"
	"golang.org/x/term"
	"google.golang.org/protobuf/reflect/protoreflect"

	"buf.build/go/hyperwire"
)

type options struct {
	descriptors string
	typeName    string
	config      string
	disassemble bool
	chunk       int
	output      string
	input       string
}

func main() {
	log := newLogger(os.Stderr)
	log.Debug().Str("argv", shellescape.QuoteCommand(os.Args)).Msg("invoked")

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		os.Exit(2)
	}
	if err := run(log, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("wiredump failed")
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("wiredump", flag.ContinueOnError)
	fs.StringVar(&opts.descriptors, "descriptors", "", "path to a binary FileDescriptorSet")
	fs.StringVar(&opts.typeName, "type", "", "full name of the message type to parse")
	fs.StringVar(&opts.config, "config", "", "YAML or TOML file with parser and arena settings")
	fs.BoolVar(&opts.disassemble, "protoscope", false, "print a protoscope disassembly of the input and exit")
	fs.IntVar(&opts.chunk, "chunk", 4096, "read size for streaming input; 0 reads it all at once")
	fs.StringVar(&opts.output, "o", "", "write the re-encoded message to this file")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func newLogger(w *os.File) zerolog.Logger {
	var out io.Writer = w
	if term.IsTerminal(int(w.Fd())) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("app", "wiredump").Logger()
}

func run(log zerolog.Logger, opts options, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if opts.input != "" {
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	if opts.disassemble {
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, protoscope.Write(data, protoscope.WriterOptions{}))
		return err
	}

	if opts.descriptors == "" || opts.typeName == "" {
		return errors.New("-descriptors and -type are required unless -protoscope is set")
	}

	cfg := new(hyperwire.Config)
	if opts.config != "" {
		var err error
		if cfg, err = hyperwire.LoadConfig(opts.config); err != nil {
			return err
		}
		log.Info().Str("path", opts.config).Msg("loaded config")
	}

	schema, err := os.ReadFile(opts.descriptors)
	if err != nil {
		return err
	}
	ty, err := hyperwire.CompileFromBytes(schema, protoreflect.FullName(opts.typeName))
	if err != nil {
		return err
	}

	arenaOpts := cfg.ArenaOptions()
	var sampler *hyperwire.Sampler
	if cfg.Arena.SampleRate > 0 {
		sampler = hyperwire.NewSampler(cfg.Arena.SampleRate)
		arenaOpts = append(arenaOpts, hyperwire.WithSampler(sampler))
	}
	arena := hyperwire.NewArena(arenaOpts...)
	msg := ty.New(arena)

	var src hyperwire.Source
	if opts.chunk > 0 {
		src = hyperwire.ReaderSource(in, opts.chunk)
	} else {
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		src = hyperwire.BytesSource(data)
	}

	start := time.Now()
	err = msg.UnmarshalFrom(src, cfg.UnmarshalOptions()...)
	elapsed := time.Since(start)

	var perr *hyperwire.ParseError
	if errors.As(err, &perr) {
		log.Error().Int64("offset", perr.Offset()).Msg("malformed input")
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", ty.Descriptor().FullName(), err)
	}

	unknown := 0
	if msg.HasUnknown() {
		unknown = msg.Unknown().Len()
	}
	log.Info().
		Str("type", string(ty.Descriptor().FullName())).
		Int("size", msg.ByteSize()).
		Int("unknown", unknown).
		Dur("elapsed", elapsed).
		Int64("arena_used", arena.SpaceUsed()).
		Int64("arena_allocated", arena.SpaceAllocated()).
		Msg("parsed")

	if sampler != nil {
		r := sampler.Report()
		log.Info().
			Str("sampler", r.ID.String()).
			Int64("samples", r.Samples).
			Float64("mean_requested", r.MeanRequested).
			Float64("mean_wasted", r.MeanWasted).
			Int64("high_water", r.HighWater).
			Msg("arena samples")
	}

	if err := msg.CheckInitialized(); err != nil {
		log.Warn().Err(err).Msg("message is not initialized")
	}

	p := &printer{w: stdout}
	p.message(msg)
	if p.err != nil {
		return p.err
	}

	if opts.output == "" {
		return nil
	}
	out, err := msg.Marshal(hyperwire.WithPartialMarshal(true))
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return err
	}
	log.Info().Str("path", opts.output).Int("bytes", len(out)).Msg("wrote re-encoded message")
	return nil
}

// printer writes a message in a format close to the protobuf text format.
type printer struct {
	w      io.Writer
	indent int
	err    error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("  ", p.indent)+format+"\n", args...)
}

func (p *printer) message(m *hyperwire.Message) {
	m.Range(func(fd protoreflect.FieldDescriptor, v hyperwire.Value) bool {
		name := string(fd.Name())
		if fd.IsExtension() {
			name = "[" + string(fd.FullName()) + "]"
		}
		switch {
		case fd.IsMap():
			v.Map().Range(func(k, v hyperwire.Value) bool {
				p.line("%s {", name)
				p.indent++
				p.field("key", fd.MapKey(), k)
				p.field("value", fd.MapValue(), v)
				p.indent--
				p.line("}")
				return p.err == nil
			})
		case fd.IsList():
			l := v.List()
			for i := range l.Len() {
				p.field(name, fd, l.Get(i))
			}
		default:
			p.field(name, fd, v)
		}
		return p.err == nil
	})

	if m.HasUnknown() {
		p.line("# %d unknown fields", m.Unknown().Len())
	}
}

func (p *printer) field(name string, fd protoreflect.FieldDescriptor, v hyperwire.Value) {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		p.line("%s {", name)
		if m := v.Message(); m != nil {
			p.indent++
			p.message(m)
			p.indent--
		}
		p.line("}")
	case protoreflect.StringKind:
		p.line("%s: %s", name, strconv.Quote(v.String()))
	case protoreflect.BytesKind:
		p.line("%s: %s", name, strconv.Quote(string(v.Bytes())))
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			p.line("%s: %s", name, ev.Name())
			return
		}
		p.line("%s: %d", name, v.Enum())
	default:
		p.line("%s: %v", name, v)
	}
}
