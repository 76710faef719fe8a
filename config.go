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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"
)

// Config is a file-loadable bundle of parser and arena settings.
//
// A config is written as YAML or TOML:
//
//	unmarshal:
//	  max_depth: 64
//	  discard_unknown: true
//	arena:
//	  start_block_size: 4096
//	  sample_rate: 0.01
//
// Zero values mean "use the default".
type Config struct {
	Unmarshal UnmarshalConfig `yaml:"unmarshal" toml:"unmarshal"`
	Arena     ArenaConfig     `yaml:"arena" toml:"arena"`
}

// UnmarshalConfig holds the settings behind [UnmarshalOption].
type UnmarshalConfig struct {
	MaxDepth         int   `yaml:"max_depth" toml:"max_depth"`
	MaxSize          int64 `yaml:"max_size" toml:"max_size"`
	DiscardUnknown   bool  `yaml:"discard_unknown" toml:"discard_unknown"`
	AllowPartial     bool  `yaml:"allow_partial" toml:"allow_partial"`
	AllowAlias       bool  `yaml:"allow_alias" toml:"allow_alias"`
	AllowInvalidUTF8 bool  `yaml:"allow_invalid_utf8" toml:"allow_invalid_utf8"`
}

// ArenaConfig holds the settings behind [ArenaOption].
type ArenaConfig struct {
	StartBlockSize int     `yaml:"start_block_size" toml:"start_block_size"`
	MaxBlockSize   int     `yaml:"max_block_size" toml:"max_block_size"`
	SampleRate     float64 `yaml:"sample_rate" toml:"sample_rate"`
}

// Config formats understood by [ParseConfig].
const (
	YAML = "yaml"
	TOML = "toml"
)

// LoadConfig reads a config file, choosing the format by its extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hyperwire: loading config: %w", err)
	}

	var format string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = YAML
	case ".toml":
		format = TOML
	default:
		return nil, fmt.Errorf("hyperwire: loading config %s: unknown extension %q", path, ext)
	}

	c, err := ParseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return c, nil
}

// ParseConfig parses a config in the given format. Unknown keys are an error.
func ParseConfig(data []byte, format string) (*Config, error) {
	c := new(Config)
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("hyperwire: parsing config: %w", err)
		}
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("hyperwire: parsing config: %w", err)
		}
	default:
		return nil, fmt.Errorf("hyperwire: unknown config format %q", format)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, name string, v any) {
		if !ok {
			errs = append(errs, fmt.Errorf("hyperwire: invalid config: %s = %v", name, v))
		}
	}
	check(c.Unmarshal.MaxDepth >= 0, "unmarshal.max_depth", c.Unmarshal.MaxDepth)
	check(c.Unmarshal.MaxSize >= 0, "unmarshal.max_size", c.Unmarshal.MaxSize)
	check(c.Arena.StartBlockSize >= 0, "arena.start_block_size", c.Arena.StartBlockSize)
	check(c.Arena.MaxBlockSize >= 0, "arena.max_block_size", c.Arena.MaxBlockSize)
	check(c.Arena.SampleRate >= 0 && c.Arena.SampleRate <= 1, "arena.sample_rate", c.Arena.SampleRate)
	return errors.Join(errs...)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := new(Config)
	if err := deepcopy.Copy(out, c); err != nil {
		panic(fmt.Sprintf("hyperwire: copying config: %v", err))
	}
	return out
}

// UnmarshalOptions converts the config's parser settings into options.
func (c *Config) UnmarshalOptions() []UnmarshalOption {
	u := c.Unmarshal
	opts := []UnmarshalOption{
		WithDiscardUnknown(u.DiscardUnknown),
		WithAllowPartial(u.AllowPartial),
		WithAllowAlias(u.AllowAlias),
		WithAllowInvalidUTF8(u.AllowInvalidUTF8),
	}
	if u.MaxDepth > 0 {
		opts = append(opts, WithMaxDepth(u.MaxDepth))
	}
	if u.MaxSize > 0 {
		opts = append(opts, WithMaxSize(u.MaxSize))
	}
	return opts
}

// ArenaOptions converts the config's arena settings into options.
//
// If sampling is enabled, this creates a new [Sampler], which is shared by
// every arena created with the returned options.
func (c *Config) ArenaOptions() []ArenaOption {
	opts := []ArenaOption{WithBlockSizes(c.Arena.StartBlockSize, c.Arena.MaxBlockSize)}
	if c.Arena.SampleRate > 0 {
		opts = append(opts, WithSampler(NewSampler(c.Arena.SampleRate)))
	}
	return opts
}
