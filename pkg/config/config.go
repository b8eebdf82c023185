// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*FileConfig, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// DefaultFileNames are looked up, in order, in the root being patched.
var DefaultFileNames = []string{".sweep.hcl", ".sweep.yaml", ".sweep.yml", ".sweep.json"}

// ⚙️ Settings is everything the walk and the orchestrator need besides the query.
type Settings struct {
	DryRun            bool                // compute and preview, never write
	SelectedFileTypes []string            // type names or globs to allow
	IgnoredFileTypes  []string            // type names or globs to exclude
	Ignored           bool                // include files excluded by .gitignore/.ignore
	Hidden            bool                // include dot-prefixed entries
	TypeDefinitions   map[string][]string // extra named types
	Jobs              int                 // files processed at once, <= 1 is sequential
	Unified           bool                // preview as a unified diff
}

// DefaultSettings returns the settings used when no config file is found.
// Nothing is written unless the caller turns dry-run off.
func DefaultSettings() Settings {
	return Settings{DryRun: true}
}

// 🔍 Validate checks if the settings are usable
func (s *Settings) Validate() error {
	if s.Jobs < 0 {
		return errors.Errorf("jobs must not be negative, got %d", s.Jobs)
	}
	for name, globs := range s.TypeDefinitions {
		if name == "" {
			return errors.Errorf("type definition with an empty name")
		}
		if len(globs) == 0 {
			return errors.Errorf("type %q has no globs", name)
		}
	}
	return nil
}

// 📚 FileConfig is the on-disk configuration. Unset fields leave Settings alone.
type FileConfig struct {
	Types   map[string][]string `json:"types,omitempty" yaml:"types,omitempty" hcl:"types,optional"`
	Type    []string            `json:"type,omitempty" yaml:"type,omitempty" hcl:"type,optional"`
	TypeNot []string            `json:"type_not,omitempty" yaml:"type_not,omitempty" hcl:"type_not,optional"`
	Hidden  *bool               `json:"hidden,omitempty" yaml:"hidden,omitempty" hcl:"hidden,optional"`
	Ignored *bool               `json:"ignored,omitempty" yaml:"ignored,omitempty" hcl:"ignored,optional"`
	Jobs    *int                `json:"jobs,omitempty" yaml:"jobs,omitempty" hcl:"jobs,optional"`

	location string
}

// Location returns the file the config was loaded from.
func (fc *FileConfig) Location() string { return fc.location }

// Settings returns DefaultSettings with the file's values applied.
func (fc *FileConfig) Settings() Settings {
	s := DefaultSettings()
	if fc == nil {
		return s
	}

	if len(fc.Types) > 0 {
		s.TypeDefinitions = make(map[string][]string, len(fc.Types))
		for name, globs := range fc.Types {
			s.TypeDefinitions[name] = append([]string(nil), globs...)
		}
	}
	s.SelectedFileTypes = append(s.SelectedFileTypes, fc.Type...)
	s.IgnoredFileTypes = append(s.IgnoredFileTypes, fc.TypeNot...)
	if fc.Hidden != nil {
		s.Hidden = *fc.Hidden
	}
	if fc.Ignored != nil {
		s.Ignored = *fc.Ignored
	}
	if fc.Jobs != nil {
		s.Jobs = *fc.Jobs
	}
	return s
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*FileConfig, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	settings := cfg.Settings()
	if err := settings.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔎 Discover returns the first default config file found in dir, or "" if there is none.
func Discover(dir string) string {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}
