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

package opts

import (
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/pkg/query"
)

// Color modes accepted by --color
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// RootOpts contains the flag values of the root command
type RootOpts struct {
	Go         bool
	Regex      bool
	IgnoreCase bool
	WordRegex  bool
	Subvert    bool
	Types      []string
	TypesNot   []string
	TypeList   bool
	Hidden     bool
	Ignored    bool
	Jobs       int
	Unified    bool
	Quiet      bool
	ConfigFile string
	Debug      bool
	Color      string
}

// Validate rejects flag combinations that cannot work together
func (o *RootOpts) Validate() error {
	switch o.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.Errorf("invalid --color %q: want auto, always or never", o.Color)
	}
	if o.Jobs < 0 {
		return errors.Errorf("invalid --jobs %d: must not be negative", o.Jobs)
	}
	if o.Regex && o.Subvert {
		return errors.Errorf("--regex and --subvert cannot be combined")
	}
	return nil
}

// QueryOptions turns the matching flags into query options
func (o *RootOpts) QueryOptions() []query.Option {
	var out []query.Option
	if o.Regex {
		out = append(out, query.WithRegex())
	}
	if o.Subvert {
		out = append(out, query.WithSubvert())
	}
	if o.IgnoreCase {
		out = append(out, query.WithIgnoreCase())
	}
	if o.WordRegex {
		out = append(out, query.WithWordBoundaries())
	}
	return out
}
