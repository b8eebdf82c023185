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

// Package filetype maps type names to glob patterns and decides which files
// a selection of types lets through.
package filetype

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrUnknownType     = errors.Base("unknown file type")
	ErrInvalidGlob     = errors.Base("invalid glob")
	ErrInvalidTypeName = errors.Base("invalid file type name")
)

// all selects or negates every registered type.
const all = "all"

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// 📄 Definition is one named type and its globs.
type Definition struct {
	Name  string
	Globs []string
}

// Defaults returns the built-in registry sorted by name.
func Defaults() []Definition {
	return NewBuilder().AddDefaults().Definitions()
}

// IsGlob reports whether a filter entry is a glob rather than a type name.
func IsGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

type selection struct {
	name   string
	negate bool
}

// 🏗️ Builder collects type definitions and selections, then compiles a Matcher.
type Builder struct {
	types      map[string][]string
	selections []selection
	synthetic  int
}

// NewBuilder returns an empty builder. Call AddDefaults for the built-in types.
func NewBuilder() *Builder {
	return &Builder{types: map[string][]string{}}
}

// AddDefaults registers the built-in types.
func (b *Builder) AddDefaults() *Builder {
	for name, globs := range defaultTypes {
		b.types[name] = append(b.types[name], globs...)
	}
	return b
}

// Add registers glob under name, creating the type if needed.
func (b *Builder) Add(name, glob string) error {
	if name == all || !validName.MatchString(name) {
		return errors.Errorf("%w: %q", ErrInvalidTypeName, name)
	}
	if glob == "" || !doublestar.ValidatePattern(glob) {
		return errors.Errorf("%w: %q", ErrInvalidGlob, glob)
	}
	b.types[name] = append(b.types[name], glob)
	return nil
}

// Select marks name as allowed. Selecting anything turns on allow-list mode.
func (b *Builder) Select(name string) *Builder {
	b.selections = append(b.selections, selection{name: name})
	return b
}

// Negate marks name as excluded. Negation always wins over selection.
func (b *Builder) Negate(name string) *Builder {
	b.selections = append(b.selections, selection{name: name, negate: true})
	return b
}

// AddSynthetic registers glob under a freshly minted type name and returns the name.
func (b *Builder) AddSynthetic(glob string) (string, error) {
	for {
		name := fmt.Sprintf("glob%d", b.synthetic)
		b.synthetic++
		if _, taken := b.types[name]; taken {
			continue
		}
		if err := b.Add(name, glob); err != nil {
			return "", err
		}
		return name, nil
	}
}

// Definitions returns every registered type sorted by name.
func (b *Builder) Definitions() []Definition {
	defs := make([]Definition, 0, len(b.types))
	for name, globs := range b.types {
		defs = append(defs, Definition{Name: name, Globs: append([]string(nil), globs...)})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// 🎯 Build compiles the selections. Unknown type names are reported here.
func (b *Builder) Build() (*Matcher, error) {
	m := &Matcher{}
	for _, s := range b.selections {
		var names []string
		if s.name == all {
			for name := range b.types {
				names = append(names, name)
			}
			sort.Strings(names)
		} else {
			if _, ok := b.types[s.name]; !ok {
				return nil, errors.Errorf("%w: %q", ErrUnknownType, s.name)
			}
			names = []string{s.name}
		}

		for _, name := range names {
			if s.negate {
				m.negated = append(m.negated, b.types[name]...)
			} else {
				m.selected = append(m.selected, b.types[name]...)
			}
		}
		if !s.negate {
			m.allowList = true
		}
	}
	return m, nil
}

// FromFilters applies the user filters in two passes: every selection first,
// then every negation. Entries that look like globs get a synthetic type.
func FromFilters(b *Builder, selected, ignored []string) error {
	for _, t := range selected {
		name, err := resolve(b, t)
		if err != nil {
			return errors.Errorf("selecting %q: %w", t, err)
		}
		b.Select(name)
	}
	for _, t := range ignored {
		name, err := resolve(b, t)
		if err != nil {
			return errors.Errorf("negating %q: %w", t, err)
		}
		b.Negate(name)
	}
	return nil
}

func resolve(b *Builder, t string) (string, error) {
	if !IsGlob(t) {
		return t, nil
	}
	return b.AddSynthetic(t)
}

// Decision is the result of matching a path against a Matcher.
type Decision int

const (
	None      Decision = iota // no type filter applies
	Ignore                    // excluded by a negated type or missing from the allow-list
	Whitelist                 // matched a selected type
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case Whitelist:
		return "whitelist"
	default:
		return "none"
	}
}

// 🔍 Matcher decides whether a file passes the type filters.
// The zero value lets everything through.
type Matcher struct {
	selected  []string
	negated   []string
	allowList bool
}

// Match checks a slash or OS separated path relative to the walk root.
// Globs without a slash are matched against the base name only.
func (m *Matcher) Match(relPath string) Decision {
	if m == nil {
		return None
	}
	rel := filepath.ToSlash(relPath)
	base := path.Base(rel)

	if matchAny(m.negated, rel, base) {
		return Ignore
	}
	if matchAny(m.selected, rel, base) {
		return Whitelist
	}
	if m.allowList {
		return Ignore
	}
	return None
}

func matchAny(globs []string, rel, base string) bool {
	for _, g := range globs {
		target := base
		if strings.Contains(g, "/") {
			target = rel
			g = strings.TrimPrefix(g, "/")
		}
		if ok, _ := doublestar.Match(g, target); ok {
			return true
		}
	}
	return false
}
