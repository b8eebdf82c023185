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

// Package patch computes and applies the line replacements of one file.
package patch

import (
	"bytes"
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Matcher is the part of a query the patcher needs.
type Matcher interface {
	Matches(line string) (string, bool)
}

// 🔄 Replacement is one line whose content changes.
// Original and New never include the line terminator.
type Replacement struct {
	LineNumber int // 1-based
	Original   string
	New        string
}

type line struct {
	text string
	term string // "\n", "\r\n" or "" for a last line without terminator
}

// 📄 FilePatcher holds the replacements computed for a single file.
type FilePatcher struct {
	path         string
	lines        []line
	replacements []Replacement
	writer       atomicWriter
}

// 🏭 Build reads path and matches every line against m.
//
// A nil patcher with a nil error means the file is not a candidate: it is binary,
// not valid UTF-8, or has no line that changes.
func Build(ctx context.Context, path string, m Matcher) (*FilePatcher, error) {
	logger := zerolog.Ctx(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	if !IsText(data) {
		logger.Debug().Str("path", path).Msg("skipping binary file")
		return nil, nil
	}

	p := &FilePatcher{
		path:   path,
		lines:  splitLines(string(data)),
		writer: defaultWriter,
	}

	for i, l := range p.lines {
		replaced, ok := m.Matches(l.text)
		if !ok || replaced == l.text {
			continue
		}
		p.replacements = append(p.replacements, Replacement{
			LineNumber: i + 1,
			Original:   l.text,
			New:        replaced,
		})
	}

	if len(p.replacements) == 0 {
		return nil, nil
	}

	logger.Debug().Str("path", path).Int("replacements", len(p.replacements)).Msg("file matched")
	return p, nil
}

// IsText reports whether data can be patched as text: no null byte and valid UTF-8.
func IsText(data []byte) bool {
	return bytes.IndexByte(data, 0) < 0 && utf8.Valid(data)
}

// Path returns the file this patcher was built from.
func (p *FilePatcher) Path() string { return p.path }

// Replacements returns the changed lines by ascending line number.
func (p *FilePatcher) Replacements() []Replacement {
	out := make([]Replacement, len(p.replacements))
	copy(out, p.replacements)
	return out
}

// 🏃 Run rewrites the file with every replacement applied.
// The original is replaced atomically or left as it was.
func (p *FilePatcher) Run(ctx context.Context) error {
	info, err := os.Stat(p.path)
	if err != nil {
		return &IOError{Op: "stat", Path: p.path, Err: err}
	}

	if err := p.writer.WriteFile(p.path, []byte(p.patched()), info.Mode().Perm()); err != nil {
		return &IOError{Op: "write", Path: p.path, Err: err}
	}

	zerolog.Ctx(ctx).Debug().Str("path", p.path).Int("replacements", len(p.replacements)).Msg("file patched")
	return nil
}

func (p *FilePatcher) patched() string {
	var sb strings.Builder
	next := 0
	for i, l := range p.lines {
		if next < len(p.replacements) && p.replacements[next].LineNumber == i+1 {
			sb.WriteString(p.replacements[next].New)
			next++
		} else {
			sb.WriteString(l.text)
		}
		sb.WriteString(l.term)
	}
	return sb.String()
}

// splitLines keeps each terminator apart from the text so matching never sees it.
func splitLines(s string) []line {
	var lines []line
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, line{text: s})
			break
		}
		text, term := s[:i], "\n"
		if strings.HasSuffix(text, "\r") {
			text, term = text[:len(text)-1], "\r\n"
		}
		lines = append(lines, line{text: text, term: term})
		s = s[i+1:]
	}
	return lines
}
