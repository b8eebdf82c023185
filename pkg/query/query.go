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

// Package query holds the find/replace rule applied to every line of every file.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalidPattern is matched by every error returned from New.
var ErrInvalidPattern = errors.Base("invalid pattern")

// PatternError reports a pattern that cannot be turned into a Query.
type PatternError struct {
	Pattern string
	Reason  string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern %q: %s: %v", e.Pattern, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInvalidPattern) match any PatternError.
func (e *PatternError) Is(target error) bool { return target == ErrInvalidPattern }

// 🔤 Mode says how the pattern is interpreted
type Mode int

const (
	ModeLiteral Mode = iota // exact substring
	ModeRegex               // regular expression, replacement may use $1 / ${name}
	ModeSubvert             // literal, applied to every case variant
)

func (m Mode) String() string {
	switch m {
	case ModeLiteral:
		return "literal"
	case ModeRegex:
		return "regex"
	case ModeSubvert:
		return "subvert"
	default:
		return "unknown"
	}
}

type options struct {
	mode       Mode
	regex      bool
	subvert    bool
	ignoreCase bool
	word       bool
}

// Option tweaks how New builds a Query.
type Option func(*options)

// WithRegex treats the pattern as a regular expression.
func WithRegex() Option {
	return func(o *options) { o.mode, o.regex = ModeRegex, true }
}

// WithSubvert replaces every case variant of the pattern (snake_case, CamelCase, ...)
// with the same variant of the replacement.
func WithSubvert() Option {
	return func(o *options) { o.mode, o.subvert = ModeSubvert, true }
}

// WithIgnoreCase matches regardless of letter case.
func WithIgnoreCase() Option {
	return func(o *options) { o.ignoreCase = true }
}

// WithWordBoundaries only matches whole words. A literal only gets a boundary
// on the sides where it starts or ends with a word character, so `foo()`
// still matches in "call foo() here". A regex is bounded on both sides.
func WithWordBoundaries() Option {
	return func(o *options) { o.word = true }
}

// 🎯 Query is an immutable pattern/replacement pair. It is safe for concurrent use.
type Query struct {
	pattern     string
	replacement string
	mode        Mode

	// re is nil for a plain case-sensitive literal without word boundaries
	re *regexp.Regexp

	// variants maps each subvert variant of the pattern to its replacement
	variants map[string]string
}

// 🏭 New builds a Query. The default is a case-sensitive literal match.
func New(pattern, replacement string, opts ...Option) (*Query, error) {
	o := options{mode: ModeLiteral}
	for _, opt := range opts {
		opt(&o)
	}

	if pattern == "" {
		return nil, &PatternError{Pattern: pattern, Reason: "pattern must not be empty"}
	}
	if o.regex && o.subvert {
		return nil, &PatternError{Pattern: pattern, Reason: "regex and subvert modes cannot be combined"}
	}

	q := &Query{
		pattern:     pattern,
		replacement: replacement,
		mode:        o.mode,
	}

	switch o.mode {
	case ModeRegex:
		expr := pattern
		if o.word {
			expr = `\b(?:` + expr + `)\b`
		}
		if o.ignoreCase {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Pattern: pattern, Reason: "compiling regular expression", Err: err}
		}
		q.re = re
	case ModeSubvert:
		if o.ignoreCase {
			return nil, &PatternError{Pattern: pattern, Reason: "subvert mode is already case aware and cannot ignore case"}
		}
		variants, re, err := compileVariants(pattern, replacement, o.word)
		if err != nil {
			return nil, &PatternError{Pattern: pattern, Reason: "building case variants", Err: err}
		}
		q.variants = variants
		q.re = re
	default:
		if o.ignoreCase || o.word {
			expr := regexp.QuoteMeta(pattern)
			if o.word {
				expr = wordBounded(expr, pattern)
			}
			if o.ignoreCase {
				expr = `(?i)` + expr
			}
			q.re = regexp.MustCompile(expr)
		}
	}

	return q, nil
}

// wordBounded adds \b to each side of expr where lit has a word character.
// A \b next to punctuation would demand a word character beyond it.
func wordBounded(expr, lit string) string {
	if isWordByte(lit[0]) {
		expr = `\b` + expr
	}
	if isWordByte(lit[len(lit)-1]) {
		expr += `\b`
	}
	return expr
}

// isWordByte matches the ASCII class used by \b.
func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// Pattern returns the pattern as given to New.
func (q *Query) Pattern() string { return q.pattern }

// Replacement returns the replacement as given to New.
func (q *Query) Replacement() string { return q.replacement }

// Mode returns how the pattern is interpreted.
func (q *Query) Mode() Mode { return q.mode }

// 🔍 Matches returns the line with every non-overlapping match replaced.
// The boolean is false when the pattern does not occur in the line.
// The line must not contain its terminator.
func (q *Query) Matches(line string) (string, bool) {
	switch {
	case q.re == nil:
		if !strings.Contains(line, q.pattern) {
			return "", false
		}
		return strings.ReplaceAll(line, q.pattern, q.replacement), true
	case !q.re.MatchString(line):
		return "", false
	case q.mode == ModeRegex:
		return q.re.ReplaceAllString(line, q.replacement), true
	case q.mode == ModeSubvert:
		return q.re.ReplaceAllStringFunc(line, func(m string) string {
			return q.variants[m]
		}), true
	default:
		return q.re.ReplaceAllLiteralString(line, q.replacement), true
	}
}

func (q *Query) String() string {
	return fmt.Sprintf("%s %q -> %q", q.mode, q.pattern, q.replacement)
}
