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

package patch

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Display configuration
var (
	headerColor  = color.New(color.Bold, color.FgCyan)
	lineNoColor  = color.New(color.Faint)
	removedColor = color.New(color.FgRed)
	removedMark  = color.New(color.FgRed, color.Bold, color.Underline)
	addedColor   = color.New(color.FgGreen)
	addedMark    = color.New(color.FgGreen, color.Bold, color.Underline)
)

// 📝 PrintPatch writes the path followed by every replaced line, old then new.
// The changed fragments of each line are highlighted when color is enabled.
func (p *FilePatcher) PrintPatch(w io.Writer) {
	if len(p.replacements) == 0 {
		return
	}
	fmt.Fprintln(w, headerColor.Sprint(p.path))

	width := len(fmt.Sprint(p.replacements[len(p.replacements)-1].LineNumber))
	dmp := diffmatchpatch.New()

	for _, r := range p.replacements {
		diffs := dmp.DiffMain(r.Original, r.New, false)
		diffs = dmp.DiffCleanupSemantic(diffs)

		var removed, added strings.Builder
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				removed.WriteString(removedColor.Sprint(d.Text))
				added.WriteString(addedColor.Sprint(d.Text))
			case diffmatchpatch.DiffDelete:
				removed.WriteString(removedMark.Sprint(d.Text))
			case diffmatchpatch.DiffInsert:
				added.WriteString(addedMark.Sprint(d.Text))
			}
		}

		lineNo := lineNoColor.Sprintf("%*d", width, r.LineNumber)
		fmt.Fprintf(w, "%s %s %s\n", lineNo, removedColor.Sprint("-"), removed.String())
		fmt.Fprintf(w, "%s %s %s\n", lineNo, addedColor.Sprint("+"), added.String())
	}
	fmt.Fprintln(w)
}

// noNewline follows a last line that has no terminator, as in `diff -u`.
const noNewline = "\\ No newline at end of file\n"

// UnifiedDiff renders the whole-file change as a standard unified diff
// with three lines of context, suitable for `patch -p1`.
func (p *FilePatcher) UnifiedDiff() (string, error) {
	diff := difflib.UnifiedDiff{
		A:        p.diffLines(false),
		B:        p.diffLines(true),
		FromFile: "a/" + strings.TrimPrefix(p.path, "/"),
		ToFile:   "b/" + strings.TrimPrefix(p.path, "/"),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", errors.Errorf("rendering unified diff: %w", err)
	}
	return text, nil
}

// diffLines returns one element per line with its terminator. A last line
// without terminator carries the no-newline marker so both sides stay comparable.
func (p *FilePatcher) diffLines(patched bool) []string {
	out := make([]string, len(p.lines))
	next := 0
	for i, l := range p.lines {
		text := l.text
		if patched && next < len(p.replacements) && p.replacements[next].LineNumber == i+1 {
			text = p.replacements[next].New
			next++
		}
		if l.term == "" {
			out[i] = text + "\n" + noNewline
			continue
		}
		out[i] = text + l.term
	}
	return out
}
