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

package status

import (
	"fmt"
)

// FileFormatter defines how per-file records and the run summary are formatted
type FileFormatter interface {
	// FormatFileOperation formats one file record
	FormatFileOperation(info FileInfo) string

	// FormatSummary formats the end-of-run summary line
	FormatSummary(stats Stats, dryRun bool) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFileFormatter provides a default implementation of FileFormatter
type DefaultFileFormatter struct{}

// NewDefaultFileFormatter creates a new DefaultFileFormatter
func NewDefaultFileFormatter() *DefaultFileFormatter {
	return &DefaultFileFormatter{}
}

// FormatFileOperation formats a file record with emojis
func (f *DefaultFileFormatter) FormatFileOperation(info FileInfo) string {
	switch info.Status {
	case StatusWritten:
		return fmt.Sprintf("📝 Patched %s (%s)", info.Path, plural(info.Replacements, "replacement"))
	case StatusPreviewed:
		return fmt.Sprintf("👀 Would patch %s (%s)", info.Path, plural(info.Replacements, "replacement"))
	case StatusFailed:
		return fmt.Sprintf("❌ Failed %s", info.Path)
	default:
		return fmt.Sprintf("👍 Unchanged %s", info.Path)
	}
}

// FormatSummary formats "N replacements in M files", with a hint when nothing was written
func (f *DefaultFileFormatter) FormatSummary(stats Stats, dryRun bool) string {
	msg := fmt.Sprintf("%s in %s", plural(stats.TotalReplacements, "replacement"), plural(stats.FilesChanged, "file"))
	if stats.Errors > 0 {
		msg += fmt.Sprintf(" (%s)", plural(stats.Errors, "error"))
	}
	if dryRun && stats.FilesChanged > 0 {
		msg += ". This was a dry run: re-run with --go to write the changes"
	}
	return msg
}

// FormatError formats an error message with emoji
func (f *DefaultFileFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
