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
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	countWidth  = 16 // Width for the replacement count
	statusWidth = 10 // Width for status text
)

// 🎯 FormatFileLine formats a file record as one aligned, colored row
func FormatFileLine(info FileInfo) string {
	// Determine prefix symbol
	var prefix string
	switch info.Status {
	case StatusWritten:
		prefix = color.GreenString("✓")
	case StatusPreviewed:
		prefix = color.YellowString("⟳")
	case StatusFailed:
		prefix = color.RedString("✗")
	default:
		prefix = color.HiBlackString("-")
	}

	count := ""
	if info.Replacements > 0 {
		count = plural(info.Replacements, "replacement")
	}

	// Format parts with padding
	namePart := fmt.Sprintf("%-*s", nameWidth, info.Path)
	countPart := fmt.Sprintf("%-*s", countWidth, count)
	statusPart := fmt.Sprintf("%-*s", statusWidth, info.Status)

	// Build final string with indentation
	return strings.TrimRight(fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		prefix,
		namePart,
		countPart,
		statusPart,
	), " ")
}
