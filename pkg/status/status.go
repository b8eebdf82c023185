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
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus is what happened to one file during a run
type FileStatus int

const (
	StatusUnknown FileStatus = iota
	StatusPreviewed          // changes found, dry run
	StatusWritten            // changes found and written
	StatusFailed             // could not be read, matched or written
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusPreviewed:
		return "previewed"
	case StatusWritten:
		return "written"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo is the record kept for every file that had changes or failed
type FileInfo struct {
	Path         string     // path as handed to the patcher
	Status       FileStatus // outcome
	Replacements int        // lines changed
	Error        error      // set when Status is StatusFailed
}

// 📈 Stats is a snapshot of the run counters.
type Stats struct {
	FilesChanged      int // files with at least one replacement
	TotalReplacements int // replacements across those files
	Errors            int // failures recorded during the run
}

// MatchingFiles reports whether the run found anything to replace.
func (s Stats) MatchingFiles() bool { return s.FilesChanged > 0 }

// 🔧 Counter accumulates Stats and per-file records. Safe for concurrent use.
type Counter struct {
	logger    *zerolog.Logger
	formatter FileFormatter

	mu    sync.Mutex
	stats Stats
	files map[string]FileInfo
}

// 🏭 New creates a new counter. A nil logger discards the per-file debug lines.
func New(logger *zerolog.Logger) *Counter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Counter{
		logger:    logger,
		formatter: NewDefaultFileFormatter(),
		files:     make(map[string]FileInfo),
	}
}

// Update records one file with n replacements as previewed. Counters only grow.
func (c *Counter) Update(path string, n int) error {
	if n <= 0 {
		return errors.Errorf("recording %s: replacement count must be positive, got %d", path, n)
	}

	info := FileInfo{Path: path, Status: StatusPreviewed, Replacements: n}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.files[path]; seen {
		return errors.Errorf("recording %s: file already counted", path)
	}
	c.files[path] = info
	c.stats.FilesChanged++
	c.stats.TotalReplacements += n

	c.logger.Debug().Str("path", path).Int("replacements", n).Msg(c.formatter.FormatFileOperation(info))
	return nil
}

// MarkWritten flips a previewed file to written once its patch was applied.
func (c *Counter) MarkWritten(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info, ok := c.files[path]; ok && info.Status == StatusPreviewed {
		info.Status = StatusWritten
		c.files[path] = info
	}
}

// RecordError counts a recoverable failure.
func (c *Counter) RecordError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Errors++
	if info, ok := c.files[path]; ok {
		info.Status = StatusFailed
		info.Error = err
		c.files[path] = info
	} else if path != "" {
		c.files[path] = FileInfo{Path: path, Status: StatusFailed, Error: err}
	}

	c.logger.Debug().Str("path", path).Err(err).Msg(c.formatter.FormatError(err))
}

// Stats returns a snapshot of the counters.
func (c *Counter) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetFileInfo returns the record kept for path.
func (c *Counter) GetFileInfo(path string) (FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.files[path]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", path)
	}
	return info, nil
}

// Summary formats the counters with the counter's formatter.
func (c *Counter) Summary(dryRun bool) string {
	return c.formatter.FormatSummary(c.Stats(), dryRun)
}
