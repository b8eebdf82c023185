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
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestCounter(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	c := New(&logger)

	require.NoError(t, c.Update("a.go", 2))
	require.NoError(t, c.Update("b.go", 1))
	c.MarkWritten("a.go")

	assert.Equal(t, Stats{FilesChanged: 2, TotalReplacements: 3}, c.Stats())

	info, err := c.GetFileInfo("a.go")
	require.NoError(t, err)
	assert.Equal(t, StatusWritten, info.Status)

	info, err = c.GetFileInfo("b.go")
	require.NoError(t, err)
	assert.Equal(t, StatusPreviewed, info.Status)

	_, err = c.GetFileInfo("c.go")
	assert.Error(t, err, "untracked file")
}

func TestCounterRejectsBadUpdates(t *testing.T) {
	c := New(nil)

	assert.Error(t, c.Update("a.go", 0), "zero replacements are not a change")
	assert.Error(t, c.Update("a.go", -1))

	require.NoError(t, c.Update("a.go", 1))
	assert.Error(t, c.Update("a.go", 1), "a file is counted once")

	assert.Equal(t, Stats{FilesChanged: 1, TotalReplacements: 1}, c.Stats(), "rejected updates leave counters alone")
}

func TestCounterRecordError(t *testing.T) {
	c := New(nil)
	boom := errors.New("boom")

	require.NoError(t, c.Update("a.go", 4))
	c.RecordError("a.go", boom)
	c.RecordError("dir", boom)
	c.RecordError("", boom)

	stats := c.Stats()
	assert.Equal(t, 3, stats.Errors)
	assert.Equal(t, 1, stats.FilesChanged, "a failed write still had changes")

	info, err := c.GetFileInfo("a.go")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, 4, info.Replacements)

	info, err = c.GetFileInfo("dir")
	require.NoError(t, err)
	assert.ErrorIs(t, info.Error, boom)

	_, err = c.GetFileInfo("")
	assert.Error(t, err, "errors without a path are only counted")
}

func TestCounterConcurrent(t *testing.T) {
	c := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Update(fmt.Sprintf("f%02d.go", i), i%3+1))
			c.MarkWritten(fmt.Sprintf("f%02d.go", i))
		}(i)
	}
	wg.Wait()

	want := 0
	for i := 0; i < 50; i++ {
		want += i%3 + 1
	}

	stats := c.Stats()
	assert.Equal(t, 50, stats.FilesChanged)
	assert.Equal(t, want, stats.TotalReplacements)

	for i := 0; i < 50; i++ {
		info, err := c.GetFileInfo(fmt.Sprintf("f%02d.go", i))
		require.NoError(t, err)
		assert.Equal(t, StatusWritten, info.Status, info.Path)
	}
}

func TestFileStatusString(t *testing.T) {
	assert.Equal(t, "previewed", StatusPreviewed.String())
	assert.Equal(t, "written", StatusWritten.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
}

func TestStatsMatchingFiles(t *testing.T) {
	assert.False(t, Stats{}.MatchingFiles())
	assert.True(t, Stats{FilesChanged: 1, TotalReplacements: 1}.MatchingFiles())
}
