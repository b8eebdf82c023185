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

package operation_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/pkg/config"
	"github.com/walteh/sweep/pkg/log"
	"github.com/walteh/sweep/pkg/operation"
	"github.com/walteh/sweep/pkg/patch"
	"github.com/walteh/sweep/pkg/query"
	"github.com/walteh/sweep/pkg/status"
	"github.com/walteh/sweep/pkg/walk"
)

// 🧪 createTestEnv creates a temp tree and a context carrying test loggers
func createTestEnv(t *testing.T, files map[string]string) (context.Context, string, *bytes.Buffer) {
	t.Helper()

	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "creating dir for %s", rel)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "writing %s", rel)
	}

	zlog := zerolog.New(zerolog.NewTestWriter(t))
	console := &bytes.Buffer{}
	logger := log.New(console, zerolog.DebugLevel).WithZerolog(zlog)

	ctx := zlog.WithContext(context.Background())
	ctx = log.NewContext(ctx, logger)
	return ctx, root, console
}

func mustQuery(t *testing.T, pattern, replacement string, opts ...query.Option) *query.Query {
	t.Helper()
	q, err := query.New(pattern, replacement, opts...)
	require.NoError(t, err, "building query")
	return q
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err, "reading %s", rel)
	return string(data)
}

func run(t *testing.T, ctx context.Context, root string, settings config.Settings, q *query.Query) status.Stats {
	t.Helper()
	dp, err := operation.New(operation.Options{Root: root, Settings: settings})
	require.NoError(t, err, "creating directory patcher")
	stats, err := dp.Run(ctx, q)
	require.NoError(t, err, "running")
	return stats
}

func TestDirectoryPatcher(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		settings  config.Settings
		query     func(t *testing.T) *query.Query
		wantStats status.Stats
		wantFiles map[string]string
	}{
		{
			name:      "literal_write",
			files:     map[string]string{"a.txt": "foo\nbar foo\nbaz\n"},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "qux") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 2},
			wantFiles: map[string]string{"a.txt": "qux\nbar qux\nbaz\n"},
		},
		{
			name:      "dry_run_leaves_bytes",
			files:     map[string]string{"a.txt": "foo\nbar foo\nbaz\n"},
			settings:  config.Settings{DryRun: true},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "qux") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 2},
			wantFiles: map[string]string{"a.txt": "foo\nbar foo\nbaz\n"},
		},
		{
			name:      "regex_template",
			files:     map[string]string{"notes.md": "v2 release\nnothing here\n"},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, `v(\d+)`, "version-$1", query.WithRegex()) },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 1},
			wantFiles: map[string]string{"notes.md": "version-2 release\nnothing here\n"},
		},
		{
			name: "no_match_untouched",
			files: map[string]string{
				"a.txt": "alpha\n",
				"b.txt": "beta",
			},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "gamma", "delta") },
			wantStats: status.Stats{},
			wantFiles: map[string]string{"a.txt": "alpha\n", "b.txt": "beta"},
		},
		{
			name: "binary_never_written",
			files: map[string]string{
				"blob.bin": "foo\x00foo\n",
				"text.txt": "foo\n",
			},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "bar") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 1},
			wantFiles: map[string]string{"blob.bin": "foo\x00foo\n", "text.txt": "bar\n"},
		},
		{
			name: "type_filters",
			files: map[string]string{
				"a.rs":      "foo\n",
				"a_test.rs": "foo\n",
				"a.py":      "foo\n",
			},
			settings: config.Settings{
				SelectedFileTypes: []string{"rust"},
				IgnoredFileTypes:  []string{"*_test.rs"},
			},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "bar") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 1},
			wantFiles: map[string]string{"a.rs": "bar\n", "a_test.rs": "foo\n", "a.py": "foo\n"},
		},
		{
			name: "hidden_and_ignored_defaults",
			files: map[string]string{
				".gitignore":     "build/\n",
				"build/out.txt":  "foo\n",
				".config/x.txt":  "foo\n",
				"src/main.txt":   "foo\n",
				".git/HEAD":      "foo\n",
				"src/.local.txt": "foo\n",
			},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "bar") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 1},
			wantFiles: map[string]string{
				"build/out.txt":  "foo\n",
				".config/x.txt":  "foo\n",
				"src/main.txt":   "bar\n",
				".git/HEAD":      "foo\n",
				"src/.local.txt": "foo\n",
			},
		},
		{
			name: "hidden_and_ignored_enabled",
			files: map[string]string{
				".gitignore":    "build/\n",
				"build/out.txt": "foo\n",
				".config/x.txt": "foo\n",
				".git/HEAD":     "foo\n",
			},
			settings:  config.Settings{Hidden: true, Ignored: true},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "bar") },
			wantStats: status.Stats{FilesChanged: 2, TotalReplacements: 2},
			wantFiles: map[string]string{
				"build/out.txt": "bar\n",
				".config/x.txt": "bar\n",
				".git/HEAD":     "foo\n",
			},
		},
		{
			name:      "crlf_preserved",
			files:     map[string]string{"win.txt": "foo\r\nkeep\r\nfoo"},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo", "bar") },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 2},
			wantFiles: map[string]string{"win.txt": "bar\r\nkeep\r\nbar"},
		},
		{
			name:      "subvert_variants",
			files:     map[string]string{"code.go": "fooBar := FooBar{}\nconst FOO_BAR = foo_bar\n"},
			query:     func(t *testing.T) *query.Query { return mustQuery(t, "foo_bar", "spam_eggs", query.WithSubvert()) },
			wantStats: status.Stats{FilesChanged: 1, TotalReplacements: 2},
			wantFiles: map[string]string{"code.go": "spamEggs := SpamEggs{}\nconst SPAM_EGGS = spam_eggs\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, root, _ := createTestEnv(t, tt.files)

			stats := run(t, ctx, root, tt.settings, tt.query(t))
			assert.Equal(t, tt.wantStats, stats, "stats should match")

			for rel, want := range tt.wantFiles {
				assert.Equal(t, want, readFile(t, root, rel), "content of %s", rel)
			}
		})
	}
}

func TestDirectoryPatcher_PreviewMatchesInDryRunAndWrite(t *testing.T) {
	files := map[string]string{"a.txt": "foo\nbar foo\nbaz\n"}

	ctx, root, console := createTestEnv(t, files)
	run(t, ctx, root, config.Settings{DryRun: true}, mustQuery(t, "foo", "qux"))
	dry := console.String()

	ctx2, root2, console2 := createTestEnv(t, files)
	run(t, ctx2, root2, config.Settings{}, mustQuery(t, "foo", "qux"))
	wet := console2.String()

	path := filepath.Join(root, "a.txt")
	wantPatch := path + "\n1 - foo\n1 + qux\n2 - bar foo\n2 + bar qux\n\n"
	assert.Contains(t, dry, wantPatch, "dry run previews the patch")
	assert.Contains(t, dry, "2 replacements in 1 file. This was a dry run")

	wantPatch2 := filepath.Join(root2, "a.txt") + "\n1 - foo\n1 + qux\n2 - bar foo\n2 + bar qux\n\n"
	assert.Contains(t, wet, wantPatch2, "writing previews the same patch")
	assert.Less(t, strings.Index(wet, wantPatch2), strings.Index(wet, "written"), "preview comes before the write")
	assert.Contains(t, wet, "2 replacements in 1 file\n")
}

func TestDirectoryPatcher_Idempotent(t *testing.T) {
	ctx, root, _ := createTestEnv(t, map[string]string{"a.txt": "foo\nfoo\n", "b.txt": "foo"})
	q := mustQuery(t, "foo", "bar")

	first := run(t, ctx, root, config.Settings{}, q)
	assert.Equal(t, status.Stats{FilesChanged: 2, TotalReplacements: 3}, first)

	second := run(t, ctx, root, config.Settings{}, q)
	assert.Equal(t, status.Stats{}, second, "nothing left to replace")
}

func TestDirectoryPatcher_NoMatchesNotice(t *testing.T) {
	ctx, root, console := createTestEnv(t, map[string]string{"a.txt": "alpha\n"})

	stats := run(t, ctx, root, config.Settings{}, mustQuery(t, "gamma", "delta"))
	assert.False(t, stats.MatchingFiles())
	assert.Contains(t, console.String(), `ℹ️  no matches for "gamma"`)

	ctx2, root2, console2 := createTestEnv(t, map[string]string{"a.txt": "gamma\n"})
	run(t, ctx2, root2, config.Settings{}, mustQuery(t, "gamma", "delta"))
	assert.NotContains(t, console2.String(), "no matches")
}

func TestDirectoryPatcher_SymlinkedRoot(t *testing.T) {
	ctx, root, _ := createTestEnv(t, map[string]string{"a.txt": "foo\n", "sub/b.txt": "foo\n"})
	link := filepath.Join(t.TempDir(), "checkout")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	stats := run(t, ctx, link, config.Settings{}, mustQuery(t, "foo", "bar"))
	assert.Equal(t, status.Stats{FilesChanged: 2, TotalReplacements: 2}, stats)
	assert.Equal(t, "bar\n", readFile(t, root, "a.txt"))
	assert.Equal(t, "bar\n", readFile(t, root, "sub/b.txt"))

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "the root link itself is left alone")
}

func TestDirectoryPatcher_Parallel(t *testing.T) {
	files := map[string]string{}
	wantTotal := 0
	for i := 0; i < 40; i++ {
		n := i%4 + 1
		files[fmt.Sprintf("dir%d/file%02d.txt", i%5, i)] = strings.Repeat("foo\n", n) + "keep\n"
		wantTotal += n
	}
	files["skip.txt"] = "nothing\n"

	for _, dryRun := range []bool{true, false} {
		t.Run(fmt.Sprintf("dry_run_%v", dryRun), func(t *testing.T) {
			ctx, root, _ := createTestEnv(t, files)

			dp, err := operation.New(operation.Options{Root: root, Settings: config.Settings{Jobs: 8, DryRun: dryRun}})
			require.NoError(t, err)

			stats, err := dp.Run(ctx, mustQuery(t, "foo", "bar"))
			require.NoError(t, err)
			assert.Equal(t, status.Stats{FilesChanged: 40, TotalReplacements: wantTotal}, stats)

			assert.Equal(t, stats, dp.Stats(), "stats stay readable after the run")

			for rel, content := range files {
				want := content
				if !dryRun {
					want = strings.ReplaceAll(content, "foo", "bar")
				}
				assert.Equal(t, want, readFile(t, root, rel), rel)
			}
		})
	}
}

func TestDirectoryPatcher_RootFile(t *testing.T) {
	ctx, root, _ := createTestEnv(t, map[string]string{"only.py": "foo\n", "other.py": "foo\n"})

	// a file named directly bypasses type filters
	stats := run(t, ctx, filepath.Join(root, "only.py"), config.Settings{SelectedFileTypes: []string{"rust"}}, mustQuery(t, "foo", "bar"))
	assert.Equal(t, status.Stats{FilesChanged: 1, TotalReplacements: 1}, stats)
	assert.Equal(t, "bar\n", readFile(t, root, "only.py"))
	assert.Equal(t, "foo\n", readFile(t, root, "other.py"))
}

func TestDirectoryPatcher_UnreadableDirectoryIsSkipped(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	ctx, root, console := createTestEnv(t, map[string]string{"ok/a.txt": "foo\n", "locked/b.txt": "foo\n"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	stats := run(t, ctx, root, config.Settings{}, mustQuery(t, "foo", "bar"))
	assert.Equal(t, status.Stats{FilesChanged: 1, TotalReplacements: 1, Errors: 1}, stats)
	assert.Equal(t, "bar\n", readFile(t, root, "ok/a.txt"))
	assert.Contains(t, console.String(), "skipping "+locked)
}

func TestDirectoryPatcher_WriteFailureStopsRun(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	ctx, root, _ := createTestEnv(t, map[string]string{"ro/a.txt": "foo\n"})
	ro := filepath.Join(root, "ro")
	require.NoError(t, os.Chmod(ro, 0o555))
	t.Cleanup(func() { _ = os.Chmod(ro, 0o755) })

	dp, err := operation.New(operation.Options{Root: root, Settings: config.Settings{}})
	require.NoError(t, err)

	stats, err := dp.Run(ctx, mustQuery(t, "foo", "bar"))
	require.Error(t, err)
	assert.ErrorIs(t, err, patch.ErrIO)

	var ioErr *patch.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, filepath.Join(ro, "a.txt"), ioErr.Path)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, "foo\n", readFile(t, root, "ro/a.txt"), "original stays intact")
}

func TestDirectoryPatcher_Cancelled(t *testing.T) {
	ctx, root, _ := createTestEnv(t, map[string]string{"a.txt": "foo\n"})
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	dp, err := operation.New(operation.Options{Root: root, Settings: config.Settings{}})
	require.NoError(t, err)

	_, err = dp.Run(ctx, mustQuery(t, "foo", "bar"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "foo\n", readFile(t, root, "a.txt"))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    operation.Options
		wantErr string
	}{
		{
			name:    "missing_root",
			opts:    operation.Options{},
			wantErr: "root is required",
		},
		{
			name:    "invalid_settings",
			opts:    operation.Options{Root: ".", Settings: config.Settings{Jobs: -1}},
			wantErr: "validating settings",
		},
		{
			name:    "unknown_type",
			opts:    operation.Options{Root: ".", Settings: config.Settings{SelectedFileTypes: []string{"nope"}}},
			wantErr: "building walker",
		},
		{
			name: "custom_walker",
			opts: operation.Options{Root: ".", Walker: walk.New(".", walk.Options{})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dp, err := operation.New(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, dp)
		})
	}
}

func TestRunRequiresQuery(t *testing.T) {
	dp, err := operation.New(operation.Options{Root: t.TempDir()})
	require.NoError(t, err)

	_, err = dp.Run(context.Background(), nil)
	assert.Error(t, err)
}
