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

// Package walk yields the entries under a root that pass the eligibility filter.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/pkg/config"
	"github.com/walteh/sweep/pkg/filetype"
)

// ErrDirectoryRead is matched by every DirectoryReadError.
var ErrDirectoryRead = errors.Base("directory read error")

// DirectoryReadError reports an entry that could not be read during the walk.
// The walk carries on with the entry's siblings.
type DirectoryReadError struct {
	Path string
	Err  error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *DirectoryReadError) Unwrap() error { return e.Err }

func (e *DirectoryReadError) Is(target error) bool { return target == ErrDirectoryRead }

// ignoreFiles are read in every directory when ignore rules are on.
var ignoreFiles = []string{".gitignore", ".ignore"}

// 📄 Entry is one filesystem entry found under the root.
type Entry struct {
	Path    string      // root joined with RelPath
	RelPath string      // relative to the root
	Type    fs.FileMode // type bits only
}

// IsRegular reports whether the entry is a regular file.
func (e Entry) IsRegular() bool { return e.Type.IsRegular() }

// 🔧 Options control which entries are yielded.
type Options struct {
	Types              *filetype.Matcher // nil lets every file through
	RespectIgnoreFiles bool              // honor .gitignore and .ignore files
	SkipHidden         bool              // skip dot-prefixed entries
}

// 🚶 Walker walks one root.
type Walker struct {
	root string
	opts Options
}

// New returns a walker over root.
func New(root string, opts Options) *Walker {
	return &Walker{root: filepath.Clean(root), opts: opts}
}

// FromSettings builds the type filters and walker described by s.
func FromSettings(root string, s config.Settings) (*Walker, error) {
	b := filetype.NewBuilder().AddDefaults()

	names := make([]string, 0, len(s.TypeDefinitions))
	for name := range s.TypeDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, glob := range s.TypeDefinitions[name] {
			if err := b.Add(name, glob); err != nil {
				return nil, errors.Errorf("adding type %q: %w", name, err)
			}
		}
	}

	if err := filetype.FromFilters(b, s.SelectedFileTypes, s.IgnoredFileTypes); err != nil {
		return nil, errors.Errorf("applying type filters: %w", err)
	}

	types, err := b.Build()
	if err != nil {
		return nil, errors.Errorf("building type matcher: %w", err)
	}

	return New(root, Options{
		Types:              types,
		RespectIgnoreFiles: !s.Ignored,
		SkipHidden:         !s.Hidden,
	}), nil
}

// 🔄 Walk returns a lazy sequence of entries. Each call starts a fresh walk.
// Entries are in lexical order within a directory. Directories are yielded
// before their contents. Read failures are yielded as *DirectoryReadError and
// the walk continues; a cancelled context ends the walk with ctx.Err().
//
// A root that is a symlink is followed. Links below the root are not.
func (w *Walker) Walk(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		base := w.resolveRoot(ctx)
		ignores := w.loadIgnores(ctx, base)
		stopped := false

		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel := relPath(base, path)

			if err != nil {
				if !yield(Entry{Path: w.join(rel), RelPath: rel}, &DirectoryReadError{Path: w.join(rel), Err: err}) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}

			if rel == "." {
				if d.IsDir() {
					return nil
				}
				// a root that is a file was named explicitly and skips the filters
				if !yield(Entry{Path: path, RelPath: d.Name(), Type: d.Type()}, nil) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}

			if skip := w.skip(rel, d, ignores); skip {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(Entry{Path: w.join(rel), RelPath: rel, Type: d.Type()}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})

		if err != nil && !stopped {
			yield(Entry{Path: w.root, RelPath: "."}, err)
		}
	}
}

// resolveRoot returns the directory to walk: the root, or its target when the
// root is a symlink. Paths handed out still start with the root as given.
func (w *Walker) resolveRoot(ctx context.Context) string {
	info, err := os.Lstat(w.root)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return w.root
	}
	resolved, err := filepath.EvalSymlinks(w.root)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("root", w.root).Msg("resolving root symlink")
		return w.root
	}
	return resolved
}

func (w *Walker) join(rel string) string {
	if rel == "." {
		return w.root
	}
	return filepath.Join(w.root, rel)
}

// Files returns only the regular files of Walk, plus any errors.
func (w *Walker) Files(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for entry, err := range w.Walk(ctx) {
			if err == nil && !entry.IsRegular() {
				continue
			}
			if !yield(entry, err) {
				return
			}
		}
	}
}

func (w *Walker) skip(rel string, d fs.DirEntry, ignores ignoreSet) bool {
	name := d.Name()

	if d.IsDir() && name == ".git" {
		return true
	}
	if w.opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if ignores.ignored(rel, d.IsDir()) {
		return true
	}
	if !d.IsDir() && w.opts.Types.Match(rel) == filetype.Ignore {
		return true
	}
	return false
}

func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}

// ignoreChain holds the rules of one ignore file name. Rules found at and
// below the root come first, then the files in parent directories, nearest
// first. The first rule that matches decides.
type ignoreChain struct {
	base    string
	local   gitignore.GitIgnore
	parents []gitignore.GitIgnore
}

func (c ignoreChain) match(rel string, isDir bool) gitignore.Match {
	if c.local != nil {
		if m := c.local.Relative(rel, isDir); m != nil {
			return m
		}
	}
	abs := filepath.Join(c.base, rel)
	for _, g := range c.parents {
		if m := g.Absolute(abs, isDir); m != nil {
			return m
		}
	}
	return nil
}

type ignoreSet []ignoreChain

func (s ignoreSet) ignored(rel string, isDir bool) bool {
	for _, c := range s {
		if m := c.match(rel, isDir); m != nil && m.Ignore() {
			return true
		}
	}
	return false
}

// loadIgnores reads the ignore files of the tree under root and, when root is
// inside a git repository, those of its parents up to the repository top.
func (w *Walker) loadIgnores(ctx context.Context, root string) ignoreSet {
	if !w.opts.RespectIgnoreFiles {
		return nil
	}
	logger := zerolog.Ctx(ctx)

	base, err := filepath.Abs(root)
	if err != nil {
		logger.Debug().Err(err).Str("root", root).Msg("resolving root for ignore files")
		return nil
	}

	parents := parentDirs(base)

	var set ignoreSet
	for _, file := range ignoreFiles {
		chain := ignoreChain{base: base}

		// a root that is not a directory has no rules of its own
		repo, err := gitignore.NewRepositoryWithFile(base, file)
		if err != nil {
			logger.Debug().Err(err).Str("root", base).Str("file", file).Msg("ignore rules unavailable")
		} else {
			chain.local = repo
		}

		for _, dir := range parents {
			path := filepath.Join(dir, file)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			g, err := gitignore.NewFromFile(path)
			if err != nil {
				logger.Debug().Err(err).Str("file", path).Msg("reading parent ignore file")
				continue
			}
			chain.parents = append(chain.parents, g)
		}

		if chain.local != nil || len(chain.parents) > 0 {
			set = append(set, chain)
		}
	}
	return set
}

// parentDirs lists the directories above base, nearest first, up to and
// including the top of the enclosing git repository. Outside a repository,
// and when base is the repository top, there are none.
func parentDirs(base string) []string {
	var dirs []string
	dir := base
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dirs
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dirs = append(dirs, parent)
		dir = parent
	}
}
