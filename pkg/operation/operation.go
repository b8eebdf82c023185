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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/pkg/config"
	"github.com/walteh/sweep/pkg/log"
	"github.com/walteh/sweep/pkg/patch"
	"github.com/walteh/sweep/pkg/query"
	"github.com/walteh/sweep/pkg/status"
	"github.com/walteh/sweep/pkg/walk"
)

// 🎯 Operator runs a query over everything under a root
type Operator interface {
	// Run walks the root, previews every change and writes it unless dry-run is on
	Run(ctx context.Context, q *query.Query) (status.Stats, error)
}

// 🔧 Options contains configuration for the operator
type Options struct {
	// Root is the directory (or single file) to sweep
	Root string
	// Settings control filtering, dry-run and parallelism
	Settings config.Settings
	// Walker overrides the walker built from Settings
	Walker *walk.Walker
}

// 🧹 DirectoryPatcher is the Operator for a directory tree
type DirectoryPatcher struct {
	root     string
	settings config.Settings
	walker   *walk.Walker
	counter  *status.Counter
}

var _ Operator = (*DirectoryPatcher)(nil)

// 🏭 New creates a new directory patcher with the given options
func New(opts Options) (*DirectoryPatcher, error) {
	if opts.Root == "" {
		return nil, errors.Errorf("root is required")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, errors.Errorf("validating settings: %w", err)
	}

	walker := opts.Walker
	if walker == nil {
		var err error
		walker, err = walk.FromSettings(opts.Root, opts.Settings)
		if err != nil {
			return nil, errors.Errorf("building walker: %w", err)
		}
	}

	return &DirectoryPatcher{
		root:     opts.Root,
		settings: opts.Settings,
		walker:   walker,
		counter:  status.New(nil),
	}, nil
}

// 🏃 Run patches every eligible file and returns the counters. Each call
// starts from zero.
func (d *DirectoryPatcher) Run(ctx context.Context, q *query.Query) (status.Stats, error) {
	if q == nil {
		return status.Stats{}, errors.Errorf("query is required")
	}

	zlog := zerolog.Ctx(ctx)
	d.counter = status.New(zlog)

	console := log.FromContext(ctx)
	console.StartRunOperation(ctx, log.RunOperation{
		Root:        d.root,
		Pattern:     q.Pattern(),
		Replacement: q.Replacement(),
		Mode:        q.Mode().String(),
		DryRun:      d.settings.DryRun,
	})

	runner := NewRunner(zlog, d.settings.Jobs)
	err := runner.Run(ctx, d.walker.Files(ctx),
		func(ctx context.Context, entry walk.Entry) error {
			return d.PatchFile(ctx, entry.Path, q)
		},
		func(ctx context.Context, err error) {
			var dre *walk.DirectoryReadError
			if !errors.As(err, &dre) {
				d.counter.RecordError("", err)
				console.Warningf("skipping: %v", err)
				return
			}
			d.counter.RecordError(dre.Path, err)
			console.Warningf("skipping %s: %v", dre.Path, dre.Err)
		},
	)

	stats := d.counter.Stats()
	if err != nil {
		return stats, errors.Errorf("sweeping %s: %w", d.root, err)
	}

	if !stats.MatchingFiles() {
		console.Infof("no matches for %q", q.Pattern())
	}
	console.EndRunOperation(ctx, d.counter.Summary(d.settings.DryRun))
	return stats, nil
}

// 📄 PatchFile matches, previews and (unless dry-run) rewrites one file.
// Files that are binary or have nothing to change are left alone.
func (d *DirectoryPatcher) PatchFile(ctx context.Context, path string, m patch.Matcher) error {
	fp, err := patch.Build(ctx, path, m)
	if err != nil {
		d.counter.RecordError(path, err)
		return err
	}
	if fp == nil {
		return nil
	}

	replacements := fp.Replacements()
	if len(replacements) == 0 {
		return nil
	}

	if err := d.counter.Update(path, len(replacements)); err != nil {
		return errors.Errorf("counting %s: %w", path, err)
	}

	console := log.FromContext(ctx)
	if err := console.LogFilePatch(ctx, fp); err != nil {
		return errors.Errorf("previewing %s: %w", path, err)
	}

	if d.settings.DryRun {
		return nil
	}

	if err := fp.Run(ctx); err != nil {
		d.counter.RecordError(path, err)
		return err
	}
	d.counter.MarkWritten(path)

	info, err := d.counter.GetFileInfo(path)
	if err == nil {
		console.LogFileOperation(ctx, info)
	}
	return nil
}

// Stats returns the counters of the most recent run.
func (d *DirectoryPatcher) Stats() status.Stats {
	return d.counter.Stats()
}
