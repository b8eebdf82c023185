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
	"iter"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/sweep/pkg/walk"
)

// 🔨 Task processes one eligible file
type Task func(ctx context.Context, entry walk.Entry) error

// ⚠️ SkipHandler is told about recoverable walk errors; the run goes on
type SkipHandler func(ctx context.Context, err error)

// 🏃 OperationRunner feeds walked files to a task
type OperationRunner struct {
	logger *zerolog.Logger
	jobs   int
}

// 🏗️ NewRunner creates a new runner. jobs <= 1 runs one file at a time.
func NewRunner(logger *zerolog.Logger, jobs int) *OperationRunner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OperationRunner{
		logger: logger,
		jobs:   jobs,
	}
}

// 🏃 Run executes task for every file. The first task error stops the run.
func (r *OperationRunner) Run(ctx context.Context, files iter.Seq2[walk.Entry, error], task Task, onSkip SkipHandler) error {
	if r.jobs > 1 {
		return r.runAsync(ctx, files, task, onSkip)
	}
	return r.runSync(ctx, files, task, onSkip)
}

// 🔄 runSync finishes each file before the walk advances
func (r *OperationRunner) runSync(ctx context.Context, files iter.Seq2[walk.Entry, error], task Task, onSkip SkipHandler) error {
	for entry, err := range files {
		if err != nil {
			if err := r.skip(ctx, err, onSkip); err != nil {
				return err
			}
			continue
		}

		if err := task(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// ⚡ runAsync hands files to a bounded pool of workers
func (r *OperationRunner) runAsync(ctx context.Context, files iter.Seq2[walk.Entry, error], task Task, onSkip SkipHandler) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)

	r.logger.Debug().Int("jobs", r.jobs).Msg("running workers")

	var walkErr error
	for entry, err := range files {
		if gctx.Err() != nil {
			break
		}

		if err != nil {
			if err := r.skip(gctx, err, onSkip); err != nil {
				walkErr = err
				break
			}
			continue
		}

		g.Go(func() error {
			return task(gctx, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	// a cancelled parent stops the walk without a task error
	if err := ctx.Err(); err != nil {
		return errors.Errorf("operation cancelled: %w", err)
	}
	return nil
}

func (r *OperationRunner) skip(ctx context.Context, err error, onSkip SkipHandler) error {
	if !errors.Is(err, walk.ErrDirectoryRead) {
		return errors.Errorf("walking files: %w", err)
	}
	r.logger.Debug().Err(err).Msg("skipping unreadable entry")
	if onSkip != nil {
		onSkip(ctx, err)
	}
	return nil
}
