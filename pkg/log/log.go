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

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/pkg/filetype"
	"github.com/walteh/sweep/pkg/patch"
	"github.com/walteh/sweep/pkg/status"
)

// 🩹 Patch is what the logger needs to preview one file's changes
type Patch interface {
	Path() string
	Replacements() []patch.Replacement
	PrintPatch(w io.Writer)
	UnifiedDiff() (string, error)
}

// 📦 RunOperation describes one sweep over a root for the header
type RunOperation struct {
	Root        string // directory or file being swept
	Pattern     string // what is searched for
	Replacement string // what it becomes
	Mode        string // literal, regex or subvert
	DryRun      bool   // nothing is written
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	quiet     bool
	unified   bool
	currentOp *RunOperation
	files     int
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// WithZerolog replaces the structured logger the console output is mirrored into.
func (l *Logger) WithZerolog(zlog zerolog.Logger) *Logger {
	l.zlog = zlog
	return l
}

// SetQuiet turns off patch previews and per-file lines. Warnings, errors and
// the summary still print.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// SetUnified switches patch previews to unified diffs.
func (l *Logger) SetUnified(unified bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unified = unified
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or one that prints nothing
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return New(io.Discard, zerolog.Disabled).WithZerolog(zerolog.Nop())
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 🩹 LogFilePatch previews one file's changes as a single block
func (l *Logger) LogFilePatch(ctx context.Context, p Patch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files++
	l.zlog.Debug().
		Str("file", p.Path()).
		Int("replacements", len(p.Replacements())).
		Msg("file patch")

	if l.quiet {
		return nil
	}

	if !l.unified {
		p.PrintPatch(l.console)
		return nil
	}

	diff, err := p.UnifiedDiff()
	if err != nil {
		return errors.Errorf("rendering diff for %s: %w", p.Path(), err)
	}
	fmt.Fprint(l.console, diff)
	return nil
}

// 📝 LogFileOperation logs what happened to a file
func (l *Logger) LogFileOperation(ctx context.Context, info status.FileInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.quiet {
		fmt.Fprintln(l.console, status.FormatFileLine(info))
	}

	l.zlog.Info().
		Str("file", info.Path).
		Str("status", info.Status.String()).
		Int("replacements", info.Replacements).
		Msg("file operation")
}

// 📝 StartRunOperation prints the header for a sweep
func (l *Logger) StartRunOperation(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.files = 0

	if !l.quiet {
		mode := op.Mode
		if op.DryRun {
			mode += ", dry run"
		}
		fmt.Fprintf(l.console, "[sweeping %s]\n",
			color.New(color.FgCyan).Sprint(op.Root))

		fmt.Fprintf(l.console, "%s %s %s %s %s\n\n",
			color.New(color.FgMagenta).Sprint("◆"),
			color.New(color.Bold).Sprint(op.Pattern),
			color.New(color.Faint).Sprint("→"),
			color.New(color.Bold).Sprint(op.Replacement),
			color.New(color.FgYellow).Sprint("("+mode+")"))
	}

	l.zlog.Info().
		Str("root", op.Root).
		Str("pattern", op.Pattern).
		Str("replacement", op.Replacement).
		Str("mode", op.Mode).
		Bool("dry_run", op.DryRun).
		Msg("starting sweep")
}

// 📝 EndRunOperation prints the summary and closes the current sweep
func (l *Logger) EndRunOperation(ctx context.Context, summary string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, summary)

	if l.currentOp == nil {
		return
	}

	l.zlog.Info().
		Str("root", l.currentOp.Root).
		Int("files", l.files).
		Msg("sweep complete")

	l.currentOp = nil
	l.files = 0
}

// 📋 TypeList renders file type definitions as a table
func (l *Logger) TypeList(defs []filetype.Definition) error {
	data := pterm.TableData{{"type", "globs"}}
	for _, def := range defs {
		data = append(data, []string{def.Name, strings.Join(def.Globs, ", ")})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering type list: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, out)
	return nil
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quiet {
		l.zlog.Info().Msg(msg)
		return
	}
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}
