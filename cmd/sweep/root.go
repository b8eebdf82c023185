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

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sweep/cmd/sweep/commands"
	"github.com/walteh/sweep/cmd/sweep/opts"
	"github.com/walteh/sweep/pkg/config"
	"github.com/walteh/sweep/pkg/filetype"
	"github.com/walteh/sweep/pkg/log"
	"github.com/walteh/sweep/pkg/operation"
	"github.com/walteh/sweep/pkg/query"
	"github.com/walteh/sweep/pkg/status"
)

// Exit codes
const (
	exitFound     = 0 // at least one replacement
	exitError     = 1 // anything went wrong
	exitNoMatches = 2 // ran fine, nothing to replace
)

// Handler holds the state of one invocation
type Handler struct {
	opts   opts.RootOpts
	stdout io.Writer
	stderr io.Writer

	stats status.Stats
	swept bool // a sweep ran to completion or failure
}

// newRootCmd creates the root command bound to h
func newRootCmd(h *Handler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep PATTERN REPLACEMENT [PATH]",
		Short: "Search and replace text in every file under a directory",
		Long: `sweep finds PATTERN in every eligible file under PATH (default: the current
directory), shows the changes as a diff and, with --go, writes them back.

Files listed in .gitignore or .ignore, hidden files and binary files are skipped
by default. A .sweep.hcl, .sweep.yaml, .sweep.yml or .sweep.json file in PATH
supplies defaults; flags always win.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := h.opts.Validate(); err != nil {
				return err
			}
			setupColor(h.opts.Color)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.run(cmd, args)
		},
	}

	cmd.SetOut(h.stdout)
	cmd.SetErr(h.stderr)

	addRootFlags(cmd, &h.opts)
	cmd.AddCommand(commands.NewVersionCmd())

	return cmd
}

// addRootFlags adds the flags of the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	flags := cmd.Flags()
	flags.BoolVar(&o.Go, "go", false, "write the changes (the default is a dry run)")
	flags.BoolVarP(&o.Regex, "regex", "r", false, "interpret PATTERN as a regular expression")
	flags.BoolVarP(&o.IgnoreCase, "ignore-case", "i", false, "match case-insensitively")
	flags.BoolVarP(&o.WordRegex, "word-regex", "w", false, "match whole words only")
	flags.BoolVar(&o.Subvert, "subvert", false, "replace every case variant (snake_case, camelCase, ...)")
	flags.StringArrayVarP(&o.Types, "type", "t", nil, "only search files of this type or glob (repeatable)")
	flags.StringArrayVarP(&o.TypesNot, "type-not", "T", nil, "skip files of this type or glob (repeatable)")
	flags.BoolVar(&o.TypeList, "type-list", false, "list the known file types and exit")
	flags.BoolVar(&o.Hidden, "hidden", false, "also search hidden files and directories")
	flags.BoolVar(&o.Ignored, "ignored", false, "also search files excluded by .gitignore and .ignore")
	flags.IntVarP(&o.Jobs, "jobs", "j", 0, "number of files to process at once (0 or 1: one at a time)")
	flags.BoolVar(&o.Unified, "unified", false, "preview changes as a unified diff")
	flags.BoolVarP(&o.Quiet, "quiet", "q", false, "only print the summary, warnings and errors")
	flags.StringVarP(&o.ConfigFile, "config", "c", "", "config file (default: .sweep.{hcl,yaml,yml,json} in PATH)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&o.Color, "color", opts.ColorAuto, "when to use colors: auto, always or never")
}

// setupLogging builds the diagnostic logger. It only speaks with --debug;
// everything a user needs goes through the console logger.
func setupLogging(debug bool, w io.Writer) zerolog.Logger {
	level := zerolog.Disabled
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()
}

func setupColor(mode string) {
	switch mode {
	case opts.ColorAlways:
		color.NoColor = false
		pterm.EnableColor()
	case opts.ColorNever:
		color.NoColor = true
		pterm.DisableColor()
	}
}

func (h *Handler) run(cmd *cobra.Command, args []string) error {
	zlog := setupLogging(h.opts.Debug, h.stderr)
	ctx := zlog.WithContext(cmd.Context())

	console := log.New(h.stdout, zerolog.DebugLevel).WithZerolog(zlog)
	console.SetQuiet(h.opts.Quiet)
	console.SetUnified(h.opts.Unified)
	ctx = log.NewContext(ctx, console)

	root := "."
	if len(args) == 3 {
		root = args[2]
	}

	settings, err := h.loadSettings(ctx, cmd, root)
	if err != nil {
		return err
	}

	if h.opts.TypeList {
		return listTypes(console, settings)
	}

	if len(args) < 2 {
		return errors.Errorf("expected PATTERN and REPLACEMENT, got %d argument(s)", len(args))
	}

	q, err := query.New(args[0], args[1], h.opts.QueryOptions()...)
	if err != nil {
		return errors.Errorf("building query: %w", err)
	}

	if _, err := os.Stat(root); err != nil {
		return errors.Errorf("checking %s: %w", root, err)
	}

	dp, err := operation.New(operation.Options{Root: root, Settings: settings})
	if err != nil {
		return errors.Errorf("preparing sweep: %w", err)
	}

	stats, err := dp.Run(ctx, q)
	h.stats = stats
	h.swept = true
	return err
}

// loadSettings reads the config file, if any, and applies the flags on top
func (h *Handler) loadSettings(ctx context.Context, cmd *cobra.Command, root string) (config.Settings, error) {
	logger := zerolog.Ctx(ctx)

	path := h.opts.ConfigFile
	if path == "" {
		dir := root
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			dir = filepath.Dir(root)
		}
		path = config.Discover(dir)
	}

	settings := config.DefaultSettings()
	if path != "" {
		cfg, err := config.Load(ctx, path)
		if err != nil {
			return config.Settings{}, errors.Errorf("loading config %s: %w", path, err)
		}
		logger.Debug().Str("path", cfg.Location()).Msg("using config file")
		settings = cfg.Settings()
	}

	flags := cmd.Flags()
	settings.DryRun = !h.opts.Go
	settings.SelectedFileTypes = append(settings.SelectedFileTypes, h.opts.Types...)
	settings.IgnoredFileTypes = append(settings.IgnoredFileTypes, h.opts.TypesNot...)
	if flags.Changed("hidden") {
		settings.Hidden = h.opts.Hidden
	}
	if flags.Changed("ignored") {
		settings.Ignored = h.opts.Ignored
	}
	if flags.Changed("jobs") {
		settings.Jobs = h.opts.Jobs
	}
	settings.Unified = h.opts.Unified

	if err := settings.Validate(); err != nil {
		return config.Settings{}, errors.Errorf("validating settings: %w", err)
	}
	return settings, nil
}

func listTypes(console *log.Logger, settings config.Settings) error {
	b := filetype.NewBuilder().AddDefaults()

	names := make([]string, 0, len(settings.TypeDefinitions))
	for name := range settings.TypeDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, glob := range settings.TypeDefinitions[name] {
			if err := b.Add(name, glob); err != nil {
				return errors.Errorf("adding type %q: %w", name, err)
			}
		}
	}

	return console.TypeList(b.Definitions())
}

// exitCode maps the outcome of a run to the process exit code
func (h *Handler) exitCode(err error) int {
	switch {
	case err != nil:
		return exitError
	case h.swept && !h.stats.MatchingFiles():
		return exitNoMatches
	default:
		return exitFound
	}
}
