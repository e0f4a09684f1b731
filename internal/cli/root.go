// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package cli wires the phonograph commands: import, sweep, and plan.
package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwhitfield/phonograph/internal/config"
	"github.com/mwhitfield/phonograph/internal/logging"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the phonograph root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "phonograph",
		Short: "Migrate listening history into an AT Protocol repository",
		Long: `Phonograph migrates a listening-history export (ListenBrainz JSON or a
scrobble SQLite database) into a record collection on your PDS, without
creating duplicates and without exceeding the PDS write-rate policy.

The import is idempotent: it can be interrupted and re-run any number of
times and converges to every source listen being present exactly once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "",
		"path to config file (default: phonograph.yaml, or PHONO_CONFIG)")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))

	return cmd
}

// setup loads configuration, initializes logging, and stamps a run ID
// into the global log context.
func setup(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetLogger(logging.With().Str("run_id", uuid.New().String()).Logger())

	return cfg, nil
}
