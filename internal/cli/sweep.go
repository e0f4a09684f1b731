// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/phonograph/internal/fetcher"
	"github.com/mwhitfield/phonograph/internal/pds"
	"github.com/mwhitfield/phonograph/internal/report"
	"github.com/mwhitfield/phonograph/internal/sweeper"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	DryRun bool
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find and remove duplicate records in the PDS collection",
		Long: `Sweep lists every record in the destination collection, groups them by
dedup key, keeps the oldest copy of each duplicate group, and deletes
the rest. A maintenance operation for collections that accumulated
duplicates before deduplicated importing.

Example:
  phonograph sweep --dry-run
  phonograph sweep`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report duplicates without deleting")

	return cmd
}

func runSweep(ctx context.Context, opts *SweepOptions) error {
	cfg, err := setup(opts.RootOptions)
	if err != nil {
		return err
	}

	client, err := pds.NewClient(&cfg.PDS)
	if err != nil {
		return err
	}

	reporter := report.NewLogReporter()

	fullList, err := fetcher.New(client, cfg.PDS.Collection, cfg.PDS.PageSize).FetchAll(ctx)
	if err != nil {
		return err
	}

	s := sweeper.New(client, cfg.PDS.Collection, reporter, cfg.Sweep.DeletePause)
	result := s.Sweep(ctx, fullList, opts.DryRun)

	reporter.Summary(fmt.Sprintf("Sweep finished: %d duplicate records, %d removed",
		result.TotalDuplicates, result.Removed))
	return nil
}
