// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/phonograph/internal/planner"
	"github.com/mwhitfield/phonograph/internal/report"
	"github.com/mwhitfield/phonograph/internal/source"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Export string
	Format string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the rate-limit plan for an export without touching the PDS",
		Long: `Plan reads the export and prints how an import of it would be paced:
batch size, inter-batch delay, and the multi-day schedule if one is
needed. It makes no network calls, so the counts assume every record in
the export is new; the actual import will plan over the smaller set of
records not yet present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Export, "export", "", "path to the listening-history export")
	cmd.Flags().StringVar(&opts.Format, "format", "", "export format: listenbrainz or sqlite")

	return cmd
}

func runPlan(opts *PlanOptions) error {
	cfg, err := setup(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Export != "" {
		cfg.Source.Path = opts.Export
	}
	if opts.Format != "" {
		cfg.Source.Format = opts.Format
	}
	if cfg.Source.Path == "" {
		return fmt.Errorf("no export given: set --export or source.path")
	}

	listens, err := source.Read(&cfg.Source)
	if err != nil {
		return err
	}

	reporter := report.NewLogReporter()
	plan := planner.Plan(len(listens), &cfg.RateLimit)

	reporter.Status(fmt.Sprintf("Export holds %d listens", len(listens)))
	reporter.Status(fmt.Sprintf("Batch size %d, inter-batch delay %s", plan.BatchSize, plan.BatchDelay))
	if plan.NeedsRateLimiting {
		reporter.Status(fmt.Sprintf("Rate limiting required: daily cap %d, estimated %d day(s)",
			plan.DailyWriteCap, plan.EstimatedDays))
	}
	for _, day := range plan.Schedule {
		line := fmt.Sprintf("  Day %d: records %d-%d (%d records)",
			day.Day, day.Start+1, day.End, day.Count())
		if day.PauseAfter {
			line += fmt.Sprintf(", then pause %s", day.PauseDuration)
		}
		reporter.Status(line)
	}
	return nil
}
