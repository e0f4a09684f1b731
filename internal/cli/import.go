// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/phonograph/internal/fetcher"
	"github.com/mwhitfield/phonograph/internal/fingerprint"
	"github.com/mwhitfield/phonograph/internal/logging"
	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/pds"
	"github.com/mwhitfield/phonograph/internal/pipeline"
	"github.com/mwhitfield/phonograph/internal/planner"
	"github.com/mwhitfield/phonograph/internal/report"
	"github.com/mwhitfield/phonograph/internal/source"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DryRun bool
	Export string
	Format string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the listening-history export into the PDS",
		Long: `Import reads the export, rebuilds the destination's existing state,
publishes the listens that are not yet present, and prints a summary.

Interrupting with Ctrl-C stops cleanly after the in-flight batch; a
second Ctrl-C exits immediately. Re-running a stopped import is always
safe and picks up where it left off.

Example:
  phonograph import --export listens.json
  phonograph import --export scrobbles.db --format sqlite --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan and preview without writing")
	cmd.Flags().StringVar(&opts.Export, "export", "", "path to the listening-history export")
	cmd.Flags().StringVar(&opts.Format, "format", "", "export format: listenbrainz or sqlite")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions) error {
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
	logging.Info().Int("listens", len(listens)).Str("export", cfg.Source.Path).Msg("Read source export")

	client, err := pds.NewClient(&cfg.PDS)
	if err != nil {
		return err
	}

	reporter := report.NewLogReporter()

	index, err := fetcher.New(client, cfg.PDS.Collection, cfg.PDS.PageSize).BuildIndex(ctx)
	if err != nil {
		return err
	}

	newListens, duplicates := fingerprint.Partition(listens, index)
	reporter.Status(fmt.Sprintf("%d listens in export: %d new, %d already present",
		len(listens), len(newListens), len(duplicates)))

	if len(newListens) == 0 {
		reporter.Summary("Nothing to import; destination is up to date")
		return nil
	}

	plan := planner.Plan(len(newListens), &cfg.RateLimit)
	if plan.NeedsRateLimiting {
		reporter.Status(fmt.Sprintf("Write-rate policy in effect: %d records/day cap, estimated %d day(s)",
			plan.DailyWriteCap, plan.EstimatedDays))
	}

	kill := pipeline.NewKillswitch()
	stopSignals := watchInterrupts(kill, reporter)
	defer stopSignals()

	publisher := pipeline.New(client, cfg.PDS.Collection, reporter, kill)

	var result *models.PublishResult
	if opts.DryRun {
		result = publisher.DryRun(newListens, plan)
	} else {
		result = publisher.Publish(ctx, newListens, plan)
	}

	reporter.Summary(fmt.Sprintf("Import finished: %d accepted, %d failed, cancelled=%v",
		result.Accepted, result.Failed, result.Cancelled))
	if result.Failed > 0 {
		reporter.Summary("Re-run the import to retry failed records; existing records are never duplicated")
	}
	return nil
}

// watchInterrupts triggers the killswitch on the first SIGINT/SIGTERM
// and exits hard on the second. Returns a function that stops the
// watcher.
func watchInterrupts(kill *pipeline.Killswitch, reporter report.Reporter) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		_, ok := <-sigCh
		if !ok {
			return
		}
		reporter.Status("Interrupt received; stopping after the current batch (Ctrl-C again to exit now)")
		kill.Trigger()

		if _, ok := <-sigCh; ok {
			os.Exit(130)
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
