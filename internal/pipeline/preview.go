// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package pipeline

import (
	"fmt"

	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/planner"
)

// DryRun renders a human-readable preview of what Publish would do
// under the plan and returns a simulated result: every record
// accepted, nothing failed, not cancelled. No destination writes are
// issued.
func (p *Publisher) DryRun(listens []models.Listen, plan *planner.RateLimitPlan) *models.PublishResult {
	p.reporter.Status(fmt.Sprintf("Dry run: %d new records for %s", len(listens), p.collection))
	p.reporter.Status(fmt.Sprintf("Batch size %d, inter-batch delay %s", plan.BatchSize, plan.BatchDelay))

	if plan.NeedsRateLimiting {
		p.reporter.Status(fmt.Sprintf("Rate limiting in effect: daily write cap %d", plan.DailyWriteCap))
	}

	if plan.Schedule != nil {
		p.reporter.Status(fmt.Sprintf("Import spans %d days:", plan.EstimatedDays))
		for _, day := range plan.Schedule {
			line := fmt.Sprintf("  Day %d: records %d-%d (%d records)",
				day.Day, day.Start+1, day.End, day.Count())
			if day.PauseAfter {
				line += fmt.Sprintf(", then pause %s", day.PauseDuration)
			}
			p.reporter.Status(line)
		}
	}

	p.reporter.Status("No records were written (dry run)")

	return &models.PublishResult{
		Accepted:  len(listens),
		Failed:    0,
		Cancelled: false,
	}
}
