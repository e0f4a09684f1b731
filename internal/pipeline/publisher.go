// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package pipeline publishes new listens to the destination store
// according to a rate-limit plan: strictly sequential chunks, timed
// inter-batch waits, optional multi-day scheduling, and cooperative
// cancellation. At most one applyWrites call is in flight at any time;
// the rate-limit guarantee depends on that sequencing.
//
// Write failures never abort the run. A failed chunk is counted and
// the loop moves on; re-running the whole import is the retry
// mechanism, and it is safe because the fetcher excludes whatever did
// land.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitfield/phonograph/internal/logging"
	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/pds"
	"github.com/mwhitfield/phonograph/internal/planner"
	"github.com/mwhitfield/phonograph/internal/report"
	"github.com/mwhitfield/phonograph/internal/tid"
)

// submissionAgent identifies this tool in the records it writes.
const submissionAgent = "phonograph/0.3.0 (https://github.com/mwhitfield/phonograph)"

// progressName is the pipeline's progress indicator.
const progressName = "publish"

// Writer is the destination batch-write capability.
type Writer interface {
	ApplyWrites(ctx context.Context, ops []pds.CreateOp) (int, error)
}

// Publisher runs publish invocations against one collection.
type Publisher struct {
	writer     Writer
	collection string
	reporter   report.Reporter
	kill       *Killswitch

	// sleep is swapped out in tests; the default waits on a timer,
	// the killswitch, and context cancellation.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New returns a publisher writing to the given collection. The
// killswitch must be non-nil; pass a fresh one per run.
func New(writer Writer, collection string, reporter report.Reporter, kill *Killswitch) *Publisher {
	p := &Publisher{
		writer:     writer,
		collection: collection,
		reporter:   reporter,
		kill:       kill,
	}
	p.sleep = p.interruptibleSleep
	return p
}

// Publish writes the listens under the plan and reports the aggregate
// outcome. The returned result is complete the moment it is returned
// and is never mutated afterwards.
func (p *Publisher) Publish(ctx context.Context, listens []models.Listen, plan *planner.RateLimitPlan) *models.PublishResult {
	result := &models.PublishResult{}

	p.reporter.Start(progressName, len(listens))
	defer p.reporter.Stop(progressName)

	if plan.Schedule == nil {
		p.publishSlice(ctx, listens, plan, result, 0)
		return result
	}

	for _, day := range plan.Schedule {
		if p.cancelled(ctx) {
			result.Cancelled = true
			return result
		}

		p.reporter.Status(fmt.Sprintf("Day %d/%d: publishing records %d-%d",
			day.Day, len(plan.Schedule), day.Start+1, day.End))

		p.publishSlice(ctx, listens[day.Start:day.End], plan, result, day.Start)
		if result.Cancelled {
			return result
		}

		if day.PauseAfter {
			p.reporter.Status(fmt.Sprintf("Daily write cap reached; resuming in %s", day.PauseDuration))
			if !p.sleep(ctx, day.PauseDuration) {
				result.Cancelled = true
				return result
			}
		}
	}

	return result
}

// publishSlice runs the batch loop over one record slice. offset is
// the slice's position in the whole run, for progress reporting only.
func (p *Publisher) publishSlice(ctx context.Context, listens []models.Listen, plan *planner.RateLimitPlan, result *models.PublishResult, offset int) {
	for start := 0; start < len(listens); start += plan.BatchSize {
		// Yield point: poll the killswitch before starting a chunk.
		if p.cancelled(ctx) {
			result.Cancelled = true
			return
		}

		end := start + plan.BatchSize
		if end > len(listens) {
			end = len(listens)
		}
		chunk := listens[start:end]

		accepted, err := p.writer.ApplyWrites(ctx, p.buildOps(chunk))
		switch {
		case err != nil:
			// Whole-chunk failure: count it, keep going. No retry at
			// this layer; a re-run of the import picks up the gap.
			result.Failed += len(chunk)
			logging.Warn().Err(err).
				Int("chunk_size", len(chunk)).
				Msg("Batch write failed")
		case accepted < len(chunk):
			result.Accepted += accepted
			result.Failed += len(chunk) - accepted
			logging.Warn().
				Int("accepted", accepted).
				Int("requested", len(chunk)).
				Msg("Destination accepted fewer operations than requested")
		default:
			result.Accepted += len(chunk)
		}

		p.reporter.Update(progressName, offset+end)

		// Yield point: poll again before the inter-batch delay, which
		// is skipped entirely after the final chunk.
		if end < len(listens) {
			if p.cancelled(ctx) {
				result.Cancelled = true
				return
			}
			if !p.sleep(ctx, plan.BatchDelay) {
				result.Cancelled = true
				return
			}
		}
	}
}

// buildOps turns a chunk of listens into create operations. The record
// key is derived deterministically from the played-at timestamp, so a
// re-run addressing the same listen lands on the same key.
func (p *Publisher) buildOps(chunk []models.Listen) []pds.CreateOp {
	ops := make([]pds.CreateOp, 0, len(chunk))
	for i := range chunk {
		l := &chunk[i]
		ops = append(ops, pds.CreateOp{
			Collection: p.collection,
			RKey:       tid.FromTime(l.PlayedAt),
			Value: models.PlayRecord{
				Type:                  p.collection,
				TrackName:             l.TrackName,
				Artists:               l.Artists,
				ReleaseName:           l.ReleaseName,
				PlayedTime:            l.PlayedAtRaw,
				OriginURL:             l.OriginURL,
				RecordingMBID:         l.RecordingMBID,
				ISRC:                  l.ISRC,
				DurationMs:            l.DurationMs,
				SubmissionClientAgent: submissionAgent,
			},
		})
	}
	return ops
}

// cancelled reports whether the killswitch or the context ended the run.
func (p *Publisher) cancelled(ctx context.Context) bool {
	return p.kill.Triggered() || ctx.Err() != nil
}

// interruptibleSleep waits for d, returning false when the killswitch
// or the context fires first.
func (p *Publisher) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.kill.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
