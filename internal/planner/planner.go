// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package planner computes how a batch import must be paced to respect
// the destination's write-rate policy: batch size, inter-batch delay,
// and, when one day's quota cannot hold the whole import, a multi-day
// schedule. Pure computation over validated configuration; the planner
// has no failure mode of its own.
package planner

import (
	"math"
	"time"

	"github.com/mwhitfield/phonograph/internal/config"
)

const (
	// minBatchSize is the absolute floor below which batching stops
	// being worth a round trip.
	minBatchSize = 3

	// safetyDelay is the inter-batch delay under which the computed
	// batch size is trimmed back, favoring caution when pacing is
	// already tight.
	safetyDelay = 5 * time.Second

	// moderateBatchSize is the size above which the safety trim
	// applies.
	moderateBatchSize = 20

	// dayPause is how long the pipeline sleeps between scheduled
	// days.
	dayPause = 24 * time.Hour

	// msPerDay converts a per-batch rate into a daily projection.
	msPerDay = 86_400_000
)

// DayPartition is one day's slice of the import: a contiguous record
// index range [Start, End), and whether the pipeline pauses after it.
type DayPartition struct {
	Day   int // 1-based
	Start int
	End   int

	// PauseAfter is true for every day except the final one.
	PauseAfter bool

	// PauseDuration is the sleep before the next day; zero on the
	// final day.
	PauseDuration time.Duration
}

// Count returns the number of records in the partition.
func (d DayPartition) Count() int {
	return d.End - d.Start
}

// RateLimitPlan is the pacing decision for one import invocation. It
// is recomputed from scratch on every run; a restarted import sees a
// smaller new-record count and plans accordingly.
type RateLimitPlan struct {
	TotalRecords      int
	BatchSize         int
	BatchDelay        time.Duration
	NeedsRateLimiting bool
	DailyWriteCap     int
	EstimatedDays     int

	// Schedule is non-nil only when the import spans multiple days.
	Schedule []DayPartition
}

// BatchSize computes the candidate batch size for a record count using
// logarithmic scaling between the configured floor and cap.
func BatchSize(total int, cfg *config.RateLimitConfig) int {
	var size int
	switch {
	case total <= cfg.SmallDatasetFloor:
		size = cfg.MinBatchSize
	case total <= cfg.ScalingThreshold:
		size = cfg.BaseBatchSize
	default:
		grown := float64(cfg.BaseBatchSize) +
			cfg.ScalingFactor*math.Log2(float64(total)/float64(cfg.ScalingThreshold))
		size = int(grown)
		if size > cfg.MaxBatchSize {
			size = cfg.MaxBatchSize
		}
	}

	// When batches already follow each other closely, a large batch
	// compounds the burst; trim it by a quarter.
	if cfg.BatchDelay < safetyDelay && size > moderateBatchSize {
		size = size * 3 / 4
	}

	if size < minBatchSize {
		size = minBatchSize
	}
	return size
}

// Plan computes the pacing for totalNew records under cfg.
func Plan(totalNew int, cfg *config.RateLimitConfig) *RateLimitPlan {
	plan := &RateLimitPlan{
		TotalRecords:  totalNew,
		BatchSize:     BatchSize(totalNew, cfg),
		BatchDelay:    cfg.BatchDelay,
		DailyWriteCap: cfg.DailyWriteCap,
		EstimatedDays: 1,
	}

	// Would the batch cadence alone overrun the daily cap?
	projectedPerDay := float64(plan.BatchSize) / float64(plan.BatchDelay.Milliseconds()) * msPerDay
	if projectedPerDay > float64(cfg.DailyWriteCap) {
		plan.NeedsRateLimiting = true
		// Stretch the delay until the projected daily throughput
		// fits the cap exactly.
		requiredMs := math.Ceil(float64(plan.BatchSize) * msPerDay / float64(cfg.DailyWriteCap))
		plan.BatchDelay = time.Duration(requiredMs) * time.Millisecond
	}

	// The protocol ceiling on operations per call always wins, even
	// when the rate-limit math would allow a larger batch.
	if plan.BatchSize > cfg.MaxOpsPerCall {
		plan.BatchSize = cfg.MaxOpsPerCall
	}

	// More records than one day's quota: spread across days.
	if totalNew > cfg.DailyWriteCap {
		plan.NeedsRateLimiting = true
		plan.EstimatedDays = (totalNew + cfg.DailyWriteCap - 1) / cfg.DailyWriteCap
		plan.Schedule = buildSchedule(totalNew, cfg.DailyWriteCap)
	}

	return plan
}

// buildSchedule partitions [0, total) into contiguous day-sized ranges
// of at most perDay records. Every day except the last pauses after.
func buildSchedule(total, perDay int) []DayPartition {
	var schedule []DayPartition
	for start := 0; start < total; start += perDay {
		end := start + perDay
		if end > total {
			end = total
		}
		schedule = append(schedule, DayPartition{
			Day:   len(schedule) + 1,
			Start: start,
			End:   end,
		})
	}
	for i := range schedule[:len(schedule)-1] {
		schedule[i].PauseAfter = true
		schedule[i].PauseDuration = dayPause
	}
	return schedule
}
