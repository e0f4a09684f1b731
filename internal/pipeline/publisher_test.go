// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mwhitfield/phonograph/internal/config"
	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/pds"
	"github.com/mwhitfield/phonograph/internal/planner"
	"github.com/mwhitfield/phonograph/internal/report"
)

// planConfig is a default-shaped rate-limit configuration for plans
// built inside tests.
var planConfig = config.RateLimitConfig{
	SmallDatasetFloor: 50,
	MinBatchSize:      5,
	BaseBatchSize:     10,
	MaxBatchSize:      100,
	ScalingThreshold:  1000,
	ScalingFactor:     10,
	BatchDelay:        10 * time.Second,
	DailyWriteCap:     11666,
	MaxOpsPerCall:     200,
}

// chunkOutcome scripts one ApplyWrites call of the fake writer.
type chunkOutcome struct {
	accepted int // -1 means accept the full chunk
	err      error
}

// fakeWriter records every chunk it receives and replays scripted
// outcomes. It can trigger a killswitch after a given call count.
type fakeWriter struct {
	chunks     [][]pds.CreateOp
	outcomes   []chunkOutcome
	kill       *Killswitch
	killAfter  int // trigger kill after this many calls; 0 disables
	concurrent bool
	inFlight   bool
}

func (w *fakeWriter) ApplyWrites(_ context.Context, ops []pds.CreateOp) (int, error) {
	if w.inFlight {
		w.concurrent = true
	}
	w.inFlight = true
	defer func() { w.inFlight = false }()

	w.chunks = append(w.chunks, ops)
	call := len(w.chunks)

	if w.killAfter > 0 && call == w.killAfter {
		w.kill.Trigger()
	}

	outcome := chunkOutcome{accepted: -1}
	if call <= len(w.outcomes) {
		outcome = w.outcomes[call-1]
	}
	if outcome.err != nil {
		return 0, outcome.err
	}
	if outcome.accepted == -1 {
		return len(ops), nil
	}
	return outcome.accepted, nil
}

// makeListens builds n listens with distinct timestamps.
func makeListens(n int) []models.Listen {
	listens := make([]models.Listen, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range listens {
		at := base.Add(time.Duration(i) * time.Minute)
		listens[i] = models.Listen{
			Artists:     []models.Artist{{Name: "Artist"}},
			TrackName:   fmt.Sprintf("Track %d", i),
			PlayedAt:    at,
			PlayedAtRaw: at.Format(time.RFC3339),
		}
	}
	return listens
}

// singleDayPlan is a plan without a daily schedule.
func singleDayPlan(total, batchSize int) *planner.RateLimitPlan {
	return &planner.RateLimitPlan{
		TotalRecords:  total,
		BatchSize:     batchSize,
		BatchDelay:    time.Millisecond,
		DailyWriteCap: 100000,
		EstimatedDays: 1,
	}
}

// newTestPublisher wires a publisher whose sleeps are recorded, not
// slept.
func newTestPublisher(w *fakeWriter, kill *Killswitch) (*Publisher, *[]time.Duration) {
	p := New(w, "fm.teal.alpha.feed.play", report.Nop{}, kill)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = append(slept, d)
		return !kill.Triggered() && ctx.Err() == nil
	}
	return p, &slept
}

func TestPublish(t *testing.T) {
	t.Run("all chunks accepted", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{}
		p, _ := newTestPublisher(w, kill)

		result := p.Publish(context.Background(), makeListens(25), singleDayPlan(25, 10))

		if result.Accepted != 25 || result.Failed != 0 || result.Cancelled {
			t.Errorf("result = %+v, want 25 accepted", result)
		}
		if len(w.chunks) != 3 {
			t.Errorf("chunks = %d, want 3", len(w.chunks))
		}
		if got := len(w.chunks[2]); got != 5 {
			t.Errorf("final chunk size = %d, want 5", got)
		}
		if w.concurrent {
			t.Error("writer saw concurrent calls; chunks must be sequential")
		}
	})

	t.Run("whole-chunk failure is counted and loop continues", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{outcomes: []chunkOutcome{
			{accepted: -1},
			{err: errors.New("transport exploded")},
			{accepted: -1},
		}}
		p, _ := newTestPublisher(w, kill)

		result := p.Publish(context.Background(), makeListens(25), singleDayPlan(25, 10))

		if result.Accepted != 15 {
			t.Errorf("Accepted = %d, want 15", result.Accepted)
		}
		if result.Failed != 10 {
			t.Errorf("Failed = %d, want 10", result.Failed)
		}
		if result.Cancelled {
			t.Error("a failed chunk must not cancel the run")
		}
		if len(w.chunks) != 3 {
			t.Errorf("chunks = %d, want 3 (loop must continue past failure)", len(w.chunks))
		}
	})

	t.Run("partial acceptance counts the shortfall as failures", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{outcomes: []chunkOutcome{{accepted: 7}}}
		p, _ := newTestPublisher(w, kill)

		result := p.Publish(context.Background(), makeListens(10), singleDayPlan(10, 10))

		if result.Accepted != 7 || result.Failed != 3 {
			t.Errorf("result = %+v, want 7 accepted / 3 failed", result)
		}
	})

	t.Run("killswitch between chunks stops before the next chunk", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{kill: kill, killAfter: 2}
		p, _ := newTestPublisher(w, kill)

		result := p.Publish(context.Background(), makeListens(25), singleDayPlan(25, 5))

		if !result.Cancelled {
			t.Error("expected Cancelled = true")
		}
		if result.Accepted != 10 {
			t.Errorf("Accepted = %d, want exactly the records through chunk 2", result.Accepted)
		}
		if len(w.chunks) != 2 {
			t.Errorf("chunks = %d, want 2 (chunk 3 must never start)", len(w.chunks))
		}
	})

	t.Run("no inter-batch delay after the final chunk", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{}
		p, slept := newTestPublisher(w, kill)

		p.Publish(context.Background(), makeListens(30), singleDayPlan(30, 10))

		if len(*slept) != 2 {
			t.Errorf("slept %d times, want 2 (between 3 chunks)", len(*slept))
		}
	})

	t.Run("context cancellation is honored at chunk start", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{}
		p, _ := newTestPublisher(w, kill)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := p.Publish(ctx, makeListens(10), singleDayPlan(10, 5))
		if !result.Cancelled || len(w.chunks) != 0 {
			t.Errorf("result = %+v with %d chunks, want immediate cancellation", result, len(w.chunks))
		}
	})
}

func TestPublishMultiDay(t *testing.T) {
	schedule := []planner.DayPartition{
		{Day: 1, Start: 0, End: 10, PauseAfter: true, PauseDuration: 24 * time.Hour},
		{Day: 2, Start: 10, End: 20, PauseAfter: true, PauseDuration: 24 * time.Hour},
		{Day: 3, Start: 20, End: 25},
	}
	plan := &planner.RateLimitPlan{
		TotalRecords:      25,
		BatchSize:         10,
		BatchDelay:        time.Millisecond,
		NeedsRateLimiting: true,
		DailyWriteCap:     10,
		EstimatedDays:     3,
		Schedule:          schedule,
	}

	t.Run("publishes day slices in order with pauses between", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{}
		p, slept := newTestPublisher(w, kill)

		result := p.Publish(context.Background(), makeListens(25), plan)

		if result.Accepted != 25 || result.Cancelled {
			t.Errorf("result = %+v, want all 25 accepted", result)
		}
		if len(w.chunks) != 3 {
			t.Fatalf("chunks = %d, want 3 (one 10-record chunk per day)", len(w.chunks))
		}
		// Two 24h pauses between three days; no pause after the last.
		var dayPauses int
		for _, d := range *slept {
			if d == 24*time.Hour {
				dayPauses++
			}
		}
		if dayPauses != 2 {
			t.Errorf("day pauses = %d, want 2", dayPauses)
		}
		// Day slices must carry the right records.
		if w.chunks[2][0].Value.TrackName != "Track 20" {
			t.Errorf("day 3 starts with %q, want Track 20", w.chunks[2][0].Value.TrackName)
		}
	})

	t.Run("killswitch during the day pause cancels the run", func(t *testing.T) {
		kill := NewKillswitch()
		w := &fakeWriter{}
		p := New(w, "fm.teal.alpha.feed.play", report.Nop{}, kill)
		p.sleep = func(ctx context.Context, d time.Duration) bool {
			if d == 24*time.Hour {
				kill.Trigger()
				return false
			}
			return true
		}

		result := p.Publish(context.Background(), makeListens(25), plan)

		if !result.Cancelled {
			t.Error("expected Cancelled = true")
		}
		if result.Accepted != 10 {
			t.Errorf("Accepted = %d, want only day 1", result.Accepted)
		}
	})
}

func TestDryRun(t *testing.T) {
	kill := NewKillswitch()
	w := &fakeWriter{}
	p, _ := newTestPublisher(w, kill)

	plan := planner.Plan(25, &planConfig)
	result := p.DryRun(makeListens(25), plan)

	if result.Accepted != 25 || result.Failed != 0 || result.Cancelled {
		t.Errorf("result = %+v, want simulated full acceptance", result)
	}
	if len(w.chunks) != 0 {
		t.Errorf("dry run issued %d writes, want 0", len(w.chunks))
	}
}

func TestBuildOps(t *testing.T) {
	kill := NewKillswitch()
	p := New(&fakeWriter{}, "fm.teal.alpha.feed.play", report.Nop{}, kill)

	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	listens := []models.Listen{{
		Artists:     []models.Artist{{Name: "Portishead"}},
		TrackName:   "Glory Box",
		ReleaseName: "Dummy",
		PlayedAt:    at,
		PlayedAtRaw: "2024-03-15T09:30:00Z",
		OriginURL:   "https://music.example.com/glory-box",
	}}

	ops := p.buildOps(listens)
	if len(ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(ops))
	}

	op := ops[0]
	if op.Collection != "fm.teal.alpha.feed.play" {
		t.Errorf("Collection = %q", op.Collection)
	}
	if len(op.RKey) != 13 {
		t.Errorf("RKey = %q, want 13-character identifier", op.RKey)
	}
	if op.Value.Type != "fm.teal.alpha.feed.play" {
		t.Errorf("Value.Type = %q", op.Value.Type)
	}
	if op.Value.PlayedTime != "2024-03-15T09:30:00Z" {
		t.Errorf("PlayedTime = %q, must be the raw timestamp string", op.Value.PlayedTime)
	}
	if op.Value.SubmissionClientAgent == "" {
		t.Error("SubmissionClientAgent must identify the tool")
	}

	// Same timestamp, same key: idempotence across re-runs.
	again := p.buildOps(listens)
	if again[0].RKey != op.RKey {
		t.Errorf("record key not deterministic: %q vs %q", again[0].RKey, op.RKey)
	}
}
