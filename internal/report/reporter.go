// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package report defines the progress-reporting sink the pipeline and
// sweeper write to. The reporter is an explicit handle passed into
// whatever consumes it; there is no package-level current indicator.
package report

import (
	"sync"

	"github.com/mwhitfield/phonograph/internal/logging"
)

// Reporter receives named progress indicators and line-oriented status
// and summary messages. Implementations must tolerate Update/Stop for
// names that were never started.
type Reporter interface {
	// Start opens a named progress indicator over total steps.
	Start(name string, total int)

	// Update moves a named indicator to the given step count.
	Update(name string, current int)

	// Stop closes a named indicator.
	Stop(name string)

	// Status emits one line of transient status.
	Status(msg string)

	// Summary emits one line of the final run summary.
	Summary(msg string)
}

// LogReporter renders progress through the structured logger. Suited
// to non-interactive runs; an interactive frontend can substitute its
// own Reporter without touching the pipeline.
type LogReporter struct {
	mu     sync.Mutex
	totals map[string]int
}

// NewLogReporter returns a Reporter backed by the global logger.
func NewLogReporter() *LogReporter {
	return &LogReporter{totals: make(map[string]int)}
}

func (r *LogReporter) Start(name string, total int) {
	r.mu.Lock()
	r.totals[name] = total
	r.mu.Unlock()
	logging.Info().Str("task", name).Int("total", total).Msg("Started")
}

func (r *LogReporter) Update(name string, current int) {
	r.mu.Lock()
	total := r.totals[name]
	r.mu.Unlock()
	logging.Info().Str("task", name).Int("current", current).Int("total", total).Msg("Progress")
}

func (r *LogReporter) Stop(name string) {
	r.mu.Lock()
	delete(r.totals, name)
	r.mu.Unlock()
	logging.Info().Str("task", name).Msg("Finished")
}

func (r *LogReporter) Status(msg string) {
	logging.Info().Msg(msg)
}

func (r *LogReporter) Summary(msg string) {
	logging.Info().Msg(msg)
}

// Nop is a Reporter that discards everything. Used in tests.
type Nop struct{}

func (Nop) Start(string, int)  {}
func (Nop) Update(string, int) {}
func (Nop) Stop(string)        {}
func (Nop) Status(string)      {}
func (Nop) Summary(string)     {}
