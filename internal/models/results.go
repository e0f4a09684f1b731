// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package models

// PublishResult summarizes one publish invocation. Produced once per
// run and never mutated after return.
type PublishResult struct {
	// Accepted is the number of records the destination confirmed.
	Accepted int

	// Failed is the number of records that were not written, whether
	// from whole-chunk call failures or partial acceptance shortfalls.
	Failed int

	// Cancelled reports whether the run stopped early on the
	// killswitch rather than running to completion.
	Cancelled bool
}

// SweepResult summarizes one duplicate sweep.
type SweepResult struct {
	// TotalDuplicates is the number of redundant records found
	// (group members beyond the first of each group).
	TotalDuplicates int

	// Removed is the number of records actually deleted. May be less
	// than TotalDuplicates when individual deletes fail or in dry-run
	// mode, where it is always zero.
	Removed int
}

// DuplicateGroup is a record key shared by two or more destination
// records, with every occurrence in listing order.
type DuplicateGroup struct {
	Key     string
	Records []DestinationRecord
}
