// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package sweeper is the maintenance path that finds and removes
// duplicate destination records. It operates on the full listing (every
// occurrence, not the membership index), keeps the first record of each
// duplicate group, and deletes the rest one at a time.
//
// This is a low-volume path: deletions are paced by a small fixed
// pause, independent of the import rate-limit planner.
package sweeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwhitfield/phonograph/internal/fingerprint"
	"github.com/mwhitfield/phonograph/internal/logging"
	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/report"
)

// Deleter is the destination single-record delete capability.
type Deleter interface {
	DeleteRecord(ctx context.Context, collection, rkey string) error
}

// Sweeper removes duplicate records from one collection.
type Sweeper struct {
	deleter    Deleter
	collection string
	reporter   report.Reporter
	pause      time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New returns a sweeper for the collection with the given inter-delete
// pause.
func New(deleter Deleter, collection string, reporter report.Reporter, pause time.Duration) *Sweeper {
	s := &Sweeper{
		deleter:    deleter,
		collection: collection,
		reporter:   reporter,
		pause:      pause,
	}
	s.sleep = func(ctx context.Context, d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return s
}

// GroupDuplicates groups the full destination list by record key,
// preserving listing order within each group, and returns only the
// groups of size two or more. Singleton keys are not returned; the
// union of returned group members plus all singleton records is
// exactly the input multiset.
func GroupDuplicates(fullList []models.DestinationRecord) []models.DuplicateGroup {
	byKey := make(map[string][]models.DestinationRecord)
	var order []string
	for _, rec := range fullList {
		key := fingerprint.RecordKey(&rec)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], rec)
	}

	var groups []models.DuplicateGroup
	for _, key := range order {
		if records := byKey[key]; len(records) >= 2 {
			groups = append(groups, models.DuplicateGroup{Key: key, Records: records})
		}
	}
	return groups
}

// Sweep finds duplicate groups in the full list and deletes every
// group member except the first, which listing order marks as the
// original. In dry-run mode it only reports what would be deleted.
// Individual delete failures are logged and skipped, so Removed may
// fall short of TotalDuplicates.
func (s *Sweeper) Sweep(ctx context.Context, fullList []models.DestinationRecord, dryRun bool) *models.SweepResult {
	groups := GroupDuplicates(fullList)

	result := &models.SweepResult{}
	for _, g := range groups {
		result.TotalDuplicates += len(g.Records) - 1
	}

	s.reporter.Status(fmt.Sprintf("Found %d duplicate groups (%d redundant records) among %d records",
		len(groups), result.TotalDuplicates, len(fullList)))

	if dryRun {
		for _, g := range groups {
			s.reporter.Status(fmt.Sprintf("  %q: %d copies, would delete %d",
				g.Records[0].Value.TrackName, len(g.Records), len(g.Records)-1))
		}
		s.reporter.Status("No records were deleted (dry run)")
		return result
	}

	if result.TotalDuplicates == 0 {
		return result
	}

	s.reporter.Start("sweep", result.TotalDuplicates)
	defer s.reporter.Stop("sweep")

	attempted := 0
	for _, g := range groups {
		// Keep the first occurrence; listing order reflects creation
		// order on a TID-keyed collection.
		for _, rec := range g.Records[1:] {
			if ctx.Err() != nil {
				return result
			}

			rkey := recordKeyFromURI(rec.URI)
			if err := s.deleter.DeleteRecord(ctx, s.collection, rkey); err != nil {
				logging.Warn().Err(err).
					Str("uri", rec.URI).
					Msg("Failed to delete duplicate record, skipping")
			} else {
				result.Removed++
			}

			attempted++
			s.reporter.Update("sweep", attempted)

			if attempted < result.TotalDuplicates {
				s.sleep(ctx, s.pause)
			}
		}
	}

	return result
}

// recordKeyFromURI extracts the rkey from an AT URI of the form
// at://did/collection/rkey.
func recordKeyFromURI(uri string) string {
	idx := strings.LastIndexByte(uri, '/')
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}
