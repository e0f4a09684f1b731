// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package fingerprint computes the deduplication key for a listen and
// partitions candidate listens against the destination's existing state.
//
// The key must be computed identically everywhere it is used: once over
// source listens before publishing, and once over destination records
// during index building and duplicate sweeps. Any drift between the two
// sides silently breaks idempotence, so all normalization lives here.
package fingerprint

import (
	"strings"

	"github.com/mwhitfield/phonograph/internal/models"
)

// delimiter joins the key fields. Three characters so that a stray "|"
// inside an artist or track name cannot produce a colliding key.
const delimiter = "|||"

// normalize case-folds and trims one key field.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Key returns the dedup key for a listen: normalized primary artist,
// normalized track name, and the case-folded raw played-at string,
// joined with a fixed delimiter. Two listens with equal keys are the
// same logical event.
func Key(l *models.Listen) string {
	return normalize(l.PrimaryArtist()) + delimiter +
		normalize(l.TrackName) + delimiter +
		normalize(l.PlayedAtRaw)
}

// RecordKey returns the dedup key for a destination record, using the
// same normalization as Key so both sides of a comparison agree.
func RecordKey(r *models.DestinationRecord) string {
	artist := ""
	if len(r.Value.Artists) > 0 {
		artist = r.Value.Artists[0].Name
	}
	return normalize(artist) + delimiter +
		normalize(r.Value.TrackName) + delimiter +
		normalize(r.Value.PlayedTime)
}

// Partition splits listens into those absent from the existing-state
// index (new) and those already present (duplicate). Every input listen
// lands in exactly one of the two slices; relative order is preserved.
func Partition(listens []models.Listen, index map[string]models.DestinationRecord) (newListens, duplicates []models.Listen) {
	for _, l := range listens {
		if _, exists := index[Key(&l)]; exists {
			duplicates = append(duplicates, l)
		} else {
			newListens = append(newListens, l)
		}
	}
	return newListens, duplicates
}
