// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package models defines the domain types shared across the migration
// pipeline: source listens, destination records, and result summaries.
package models

import "time"

// Artist is one credited artist on a listen.
type Artist struct {
	Name string `json:"artistName"`
	MBID string `json:"artistMbId,omitempty"`
}

// Listen is one listening event read from the source export.
// Immutable once read; PlayedAtRaw preserves the export's original
// timestamp string because the dedup key is computed over the raw
// string, not a re-rendered one.
type Listen struct {
	Artists     []Artist
	TrackName   string
	ReleaseName string

	// PlayedAt is the source-of-truth ordering field.
	PlayedAt    time.Time
	PlayedAtRaw string

	OriginURL     string
	RecordingMBID string
	ISRC          string
	DurationMs    int64
}

// PrimaryArtist returns the first credited artist's name, or "" when
// the credit list is empty.
func (l *Listen) PrimaryArtist() string {
	if len(l.Artists) == 0 {
		return ""
	}
	return l.Artists[0].Name
}

// PlayRecord is the destination record value as written to the PDS
// collection. Shape follows the play lexicon used by AT Protocol
// scrobbling clients.
type PlayRecord struct {
	Type        string   `json:"$type"`
	TrackName   string   `json:"trackName"`
	Artists     []Artist `json:"artists"`
	ReleaseName string   `json:"releaseName,omitempty"`

	// PlayedTime is the listen timestamp in RFC 3339.
	PlayedTime string `json:"playedTime"`

	OriginURL     string `json:"originUrl,omitempty"`
	RecordingMBID string `json:"recordingMbId,omitempty"`
	ISRC          string `json:"isrc,omitempty"`
	DurationMs    int64  `json:"duration,omitempty"`

	SubmissionClientAgent string `json:"submissionClientAgent,omitempty"`
}

// DestinationRecord is a PlayRecord as stored remotely, plus the
// store-assigned location and content identifier. Read-only to this
// system except for deletion during a duplicate sweep.
type DestinationRecord struct {
	URI   string     `json:"uri"`
	CID   string     `json:"cid"`
	Value PlayRecord `json:"value"`
}
