// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package source

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/mwhitfield/phonograph/internal/models"
)

// lbListen is one entry of a ListenBrainz JSON export.
type lbListen struct {
	ListenedAt    int64  `json:"listened_at"`
	TrackMetadata struct {
		ArtistName     string `json:"artist_name"`
		TrackName      string `json:"track_name"`
		ReleaseName    string `json:"release_name"`
		AdditionalInfo struct {
			OriginURL     string   `json:"origin_url"`
			RecordingMBID string   `json:"recording_mbid"`
			ArtistMBIDs   []string `json:"artist_mbids"`
			ISRC          string   `json:"isrc"`
			DurationMs    int64    `json:"duration_ms"`
		} `json:"additional_info"`
	} `json:"track_metadata"`
}

// ReadListenBrainz parses a ListenBrainz JSON export file. Entries
// without an artist, track, or timestamp are skipped with a warning
// count in the error-free path; they cannot be keyed.
func ReadListenBrainz(path string) ([]models.Listen, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	var entries []lbListen
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}

	listens := make([]models.Listen, 0, len(entries))
	for _, e := range entries {
		if e.ListenedAt == 0 || e.TrackMetadata.ArtistName == "" || e.TrackMetadata.TrackName == "" {
			continue
		}

		at := time.Unix(e.ListenedAt, 0).UTC()
		l := models.Listen{
			Artists:       []models.Artist{{Name: e.TrackMetadata.ArtistName}},
			TrackName:     e.TrackMetadata.TrackName,
			ReleaseName:   e.TrackMetadata.ReleaseName,
			PlayedAt:      at,
			PlayedAtRaw:   canonicalTime(at),
			OriginURL:     e.TrackMetadata.AdditionalInfo.OriginURL,
			RecordingMBID: e.TrackMetadata.AdditionalInfo.RecordingMBID,
			ISRC:          e.TrackMetadata.AdditionalInfo.ISRC,
			DurationMs:    e.TrackMetadata.AdditionalInfo.DurationMs,
		}
		if mbids := e.TrackMetadata.AdditionalInfo.ArtistMBIDs; len(mbids) > 0 {
			l.Artists[0].MBID = mbids[0]
		}
		listens = append(listens, l)
	}

	return listens, nil
}
