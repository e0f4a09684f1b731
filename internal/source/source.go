// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package source reads the listening-history export. Two formats are
// supported: a ListenBrainz JSON export and a scrobble SQLite database
// (read through DuckDB's sqlite_scanner, so no separate SQLite driver
// is needed).
//
// Readers canonicalize timestamps: every Listen carries PlayedAtRaw as
// the RFC 3339 UTC rendering of its played-at instant. That string is
// both the dedup-key field and the playedTime written to the
// destination, so the two always agree.
package source

import (
	"fmt"
	"sort"
	"time"

	"github.com/mwhitfield/phonograph/internal/config"
	"github.com/mwhitfield/phonograph/internal/models"
)

// Read loads the export named by cfg and returns its listens sorted by
// played-at ascending.
func Read(cfg *config.SourceConfig) ([]models.Listen, error) {
	var (
		listens []models.Listen
		err     error
	)
	switch cfg.Format {
	case "listenbrainz":
		listens, err = ReadListenBrainz(cfg.Path)
	case "sqlite":
		listens, err = ReadScrobbleDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown source format %q", cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(listens, func(i, j int) bool {
		return listens[i].PlayedAt.Before(listens[j].PlayedAt)
	})
	return listens, nil
}

// canonicalTime renders an instant as the canonical raw timestamp
// string shared by dedup keys and destination records.
func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
