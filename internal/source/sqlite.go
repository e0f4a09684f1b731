// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// DuckDB driver - used with the sqlite_scanner extension to read
	// scrobble SQLite databases without a separate SQLite driver.
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mwhitfield/phonograph/internal/models"
)

// scrobbleQuery reads the conventional scrobble-log schema used by
// local scrobblers: one row per play with epoch-second timestamps.
const scrobbleQuery = `
	SELECT artist, track, COALESCE(album, ''), timestamp
	FROM scrobbles
	WHERE artist IS NOT NULL AND track IS NOT NULL AND timestamp > 0
	ORDER BY timestamp ASC`

// ReadScrobbleDB reads listens from a scrobble SQLite database by
// attaching it to an in-memory DuckDB instance.
func ReadScrobbleDB(path string) ([]models.Listen, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-only in-memory instance

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := loadSQLiteExtension(ctx, db); err != nil {
		return nil, fmt.Errorf("load sqlite extension: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CALL sqlite_attach(?)", path); err != nil {
		return nil, fmt.Errorf("attach database %s: %w", path, err)
	}

	rows, err := db.QueryContext(ctx, scrobbleQuery)
	if err != nil {
		return nil, fmt.Errorf("query scrobbles: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read path

	var listens []models.Listen
	for rows.Next() {
		var (
			artist, track, album string
			timestamp            int64
		)
		if err := rows.Scan(&artist, &track, &album, &timestamp); err != nil {
			return nil, fmt.Errorf("scan scrobble row: %w", err)
		}
		listens = append(listens, scrobbleToListen(artist, track, album, timestamp))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrobbles: %w", err)
	}

	return listens, nil
}

// loadSQLiteExtension installs and loads sqlite_scanner, tolerating an
// already-installed extension.
func loadSQLiteExtension(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "INSTALL sqlite_scanner;"); err != nil {
		if _, loadErr := db.ExecContext(ctx, "LOAD sqlite_scanner;"); loadErr != nil {
			return fmt.Errorf("install error: %w, load error: %w", err, loadErr)
		}
		return nil
	}
	_, err := db.ExecContext(ctx, "LOAD sqlite_scanner;")
	return err
}

// scrobbleToListen maps one scrobble row onto the domain type.
func scrobbleToListen(artist, track, album string, timestamp int64) models.Listen {
	at := time.Unix(timestamp, 0).UTC()
	return models.Listen{
		Artists:     []models.Artist{{Name: artist}},
		TrackName:   track,
		ReleaseName: album,
		PlayedAt:    at,
		PlayedAtRaw: canonicalTime(at),
	}
}
