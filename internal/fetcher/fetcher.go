// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package fetcher rebuilds the destination's existing state by walking
// the full record listing. Nothing here is cached across runs: the
// destination store is the only source of truth, which is what makes
// an interrupted import safely re-runnable without local checkpoints.
//
// Two read paths share one pagination traversal but must stay
// separate. BuildIndex keeps one record per key (membership testing),
// which silently hides duplicates; FetchAll keeps every occurrence in
// listing order, which the duplicate sweeper needs for grouping.
package fetcher

import (
	"context"
	"fmt"

	"github.com/mwhitfield/phonograph/internal/fingerprint"
	"github.com/mwhitfield/phonograph/internal/logging"
	"github.com/mwhitfield/phonograph/internal/models"
	"github.com/mwhitfield/phonograph/internal/pds"
)

// Lister is the destination listing capability.
type Lister interface {
	ListRecords(ctx context.Context, collection string, limit int, cursor string) (*pds.ListRecordsPage, error)
}

// Fetcher paginates one collection of the destination store.
type Fetcher struct {
	lister     Lister
	collection string
	pageSize   int
}

// New returns a fetcher over the given collection.
func New(lister Lister, collection string, pageSize int) *Fetcher {
	return &Fetcher{
		lister:     lister,
		collection: collection,
		pageSize:   pageSize,
	}
}

// BuildIndex fetches every record and returns a key-to-record index
// where a later occurrence of a key overwrites an earlier one. The
// index answers membership only; occurrence counts are deliberately
// lost. Any page error aborts the whole fetch: a partial index would
// misclassify records as new.
func (f *Fetcher) BuildIndex(ctx context.Context) (map[string]models.DestinationRecord, error) {
	index := make(map[string]models.DestinationRecord)
	err := f.paginate(ctx, func(records []models.DestinationRecord) {
		for _, rec := range records {
			index[fingerprint.RecordKey(&rec)] = rec
		}
	})
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Int("unique_keys", len(index)).
		Str("collection", f.collection).
		Msg("Built existing-state index")
	return index, nil
}

// FetchAll fetches every record, duplicates included, in the store's
// listing order. Any page error aborts the whole fetch.
func (f *Fetcher) FetchAll(ctx context.Context) ([]models.DestinationRecord, error) {
	var all []models.DestinationRecord
	err := f.paginate(ctx, func(records []models.DestinationRecord) {
		all = append(all, records...)
	})
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Int("records", len(all)).
		Str("collection", f.collection).
		Msg("Fetched full destination list")
	return all, nil
}

// paginate walks the listing cursor to exhaustion, handing each page
// to accumulate. The first page error aborts with no partial result.
func (f *Fetcher) paginate(ctx context.Context, accumulate func([]models.DestinationRecord)) error {
	cursor := ""
	for {
		page, err := f.lister.ListRecords(ctx, f.collection, f.pageSize, cursor)
		if err != nil {
			return fmt.Errorf("fetch destination state: %w", err)
		}

		accumulate(page.Records)

		if page.Cursor == "" {
			return nil
		}
		cursor = page.Cursor
	}
}
