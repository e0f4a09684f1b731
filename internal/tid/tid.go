// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package tid generates the fixed-width, time-sortable record keys used
// as destination storage keys (AT Protocol TIDs).
//
// Unlike general-purpose TID generators, this one is fully deterministic:
// the clock-ID field is a constant rather than a random value, so
// re-encoding the same timestamp always yields the same key. That
// determinism is what lets a re-run of the import land on the same
// destination key for the same listen, independent of the dedup index.
package tid

import "time"

// alphabet is the sortable base32 character set. Byte values ascend
// with symbol value, so lexical order of encoded strings matches
// numeric order of the encoded integers.
const alphabet = "234567abcdefghijklmnopqrstuvwxyz"

const (
	// timestampWidth is the encoded width of the microsecond field.
	// 11 symbols carry 55 bits, enough for timestamps past year 3000.
	timestampWidth = 11

	// clockWidth is the encoded width of the tie-breaker field.
	clockWidth = 2

	// clockID is the fixed tie-breaker value. Constant, never random:
	// identical timestamps must encode to identical keys.
	clockID = 0
)

// Length is the total width of a generated identifier.
const Length = timestampWidth + clockWidth

// encode writes v in sortable base32, left-padded with the zero symbol
// to exactly width characters.
func encode(v int64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = alphabet[v&0x1f]
		v >>= 5
	}
	return string(buf)
}

// FromTime returns the 13-character identifier for t at microsecond
// resolution. Timestamps before the Unix epoch clamp to zero; the
// left-padding rule keeps every result at the fixed width.
func FromTime(t time.Time) string {
	micros := t.UnixMicro()
	if micros < 0 {
		micros = 0
	}
	return encode(micros, timestampWidth) + encode(clockID, clockWidth)
}

// FromUnixMilli returns the identifier for a millisecond-precision
// timestamp. The missing microsecond precision is padded with zeros, so
// a millisecond input and its exact microsecond equivalent agree.
func FromUnixMilli(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return encode(ms*1000, timestampWidth) + encode(clockID, clockWidth)
}
