// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package config loads and validates Phonograph configuration via Koanf
// v2 with layered sources: built-in defaults, an optional YAML config
// file, and PHONO_-prefixed environment variables (highest priority).
package config

import "time"

// Config is the root configuration for a Phonograph run.
type Config struct {
	PDS       PDSConfig       `koanf:"pds"`
	Source    SourceConfig    `koanf:"source"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Sweep     SweepConfig     `koanf:"sweep"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// PDSConfig identifies the destination repository and its credentials.
type PDSConfig struct {
	// Host is the PDS base URL, e.g. https://bsky.social.
	Host string `koanf:"host"`

	// DID is the repository owner identity.
	DID string `koanf:"did"`

	// AccessToken is the bearer token for XRPC calls.
	AccessToken string `koanf:"access_token"`

	// Collection is the NSID of the play-record collection.
	Collection string `koanf:"collection"`

	// PageSize is the listRecords page size.
	PageSize int `koanf:"page_size"`

	// Timeout bounds each individual HTTP call.
	Timeout time.Duration `koanf:"timeout"`
}

// SourceConfig locates the listening-history export.
type SourceConfig struct {
	// Path is the export file: a ListenBrainz JSON export or a
	// scrobble SQLite database, depending on Format.
	Path string `koanf:"path"`

	// Format is "listenbrainz" or "sqlite".
	Format string `koanf:"format"`
}

// RateLimitConfig holds the planner tunables. The defaults reflect the
// public PDS write quota of roughly 11,666 record creates per day.
type RateLimitConfig struct {
	// SmallDatasetFloor is the record count at or below which the
	// minimal batch size is used without scaling.
	SmallDatasetFloor int `koanf:"small_dataset_floor"`

	// MinBatchSize is the batch size for small datasets.
	MinBatchSize int `koanf:"min_batch_size"`

	// BaseBatchSize is the batch size below the scaling threshold.
	BaseBatchSize int `koanf:"base_batch_size"`

	// MaxBatchSize caps logarithmic batch-size growth.
	MaxBatchSize int `koanf:"max_batch_size"`

	// ScalingThreshold is the record count above which the batch size
	// grows logarithmically from BaseBatchSize.
	ScalingThreshold int `koanf:"scaling_threshold"`

	// ScalingFactor multiplies the log2 growth term.
	ScalingFactor float64 `koanf:"scaling_factor"`

	// BatchDelay is the pause between consecutive batch writes.
	BatchDelay time.Duration `koanf:"batch_delay"`

	// DailyWriteCap is the maximum records written per 24h window.
	DailyWriteCap int `koanf:"daily_write_cap"`

	// MaxOpsPerCall is the destination's hard ceiling on operations
	// in one applyWrites call. Protocol limit, not a tunable policy.
	MaxOpsPerCall int `koanf:"max_ops_per_call"`
}

// SweepConfig holds duplicate-sweep tunables.
type SweepConfig struct {
	// DeletePause is the pause between consecutive record deletions.
	DeletePause time.Duration `koanf:"delete_pause"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		PDS: PDSConfig{
			Host:       "",
			DID:        "",
			Collection: "fm.teal.alpha.feed.play",
			PageSize:   100,
			Timeout:    30 * time.Second,
		},
		Source: SourceConfig{
			Format: "listenbrainz",
		},
		RateLimit: RateLimitConfig{
			SmallDatasetFloor: 50,
			MinBatchSize:      5,
			BaseBatchSize:     10,
			MaxBatchSize:      100,
			ScalingThreshold:  1000,
			ScalingFactor:     10,
			BatchDelay:        10 * time.Second,
			DailyWriteCap:     11666,
			MaxOpsPerCall:     200,
		},
		Sweep: SweepConfig{
			DeletePause: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
