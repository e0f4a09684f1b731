// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and that the
// numeric tunables are well-formed. The planner assumes validated
// input, so every malformed cap is rejected here.
func (c *Config) Validate() error {
	if err := c.validatePDS(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	return c.validateSweep()
}

func (c *Config) validatePDS() error {
	if c.PDS.Host == "" {
		return fmt.Errorf("pds.host is required (PHONO_PDS__HOST)")
	}
	u, err := url.Parse(c.PDS.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("pds.host must be a valid http(s) URL, got %q", c.PDS.Host)
	}
	if c.PDS.DID == "" {
		return fmt.Errorf("pds.did is required (PHONO_PDS__DID)")
	}
	if !strings.HasPrefix(c.PDS.DID, "did:") {
		return fmt.Errorf("pds.did must be a DID, got %q", c.PDS.DID)
	}
	if c.PDS.Collection == "" || !strings.Contains(c.PDS.Collection, ".") {
		return fmt.Errorf("pds.collection must be an NSID, got %q", c.PDS.Collection)
	}
	if c.PDS.PageSize <= 0 {
		return fmt.Errorf("pds.page_size must be positive, got %d", c.PDS.PageSize)
	}
	if c.PDS.Timeout <= 0 {
		return fmt.Errorf("pds.timeout must be positive, got %s", c.PDS.Timeout)
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Format {
	case "listenbrainz", "sqlite":
	default:
		return fmt.Errorf("source.format must be listenbrainz or sqlite, got %q", c.Source.Format)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	rl := c.RateLimit
	if rl.MinBatchSize < 1 {
		return fmt.Errorf("ratelimit.min_batch_size must be positive, got %d", rl.MinBatchSize)
	}
	if rl.BaseBatchSize < rl.MinBatchSize {
		return fmt.Errorf("ratelimit.base_batch_size (%d) must be >= min_batch_size (%d)",
			rl.BaseBatchSize, rl.MinBatchSize)
	}
	if rl.MaxBatchSize < rl.BaseBatchSize {
		return fmt.Errorf("ratelimit.max_batch_size (%d) must be >= base_batch_size (%d)",
			rl.MaxBatchSize, rl.BaseBatchSize)
	}
	if rl.SmallDatasetFloor < 0 {
		return fmt.Errorf("ratelimit.small_dataset_floor must not be negative, got %d", rl.SmallDatasetFloor)
	}
	if rl.ScalingThreshold <= 0 {
		return fmt.Errorf("ratelimit.scaling_threshold must be positive, got %d", rl.ScalingThreshold)
	}
	if rl.ScalingFactor <= 0 {
		return fmt.Errorf("ratelimit.scaling_factor must be positive, got %g", rl.ScalingFactor)
	}
	if rl.BatchDelay <= 0 {
		return fmt.Errorf("ratelimit.batch_delay must be positive, got %s", rl.BatchDelay)
	}
	if rl.DailyWriteCap <= 0 {
		return fmt.Errorf("ratelimit.daily_write_cap must be positive, got %d", rl.DailyWriteCap)
	}
	if rl.MaxOpsPerCall <= 0 {
		return fmt.Errorf("ratelimit.max_ops_per_call must be positive, got %d", rl.MaxOpsPerCall)
	}
	return nil
}

func (c *Config) validateSweep() error {
	if c.Sweep.DeletePause < 0 {
		return fmt.Errorf("sweep.delete_pause must not be negative, got %s", c.Sweep.DeletePause)
	}
	return nil
}
