// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a config that passes validation, for mutation
// in the table tests below.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.PDS.Host = "https://pds.example.com"
	cfg.PDS.DID = "did:plc:abc123"
	cfg.PDS.AccessToken = "token"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing host", func(c *Config) { c.PDS.Host = "" }, true},
		{"non-URL host", func(c *Config) { c.PDS.Host = "not a url" }, true},
		{"ftp host", func(c *Config) { c.PDS.Host = "ftp://pds.example.com" }, true},
		{"missing did", func(c *Config) { c.PDS.DID = "" }, true},
		{"malformed did", func(c *Config) { c.PDS.DID = "plc:abc" }, true},
		{"empty collection", func(c *Config) { c.PDS.Collection = "" }, true},
		{"non-NSID collection", func(c *Config) { c.PDS.Collection = "plays" }, true},
		{"zero page size", func(c *Config) { c.PDS.PageSize = 0 }, true},
		{"unknown source format", func(c *Config) { c.Source.Format = "csv" }, true},
		{"sqlite source format", func(c *Config) { c.Source.Format = "sqlite" }, false},
		{"zero daily cap", func(c *Config) { c.RateLimit.DailyWriteCap = 0 }, true},
		{"negative daily cap", func(c *Config) { c.RateLimit.DailyWriteCap = -5 }, true},
		{"zero max ops", func(c *Config) { c.RateLimit.MaxOpsPerCall = 0 }, true},
		{"zero batch delay", func(c *Config) { c.RateLimit.BatchDelay = 0 }, true},
		{"max below base batch", func(c *Config) {
			c.RateLimit.BaseBatchSize = 20
			c.RateLimit.MaxBatchSize = 10
		}, true},
		{"base below min batch", func(c *Config) {
			c.RateLimit.MinBatchSize = 8
			c.RateLimit.BaseBatchSize = 5
		}, true},
		{"negative delete pause", func(c *Config) { c.Sweep.DeletePause = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "phonograph.yaml")
	yaml := `
pds:
  host: https://file.example.com
  did: did:plc:fromfile
  access_token: file-token
ratelimit:
  daily_write_cap: 5000
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.PDS.Host != "https://file.example.com" {
			t.Errorf("Host = %q, want file value", cfg.PDS.Host)
		}
		if cfg.RateLimit.DailyWriteCap != 5000 {
			t.Errorf("DailyWriteCap = %d, want 5000", cfg.RateLimit.DailyWriteCap)
		}
		// Untouched keys keep defaults.
		if cfg.PDS.Collection != "fm.teal.alpha.feed.play" {
			t.Errorf("Collection = %q, want default", cfg.PDS.Collection)
		}
		if cfg.RateLimit.MaxOpsPerCall != 200 {
			t.Errorf("MaxOpsPerCall = %d, want default 200", cfg.RateLimit.MaxOpsPerCall)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("PHONO_PDS__DID", "did:plc:fromenv")
		t.Setenv("PHONO_RATELIMIT__DAILY_WRITE_CAP", "250")

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.PDS.DID != "did:plc:fromenv" {
			t.Errorf("DID = %q, want env value", cfg.PDS.DID)
		}
		if cfg.RateLimit.DailyWriteCap != 250 {
			t.Errorf("DailyWriteCap = %d, want 250", cfg.RateLimit.DailyWriteCap)
		}
	})

	t.Run("validation failure surfaces", func(t *testing.T) {
		t.Setenv("PHONO_PDS__HOST", "")
		t.Setenv("PHONO_PDS__DID", "")
		badPath := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(badPath, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(badPath); err == nil {
			t.Error("expected validation error for missing host")
		}
	})
}
