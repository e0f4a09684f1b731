// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package main is the phonograph entry point. All real work lives in
// internal/cli; this shim only executes the root command and maps a
// failure onto the process exit code.
package main

import (
	"os"

	"github.com/mwhitfield/phonograph/internal/cli"
	"github.com/mwhitfield/phonograph/internal/logging"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logging.Error().Err(err).Msg("phonograph failed")
		os.Exit(1)
	}
}
