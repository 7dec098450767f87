// Package config holds environment-driven defaults for the elfspirit CLI,
// grounded on the teacher's use of github.com/xyproto/env/v2 for the same
// purpose (environment overrides read once at startup, never re-read).
package config

import "github.com/xyproto/env/v2"

// Config is the set of environment-overridable defaults (SPEC_FULL.md §2's
// ambient "configuration" dependency).
type Config struct {
	// Verbose switches the CLI's log output to timestamped lines. The
	// engine's operations write no log output of their own.
	Verbose bool

	// Color is read from ELFSPIRIT_COLOR (default true). Neither the CLI
	// nor the dump package consults it; their output is never colored.
	Color bool
}

// Load reads ELFSPIRIT_VERBOSE and ELFSPIRIT_COLOR from the environment,
// falling back to production defaults. The allocator's page granularity
// (PageSize, class.go) is a wire-format constant fixed by every target
// architecture's loader, not a runtime setting, so it has no environment
// override here.
func Load() Config {
	color := true
	if env.Has("ELFSPIRIT_COLOR") {
		color = env.Bool("ELFSPIRIT_COLOR")
	}
	return Config{
		Verbose: env.Bool("ELFSPIRIT_VERBOSE"),
		Color:   color,
	}
}
