package module

import (
	"time"

	"transitsync/internal/platform/config"
)

// Options tunes the follow module
type Options struct {
	// Sleep is the pause between iterations
	Sleep time.Duration

	// Lookback bounds how far behind the watermarks may reach
	Lookback time.Duration
}

// FromConfig builds Options from the "CORE_FOLLOW_" namespace
func FromConfig(cfg config.Conf) Options {
	fc := cfg.Prefix("CORE_FOLLOW_")
	return Options{
		Sleep:    fc.MayDuration("SLEEP", 30*time.Second),
		Lookback: fc.MayDuration("LOOKBACK", 7*24*time.Hour),
	}
}
