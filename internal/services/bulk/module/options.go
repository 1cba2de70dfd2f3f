package module

import (
	"transitsync/internal/platform/config"
)

// Options tunes the bulk module
type Options struct {
	// Workers is the number of parallel range workers
	Workers int
}

// FromConfig builds Options from the "CORE_BULK_" namespace
func FromConfig(cfg config.Conf) Options {
	bc := cfg.Prefix("CORE_BULK_")
	return Options{
		Workers: bc.MayInt("WORKERS", 8),
	}
}
