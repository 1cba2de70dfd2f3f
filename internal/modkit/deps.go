// Package modkit provides module wiring and core deps
package modkit

import (
	"transitsync/internal/modkit/repokit"
	"transitsync/internal/platform/config"
	"transitsync/internal/platform/logger"
)

// Deps holds core dependencies passed to modules.
// This is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
}
