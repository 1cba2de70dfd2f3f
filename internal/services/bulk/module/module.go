// Package module wires the bulk loader service into a process
package module

import (
	"transitsync/internal/modkit"
	"transitsync/internal/services/bulk/service"
	"transitsync/internal/services/ingest/domain"
	"transitsync/internal/services/ingest/repo"
)

// Module bundles the bulk service with its wiring
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports are the surfaces this module exposes to the process
type Ports struct {
	Runner domain.BulkRunner
}

// New wires the bulk module from core deps and an opened source client
func New(deps modkit.Deps, client domain.SourceClient, opts Options) *Module {
	svc := service.New(deps.PG, repo.NewPG(), client, service.Config{
		Workers: opts.Workers,
	})
	return &Module{deps: deps, ports: Ports{Runner: svc}}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "bulk" }

// Ports returns the module's exposed surfaces
func (m *Module) Ports() Ports { return m.ports }
