// Package module wires the follower service into a process
package module

import (
	"transitsync/internal/modkit"
	"transitsync/internal/services/follow/service"
	"transitsync/internal/services/ingest/domain"
	"transitsync/internal/services/ingest/repo"
)

// Module bundles the follower with its wiring
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports are the surfaces this module exposes to the process
type Ports struct {
	Follower domain.Follower
}

// New wires the follow module from core deps and a source client
func New(deps modkit.Deps, client domain.SourceClient, opts Options) *Module {
	svc := service.New(deps.PG, repo.NewPG(), client, service.Config{
		Sleep:    opts.Sleep,
		Lookback: opts.Lookback,
	})
	return &Module{deps: deps, ports: Ports{Follower: svc}}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "follow" }

// Ports returns the module's exposed surfaces
func (m *Module) Ports() Ports { return m.ports }
