// Package memory registers the in-memory store backends. It is the default
// storage module for development and tests; data does not survive restarts.
package memory

import (
	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/storage"
)

func init() {
	core.RegisterModule(&Module{})
}

// Module registers one in-memory implementation per store contract.
type Module struct{}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.memory",
		New: func() core.Module { return &Module{} },
	}
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	ctx.RegisterService("store.segments", storage.NewInMemorySegmentStore())
	ctx.RegisterService("store.jobs", storage.NewInMemoryJobStore())
	ctx.RegisterService("store.words", storage.NewInMemoryWordIndex())
	ctx.RegisterService("store.analyses", storage.NewInMemoryAnalysisStore())
	ctx.RegisterService("store.quota", storage.NewInMemoryQuotaStore())
	ctx.Logger.Info("in-memory store module provisioned")
	return nil
}
