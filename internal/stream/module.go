package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

func init() {
	core.RegisterModule(&Module{})
}

// Module owns the registry and replayer. The upstream analyzer and the
// analysis store are resolved at Start(); until then the accessors return
// nil and the gateway reports the analysis path unavailable.
type Module struct {
	opts     Options
	appCtx   *core.AppContext
	registry atomic.Pointer[Registry]
	replayer atomic.Pointer[Replayer]
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "stream.registry",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.opts)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	ctx.RegisterService("stream.registry", m)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("analysis.provider")
	if !ok {
		return fmt.Errorf("stream: required service %q not registered", "analysis.provider")
	}
	analyzer, ok := svc.(analysis.Analyzer)
	if !ok {
		return fmt.Errorf("stream: service %q has unexpected type %T", "analysis.provider", svc)
	}
	svc, ok = m.appCtx.Service("store.analyses")
	if !ok {
		return fmt.Errorf("stream: required service %q not registered", "store.analyses")
	}
	store, ok := svc.(storage.AnalysisStore)
	if !ok {
		return fmt.Errorf("stream: service %q has unexpected type %T", "store.analyses", svc)
	}

	m.opts.Logger = m.appCtx.Logger
	m.registry.Store(NewRegistry(analysis.NewRetrier(analyzer, m.appCtx.Logger), store, m.opts))
	m.replayer.Store(NewReplayer(store, m.appCtx.Logger))
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if r := m.registry.Load(); r != nil {
		return r.Close(ctx)
	}
	return nil
}

// Registry returns the running registry, or nil before Start.
func (m *Module) Registry() *Registry {
	return m.registry.Load()
}

// Replayer returns the running replayer, or nil before Start.
func (m *Module) Replayer() *Replayer {
	return m.replayer.Load()
}

// SweepTerminal removes idle terminal streams older than maxAge. Called
// from the maintenance cron as a backstop for per-stream cleanup timers.
func (m *Module) SweepTerminal(maxAge time.Duration) int {
	if r := m.registry.Load(); r != nil {
		return r.SweepTerminal(maxAge)
	}
	return 0
}
