package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/media"
	"github.com/flemzord/phrasecue/internal/storage"
)

func init() {
	core.RegisterModule(&Module{})
}

// Module wires the worker pool into the module system. Collaborators are
// resolved from the service registry at Start(), after every module has
// provisioned. Until the pool is running, Wake() is a no-op — newly created
// jobs are still picked up by the 2-second idle poll.
type Module struct {
	cfg    Config
	appCtx *core.AppContext
	pool   atomic.Pointer[Pool]
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "pipeline.worker",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.cfg); err != nil {
		return err
	}
	m.cfg.defaults()
	return nil
}

// Provision implements core.Provisioner. The module registers itself so the
// gateway can nudge the pool after enqueueing a job.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	ctx.RegisterService("pipeline.module", m)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	jobs, err := resolveService[storage.JobStore](m.appCtx, "store.jobs")
	if err != nil {
		return err
	}
	segments, err := resolveService[storage.SegmentStore](m.appCtx, "store.segments")
	if err != nil {
		return err
	}
	words, err := resolveService[storage.WordIndex](m.appCtx, "store.words")
	if err != nil {
		return err
	}
	catalog, err := resolveService[media.Catalog](m.appCtx, "media.catalog")
	if err != nil {
		return err
	}
	downloader, err := resolveService[media.Downloader](m.appCtx, "media.downloader")
	if err != nil {
		return err
	}
	transcriber, err := resolveService[media.Transcriber](m.appCtx, "media.transcriber")
	if err != nil {
		return err
	}

	pl := New(m.cfg, Deps{
		Jobs:        jobs,
		Segments:    segments,
		Words:       words,
		Catalog:     catalog,
		Downloader:  downloader,
		Transcriber: transcriber,
		Logger:      m.appCtx.Logger,
	})
	pool := NewPool(pl)
	pool.Start()
	m.pool.Store(pool)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if pool := m.pool.Load(); pool != nil {
		return pool.Stop(ctx)
	}
	return nil
}

// Wake nudges the running pool, if any.
func (m *Module) Wake() {
	if pool := m.pool.Load(); pool != nil {
		pool.Wake()
	}
}

// resolveService fetches a typed service from the registry.
func resolveService[T any](ctx *core.AppContext, name string) (T, error) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("pipeline: required service %q not registered", name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline: service %q has unexpected type %T", name, svc)
	}
	return typed, nil
}
