package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config is the cron.maintenance module configuration.
type Config struct {
	// ScratchDir is the pipeline scratch directory to sweep. Defaults to
	// the media module's default scratch location.
	ScratchDir string `yaml:"scratch_dir"`

	// ScratchMaxAge is how old a scratch entry must be before the sweep
	// removes it. Defaults to 1h.
	ScratchMaxAge time.Duration `yaml:"scratch_max_age"`

	// QuotaRetention is how long expired quota counters are kept.
	// Defaults to 24h.
	QuotaRetention time.Duration `yaml:"quota_retention"`

	// StreamMaxAge is the backstop age for terminal streams. Defaults
	// to 10m.
	StreamMaxAge time.Duration `yaml:"stream_max_age"`
}

func (c *Config) defaults() {
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "phrasecue")
	}
	if c.ScratchMaxAge <= 0 {
		c.ScratchMaxAge = time.Hour
	}
	if c.QuotaRetention <= 0 {
		c.QuotaRetention = 24 * time.Hour
	}
	if c.StreamMaxAge <= 0 {
		c.StreamMaxAge = 10 * time.Minute
	}
}

// Module runs the maintenance scheduler.
type Module struct {
	cfg       Config
	appCtx    *core.AppContext
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.maintenance",
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

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.cfg.defaults()
	return nil
}

// Start implements core.Starter. Collaborators are resolved here, after
// every module has provisioned its services.
func (m *Module) Start() error {
	logger := m.appCtx.Logger.With("component", "cron")
	s := NewScheduler(logger)

	if err := s.RegisterJob(&ScratchSweepJob{
		Dir:    m.cfg.ScratchDir,
		MaxAge: m.cfg.ScratchMaxAge,
		Logger: logger,
	}); err != nil {
		return err
	}

	if pruner, err := resolveService[CounterPruner](m.appCtx, "store.quota"); err == nil {
		if err := s.RegisterJob(&QuotaPruneJob{
			Store:     pruner,
			Retention: m.cfg.QuotaRetention,
			Logger:    logger,
		}); err != nil {
			return err
		}
	}

	if sweeper, err := resolveService[TerminalSweeper](m.appCtx, "stream.registry"); err == nil {
		if err := s.RegisterJob(&StreamSweepJob{
			Registry: sweeper,
			MaxAge:   m.cfg.StreamMaxAge,
			Logger:   logger,
		}); err != nil {
			return err
		}
	}

	if cache, err := resolveService[CacheSweeper](m.appCtx, "quota.engine"); err == nil {
		if err := s.RegisterJob(&SubscriptionSweepJob{
			Cache:  cache,
			Logger: logger,
		}); err != nil {
			return err
		}
	}

	m.scheduler = s
	return s.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler != nil {
		return m.scheduler.Stop(ctx)
	}
	return nil
}

// resolveService fetches a typed service from the registry.
func resolveService[T any](ctx *core.AppContext, name string) (T, error) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("cron: required service %q not registered", name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("cron: service %q has unexpected type %T", name, svc)
	}
	return typed, nil
}
