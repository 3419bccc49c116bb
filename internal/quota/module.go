package quota

import (
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/storage"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config is the quota.engine module configuration.
type Config struct {
	// Throttle maps a route name to its limits. Routes absent from the
	// map use LimitConfig defaults.
	Throttle map[string]LimitConfig `yaml:"throttle"`

	// Paywall tunes the AI quota.
	Paywall PaywallConfig `yaml:"paywall"`
}

// Module wires the gates into the module system.
type Module struct {
	cfg     Config
	appCtx  *core.AppContext
	limiter atomic.Pointer[Limiter]
	paywall atomic.Pointer[Paywall]
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "quota.engine",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.cfg)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	ctx.RegisterService("quota.engine", m)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("store.quota")
	if !ok {
		return fmt.Errorf("quota: required service %q not registered", "store.quota")
	}
	store, ok := svc.(storage.QuotaStore)
	if !ok {
		return fmt.Errorf("quota: service %q has unexpected type %T", "store.quota", svc)
	}
	// The entitlement provider is optional. Without one, nobody is a
	// subscriber and everyone gets the free-tier allowance.
	var provider Entitlement = noSubscriptions{}
	if svc, ok := m.appCtx.Service("entitlement.provider"); ok {
		typed, ok := svc.(Entitlement)
		if !ok {
			return fmt.Errorf("quota: service %q has unexpected type %T", "entitlement.provider", svc)
		}
		provider = typed
	} else {
		m.appCtx.Logger.Info("quota: no entitlement provider, free tier only")
	}

	m.limiter.Store(NewLimiter(store, m.appCtx.Logger))
	m.paywall.Store(NewPaywall(m.cfg.Paywall, store, provider, m.appCtx.Logger))
	return nil
}

// Limiter returns the running throttle, or nil before Start.
func (m *Module) Limiter() *Limiter {
	return m.limiter.Load()
}

// Paywall returns the running paywall, or nil before Start.
func (m *Module) Paywall() *Paywall {
	return m.paywall.Load()
}

// RuleFor returns the throttle limits for route.
func (m *Module) RuleFor(route string) LimitConfig {
	cfg := m.cfg.Throttle[route]
	cfg.defaults()
	return cfg
}

// SweepSubscriptionCache drops expired cache entries. Called from the
// maintenance cron.
func (m *Module) SweepSubscriptionCache() {
	if p := m.paywall.Load(); p != nil {
		p.cache.sweep(p.now())
	}
}
