// Package gateway is the HTTP surface: search, analysis (JSON, SSE, and
// websocket framing), word-index reads, health, and metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/quota"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/internal/stream"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// waker lets the gateway nudge the worker pool after enqueueing a job.
type waker interface {
	Wake()
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports
// it, and every collaborator is resolved from the service registry at
// Start().
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	segments storage.SegmentStore
	jobs     storage.JobStore
	words    storage.WordIndex

	limiter  *quota.Limiter
	paywall  *quota.Paywall
	ruleFor  func(route string) quota.LimitConfig
	registry *stream.Registry
	replayer *stream.Replayer
	pool     waker
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves collaborators from the
// service registry and starts the HTTP server.
func (g *Gateway) Start() error {
	var err error
	if g.segments, err = resolveService[storage.SegmentStore](g.appCtx, "store.segments"); err != nil {
		return err
	}
	if g.jobs, err = resolveService[storage.JobStore](g.appCtx, "store.jobs"); err != nil {
		return err
	}
	if g.words, err = resolveService[storage.WordIndex](g.appCtx, "store.words"); err != nil {
		return err
	}
	quotaMod, err := resolveService[*quota.Module](g.appCtx, "quota.engine")
	if err != nil {
		return err
	}
	g.limiter = quotaMod.Limiter()
	g.paywall = quotaMod.Paywall()
	g.ruleFor = quotaMod.RuleFor

	streamMod, err := resolveService[*stream.Module](g.appCtx, "stream.registry")
	if err != nil {
		return err
	}
	g.registry = streamMod.Registry()
	g.replayer = streamMod.Replayer()

	if g.pool, err = resolveService[waker](g.appCtx, "pipeline.module"); err != nil {
		return err
	}

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:        g.config.Bind,
		Handler:     g.buildRouter(),
		ReadTimeout: g.config.ReadTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// resolveService fetches a typed service from the registry.
func resolveService[T any](ctx *core.AppContext, name string) (T, error) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("gateway: required service %q not registered", name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("gateway: service %q has unexpected type %T", name, svc)
	}
	return typed, nil
}
