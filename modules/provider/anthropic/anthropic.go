// Package anthropic implements the analysis.provider module, bridging the
// sentence analyzer to the Anthropic Messages API with streaming output.
package anthropic

import (
	"errors"
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module       = (*Anthropic)(nil)
	_ core.Configurable = (*Anthropic)(nil)
	_ core.Provisioner  = (*Anthropic)(nil)
	_ core.Validator    = (*Anthropic)(nil)
	_ analysis.Analyzer = (*Anthropic)(nil)
)

// Anthropic is the analysis.provider module. It implements analysis.Analyzer
// using the Anthropic Messages API.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.logger = ctx.Logger
	a.config.defaults()

	// Resolve API key: config takes precedence over environment variable.
	apiKey := a.config.APIKey
	if apiKey == "" {
		if envKey, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			apiKey = envKey
		}
	}
	registerSecret(ctx, apiKey)

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if a.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.config.BaseURL))
	}
	// Disable SDK-level retries; the analysis retrier owns retry policy.
	opts = append(opts, option.WithMaxRetries(0))

	client := sdkanthropic.NewClient(opts...)
	a.client = &client

	ctx.RegisterService("analysis.provider", a)

	a.logger.Info("anthropic provider provisioned", "model", a.config.Model)
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.Model == "" {
		return errors.New("provider.anthropic: model must not be empty")
	}
	if a.client == nil {
		return errors.New("provider.anthropic: client not initialized (Provision not called)")
	}
	return nil
}

// ModelName returns the configured model identifier.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// secretSink is the subset of the log redactor this module needs.
type secretSink interface {
	AddLiteral(secret string)
}

// registerSecret adds the API key to the application's log redactor when
// one is registered. Missing redactor is fine; tests provision without one.
func registerSecret(ctx *core.AppContext, secret string) {
	if secret == "" {
		return
	}
	if svc, ok := ctx.Service("log.redactor"); ok {
		if sink, ok := svc.(secretSink); ok {
			sink.AddLiteral(secret)
		}
	}
}
