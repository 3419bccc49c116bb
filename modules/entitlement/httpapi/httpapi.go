// Package httpapi implements the entitlement.provider module as a thin
// client for an external subscription service. The paywall treats provider
// errors as fail-open, so this client reports transport and server errors
// rather than guessing.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/quota"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ quota.Entitlement = (*client)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Config holds the entitlement client configuration.
type Config struct {
	// BaseURL is the subscription service root, e.g.
	// "https://billing.example.com". Required.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one lookup. Defaults to 5s; the paywall fails open
	// on timeout, so keep this short.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("entitlement: base_url must not be empty")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("entitlement: invalid base_url: %w", err)
	}
	return nil
}

// Module wires the entitlement client into the module system.
type Module struct {
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "entitlement.httpapi",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("entitlement: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	if m.config.APIKey != "" {
		if svc, ok := ctx.Service("log.redactor"); ok {
			if sink, ok := svc.(interface{ AddLiteral(string) }); ok {
				sink.AddLiteral(m.config.APIKey)
			}
		}
	}
	ctx.RegisterService("entitlement.provider", &client{
		cfg:  m.config,
		http: &http.Client{Timeout: m.config.Timeout},
		log:  ctx.Logger,
	})
	ctx.Logger.Info("entitlement client provisioned", "base_url", m.config.BaseURL)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// client implements quota.Entitlement against the subscription service.
type client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// subscriptionResponse is the service's lookup body.
type subscriptionResponse struct {
	Active bool `json:"active"`
}

func (c *client) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	endpoint := c.cfg.BaseURL + "/subscriptions/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("entitlement: build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("entitlement: lookup %s: %w", userID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body subscriptionResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
			return false, fmt.Errorf("entitlement: decode response: %w", err)
		}
		return body.Active, nil
	case resp.StatusCode == http.StatusNotFound:
		// Unknown user: no subscription.
		return false, nil
	default:
		return false, fmt.Errorf("entitlement: lookup %s: unexpected status %d", userID, resp.StatusCode)
	}
}
