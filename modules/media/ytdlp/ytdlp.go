// Package ytdlp implements the video catalog and audio downloader contracts
// by shelling out to the yt-dlp CLI. Embeddability is answered by the
// public oEmbed endpoint: videos with embedding disabled return 401/403.
package ytdlp

import (
	"fmt"
	"net/http"
	"os/exec"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/media"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ media.Catalog     = (*catalog)(nil)
	_ media.Downloader  = (*downloader)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Module wires the yt-dlp adapters into the module system.
type Module struct {
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "media.ytdlp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("ytdlp: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()

	client := &http.Client{Timeout: m.config.OEmbedTimeout}
	ctx.RegisterService("media.catalog", &catalog{
		cfg:    m.config,
		client: client,
		logger: ctx.Logger,
	})
	ctx.RegisterService("media.downloader", &downloader{
		cfg:    m.config,
		logger: ctx.Logger,
	})

	ctx.Logger.Info("yt-dlp media module provisioned",
		"binary", m.config.BinaryPath,
		"scratch_dir", m.config.ScratchDir,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if _, err := exec.LookPath(m.config.BinaryPath); err != nil {
		return fmt.Errorf("ytdlp: binary %q not found on PATH: %w", m.config.BinaryPath, err)
	}
	return nil
}
