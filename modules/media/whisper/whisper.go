// Package whisper implements the chunked transcriber contract with ffmpeg
// audio chunking and a whisper.cpp-style CLI producing WEBVTT captions.
package whisper

import (
	"fmt"
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
	_ media.Transcriber = (*transcriber)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Module wires the whisper transcriber into the module system.
type Module struct {
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "media.whisper",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("whisper: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	ctx.RegisterService("media.transcriber", &transcriber{
		cfg:    m.config,
		logger: ctx.Logger,
	})
	ctx.Logger.Info("whisper media module provisioned",
		"binary", m.config.BinaryPath,
		"model", m.config.ModelPath,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if _, err := exec.LookPath(m.config.BinaryPath); err != nil {
		return fmt.Errorf("whisper: binary %q not found on PATH: %w", m.config.BinaryPath, err)
	}
	if _, err := exec.LookPath(m.config.FFmpegPath); err != nil {
		return fmt.Errorf("whisper: ffmpeg %q not found on PATH: %w", m.config.FFmpegPath, err)
	}
	return nil
}
