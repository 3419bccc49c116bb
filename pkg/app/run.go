// Package app provides the shared entry point for the phrasecue binary.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flemzord/phrasecue/internal/config"
	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/redact"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// TempDir overrides the default scratch directory for downloaded
	// audio and transcription intermediates.
	TempDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Wrap the text handler in a redacting handler so API keys loaded by
	// modules never reach the log output.
	redactor := redact.New()
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	})
	logger := slog.New(redact.NewHandler(inner, redactor))

	shutdownTracing, err := setupTelemetry(context.Background(), cfg.Telemetry, params.Version)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tempDir := params.TempDir
	if tempDir == "" {
		tempDir = DefaultTempDir()
	}

	appCtx := core.NewAppContext(logger, dataDir, tempDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	// Register the config path so modules can discover it.
	appCtx.RegisterService("config.path", cfgPath)
	appCtx.RegisterService("log.redactor", redactor)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return err
	}

	logger.Info("phrasecue starting", "version", params.Version, "config", cfgPath)
	return application.Run()
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/phrasecue/phrasecue.yaml →
// ~/.config/phrasecue/phrasecue.yaml → ./phrasecue.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "phrasecue", "phrasecue.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "phrasecue", "phrasecue.yaml"))
	}

	candidates = append(candidates, "phrasecue.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/phrasecue if set, otherwise ~/.local/share/phrasecue.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "phrasecue")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "phrasecue")
}

// DefaultTempDir returns the default scratch directory for media
// intermediates. The maintenance cron sweeps it periodically.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "phrasecue")
}
