package ytdlp

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultOEmbedURL = "https://www.youtube.com/oembed"

// Config holds the yt-dlp media module configuration.
type Config struct {
	// BinaryPath is the yt-dlp executable. Defaults to "yt-dlp" on PATH.
	BinaryPath string `yaml:"binary_path"`

	// ScratchDir receives downloaded audio files. Defaults to
	// {os.TempDir()}/phrasecue.
	ScratchDir string `yaml:"scratch_dir"`

	// SearchTimeout bounds one catalog search. Defaults to 30s.
	SearchTimeout time.Duration `yaml:"search_timeout"`

	// DownloadTimeout bounds one audio extraction. Defaults to 3m.
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	// OEmbedURL is the oEmbed endpoint used for embeddability checks.
	// Defaults to the public YouTube endpoint; tests point it at a stub.
	OEmbedURL string `yaml:"oembed_url"`

	// OEmbedTimeout bounds one embeddability check. Defaults to 10s.
	OEmbedTimeout time.Duration `yaml:"oembed_timeout"`
}

func (c *Config) defaults() {
	if c.BinaryPath == "" {
		c.BinaryPath = "yt-dlp"
	}
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "phrasecue")
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 30 * time.Second
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 3 * time.Minute
	}
	if c.OEmbedURL == "" {
		c.OEmbedURL = defaultOEmbedURL
	}
	if c.OEmbedTimeout <= 0 {
		c.OEmbedTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.BinaryPath == "" {
		return fmt.Errorf("ytdlp: binary_path must not be empty")
	}
	return nil
}
