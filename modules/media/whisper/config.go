package whisper

import (
	"fmt"
	"time"
)

// Config holds the whisper transcriber module configuration.
type Config struct {
	// BinaryPath is the whisper.cpp-style executable. Defaults to "whisper".
	BinaryPath string `yaml:"binary_path"`

	// FFmpegPath is the ffmpeg executable used for chunking. Defaults to
	// "ffmpeg".
	FFmpegPath string `yaml:"ffmpeg_path"`

	// ModelPath is the whisper model file. Passed as -m when set.
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language hint. Defaults to "en".
	Language string `yaml:"language"`

	// ChunkTimeout bounds one chunk's extract-and-transcribe cycle.
	// Defaults to 2m.
	ChunkTimeout time.Duration `yaml:"chunk_timeout"`
}

func (c *Config) defaults() {
	if c.BinaryPath == "" {
		c.BinaryPath = "whisper"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = 2 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.BinaryPath == "" {
		return fmt.Errorf("whisper: binary_path must not be empty")
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("whisper: ffmpeg_path must not be empty")
	}
	return nil
}
