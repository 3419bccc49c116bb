package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// WordsPageLimit caps the page size of GET /words.
	WordsPageLimit int `yaml:"words_page_limit"`
}

// defaults fills zero values. The server carries no write timeout: SSE and
// websocket responses stay open for the lifetime of a stream.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.WordsPageLimit <= 0 {
		c.WordsPageLimit = 500
	}
}
