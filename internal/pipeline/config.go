package pipeline

import "time"

// Config tunes the worker pool and the per-job state machine. The zero
// value is completed by defaults().
type Config struct {
	// MaxConcurrentJobs bounds how many jobs run at once.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// PollInterval is how often the pool re-checks the queue when idle.
	PollInterval time.Duration `yaml:"poll_interval"`

	// JobTimeout is the wall-clock bound for one job, checked before each
	// candidate.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// ResultsPerStrategy is how many candidates each search strategy asks
	// the catalog for.
	ResultsPerStrategy int `yaml:"results_per_strategy"`

	// MaxCandidates caps unique candidates across all strategies.
	MaxCandidates int `yaml:"max_candidates"`

	// ChunkSeconds is the fixed transcription chunk length.
	ChunkSeconds int `yaml:"chunk_seconds"`

	// MaxChunks caps chunks per video before the video is skipped.
	MaxChunks int `yaml:"max_chunks"`

	// English holds the language-gate thresholds. Both are empirical and
	// deliberately configurable.
	English EnglishConfig `yaml:"english"`
}

// EnglishConfig holds the English-language heuristic thresholds.
type EnglishConfig struct {
	MinHits          int     `yaml:"min_hits"`
	MaxNonASCIIRatio float64 `yaml:"max_nonascii_ratio"`
}

func (c *Config) defaults() {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 15 * time.Minute
	}
	if c.ResultsPerStrategy <= 0 {
		c.ResultsPerStrategy = 5
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 10
	}
	if c.ChunkSeconds <= 0 {
		c.ChunkSeconds = 30
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = 10
	}
	if c.English.MinHits <= 0 {
		c.English.MinHits = 5
	}
	if c.English.MaxNonASCIIRatio <= 0 {
		c.English.MaxNonASCIIRatio = 0.2
	}
}
