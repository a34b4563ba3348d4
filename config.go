package decktree

import "fmt"

// Config holds all configuration for the converter.
type Config struct {
	// OutputDir receives the json/ and media/ output layout.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// SlideConcurrency bounds the per-document slide worker pool.
	// 1 (the default) keeps extraction strictly sequential; higher
	// values parallelize across slides without affecting output order.
	SlideConcurrency int `json:"slide_concurrency" yaml:"slide_concurrency"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OutputDir:        "output",
		SlideConcurrency: 1,
	}
}

// validate normalizes and checks configuration values.
func (c *Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must be set", ErrInvalidConfig)
	}
	if c.SlideConcurrency < 0 {
		return fmt.Errorf("%w: slide_concurrency must be >= 0", ErrInvalidConfig)
	}
	if c.SlideConcurrency == 0 {
		c.SlideConcurrency = 1
	}
	return nil
}
