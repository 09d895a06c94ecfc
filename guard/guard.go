// Package guard provides admission control for the conversion pipeline:
// payload size ceilings, a heuristic page-count pre-scan, per-client
// concurrency caps, wall-clock deadlines, and byte-signature format
// cross-validation.
//
// Everything here runs before any heavy parsing or streaming starts, so a
// rejected request never produces partial output. The only state that
// outlives a single call is the per-client active-request counter, which is
// held in process memory and resets on restart.
package guard

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for guardrail rejections. Callers match with errors.Is.
var (
	ErrPayloadTooLarge          = errors.New("guard: payload exceeds size ceiling")
	ErrPageLimitExceeded        = errors.New("guard: page count exceeds ceiling")
	ErrConcurrencyLimitExceeded = errors.New("guard: concurrent request limit reached")
	ErrFileTypeMismatch         = errors.New("guard: declared type does not match file signature")
)

// Config holds the guardrail limits.
type Config struct {
	// MaxUploadBytes is the largest accepted payload (default: 50 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// MaxPages is the page-count ceiling enforced by the pre-scan (default: 200).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxPerClient caps simultaneous in-flight requests per client (default: 4).
	MaxPerClient int `json:"max_per_client" yaml:"max_per_client"`

	// Timeout is the wall-clock deadline for one conversion call (default: 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Defaults fills zero fields with production defaults.
func (c *Config) Defaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 50 * 1024 * 1024
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 200
	}
	if c.MaxPerClient <= 0 {
		c.MaxPerClient = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}

// LoadConfig reads a YAML limits file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Defaults()
	return cfg, nil
}

// CheckSize rejects a payload whose declared length exceeds the ceiling.
// The declared length is checked so oversized bodies can be refused before
// they are fully received.
func (c Config) CheckSize(declared int64) error {
	if declared > c.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, declared, c.MaxUploadBytes)
	}
	return nil
}
