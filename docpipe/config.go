package docpipe

import (
	"log/slog"
	"runtime"

	"github.com/hazyhaar/docforge/guard"
)

// Config configures the conversion pipeline.
type Config struct {
	// Guard holds the admission-control limits.
	Guard guard.Config `json:"guard" yaml:"guard"`

	// Workers bounds page-parallel rendering within one call
	// (default: GOMAXPROCS, capped at 8).
	Workers int `json:"workers" yaml:"workers"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	c.Guard.Defaults()
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
		if c.Workers > 8 {
			c.Workers = 8
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
