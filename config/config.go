// Package config loads host configuration from TOML: bus settings plus
// the declarative agent configs the registry instantiates from.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/agentbus/agent"
	"github.com/vinayprograms/agentbus/bus"
	"github.com/vinayprograms/agentbus/errors"
)

// Duration wraps time.Duration so TOML values can be written as "30s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Bus holds the bus section of a config file. Zero values fall back to
// the bus package defaults.
type Bus struct {
	MaxPayloadSize int      `toml:"max_payload_size"`
	MaxQueueSize   int      `toml:"max_queue_size"`
	RequestTimeout Duration `toml:"request_timeout"`
	Batching       Batching `toml:"batching"`
}

// Batching holds the batching subsection.
type Batching struct {
	Enabled  bool     `toml:"enabled"`
	Size     int      `toml:"size"`
	Interval Duration `toml:"interval"`
}

// File is a parsed host configuration.
type File struct {
	Bus    Bus            `toml:"bus"`
	Agents []agent.Config `toml:"agents"`
}

// Load reads and validates a TOML config file.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(string(content))
}

// Parse decodes and validates TOML config content.
func Parse(content string) (*File, error) {
	var f File
	if _, err := toml.Decode(content, &f); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "decode config")
	}

	seen := make(map[string]bool, len(f.Agents))
	for i := range f.Agents {
		cfg := &f.Agents[i]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if seen[cfg.ID] {
			return nil, errors.InvalidInput("duplicate agent id: " + cfg.ID)
		}
		seen[cfg.ID] = true
	}
	return &f, nil
}

// BusConfig maps the file's bus section onto a bus.Config, leaving the
// bus package to fill defaults for zero values.
func (f *File) BusConfig() bus.Config {
	return bus.Config{
		MaxPayloadSize: f.Bus.MaxPayloadSize,
		MaxQueueSize:   f.Bus.MaxQueueSize,
		RequestTimeout: f.Bus.RequestTimeout.Std(),
		Batching: bus.BatchConfig{
			Enabled:  f.Bus.Batching.Enabled,
			Size:     f.Bus.Batching.Size,
			Interval: f.Bus.Batching.Interval.Std(),
		},
	}
}
