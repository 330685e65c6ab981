// Package config loads the engine-level configuration that sits above the
// core storage layers: where tables live on disk, a buffer-pool frame
// count, and a replacement policy name. The frame count and policy are
// loaded and validated here only; record.OpenTable does not read them and
// always opens its own 10-frame LRU pool.
// PageSize itself is not part of this configuration — spec.md §6 fixes it
// at compile time.
package config

import (
	"os"

	"github.com/ferrolabs/ferrodb/bufferpool"
	"github.com/ferrolabs/ferrodb/errs"
	"gopkg.in/yaml.v3"
)

// Config holds the knobs this module leaves open above the fixed page
// format.
type Config struct {
	TableDir      string `yaml:"table_dir"`
	BufferFrames  int    `yaml:"buffer_frames"`
	ReplacementBy string `yaml:"replacement_policy"` // "FIFO" or "LRU"
}

// Default returns the configuration the teacher's NewDBConfig used:
// 16 frames, LRU, tables under dir.
func Default(dir string) *Config {
	return &Config{TableDir: dir, BufferFrames: 16, ReplacementBy: "LRU"}
}

// Strategy resolves ReplacementBy into a bufferpool.Strategy.
func (c *Config) Strategy() (bufferpool.Strategy, error) {
	switch c.ReplacementBy {
	case "", "LRU":
		return bufferpool.LRU, nil
	case "FIFO":
		return bufferpool.FIFO, nil
	default:
		return 0, errs.Newf(errs.StrategyNotFound, "unknown replacement policy %q", c.ReplacementBy)
	}
}

// Load reads a YAML config file, falling back to Default(".") for any
// field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.FileNotFound, err, "load config")
	}
	c := Default(".")
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errs.Wrap(errs.InvalidArg, err, "parse config")
	}
	if c.BufferFrames <= 0 {
		c.BufferFrames = 16
	}
	if c.TableDir == "" {
		c.TableDir = "."
	}
	return c, nil
}
