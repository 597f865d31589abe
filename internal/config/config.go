// Package config loads learner and applier settings from YAML.
package config

import (
	"bytes"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fastbpe/internal/driver"
	"github.com/fastbpe/internal/learn"
	"github.com/fastbpe/internal/textio"
)

const (
	DefaultMinFrequency = 2
	DefaultMaxMerges    = 30000
	DefaultChunkLines   = 256
	DefaultCacheSize    = 1 << 16
)

type Config struct {
	MaxMerges     int    `yaml:"max-merges,omitempty"`
	MinFrequency  int64  `yaml:"min-frequency,omitempty"`
	Shards        int    `yaml:"shards,omitempty"`
	Workers       int    `yaml:"workers,omitempty"`
	ChunkLines    int    `yaml:"chunk-lines,omitempty"`
	CacheSize     int    `yaml:"cache-size,omitempty"`
	Normalization string `yaml:"normalization,omitempty"`
	// VocabThreshold drops vocabulary entries seen fewer times.
	VocabThreshold int64 `yaml:"vocab-threshold,omitempty"`
	Verify         bool  `yaml:"verify,omitempty"`
}

// Default returns a config with every default filled in.
func Default() Config {
	var c Config
	c.Normalize()
	return c
}

// Normalize fills in zero fields.
func (c *Config) Normalize() {
	if c.MaxMerges == 0 {
		c.MaxMerges = DefaultMaxMerges
	}
	if c.MinFrequency == 0 {
		c.MinFrequency = DefaultMinFrequency
	}
	if c.Shards == 0 {
		c.Shards = runtime.NumCPU()
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkLines == 0 {
		c.ChunkLines = DefaultChunkLines
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.MaxMerges < 0:
		return errors.Errorf("max-merges must not be negative, got %d", c.MaxMerges)
	case c.MinFrequency < 1:
		return errors.Errorf("min-frequency must be at least 1, got %d", c.MinFrequency)
	case c.Shards < 1:
		return errors.Errorf("shards must be at least 1, got %d", c.Shards)
	case c.Workers < 1:
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.ChunkLines < 1:
		return errors.Errorf("chunk-lines must be at least 1, got %d", c.ChunkLines)
	}
	_, err := textio.ParseNormalization(c.Normalization)
	return err
}

// Parse decodes YAML and normalizes the result. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return c, errors.Wrap(err, "parse config")
	}
	c.Normalize()
	return c, c.Validate()
}

// Load reads the config file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	c, err := Parse(data)
	return c, errors.Wrapf(err, "config %s", path)
}

// Normalizer returns the configured input normalizer.
func (c *Config) Normalizer() (textio.Normalizer, error) {
	return textio.ParseNormalization(c.Normalization)
}

// Learn returns the learner settings.
func (c *Config) Learn(logger *log.Logger) (learn.Config, error) {
	n, err := c.Normalizer()
	if err != nil {
		return learn.Config{}, err
	}
	return learn.Config{
		MaxMerges:    c.MaxMerges,
		MinFrequency: c.MinFrequency,
		Shards:       c.Shards,
		Normalizer:   n,
		Logger:       logger,
		Verify:       c.Verify,
	}, nil
}

// Driver returns the parallel apply settings.
func (c *Config) Driver() driver.Options {
	return driver.Options{Workers: c.Workers, ChunkLines: c.ChunkLines}
}
