// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "RENPAK_CONFIG"

// Config is the whole configuration file.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds defaults for `renpak build`.
type BuildConfig struct {
	// Quality is the encoder quality, 0-100.
	Quality int `yaml:"quality"`

	// Speed is the encoder speed, 0 (slowest) to 10.
	Speed int `yaml:"speed"`

	// Workers is the encode worker count. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Exclude lists entry-name prefixes that are never recoded.
	Exclude []string `yaml:"exclude"`

	// DisableDefaultExclusions turns off the built-in gui/ exclusion.
	DisableDefaultExclusions bool `yaml:"disable_default_exclusions"`

	// FailFast aborts the build on the first codec failure instead of
	// passing the asset through.
	FailFast bool `yaml:"fail_fast"`

	// SequenceThreshold is the minimum run of numbered frames grouped
	// into one sequence. Values below 2 disable grouping.
	SequenceThreshold int `yaml:"sequence_threshold"`

	// Backend selects the codec backend. Empty picks the best one
	// compiled in.
	Backend string `yaml:"backend"`

	// ManifestSidecar also writes <output>.manifest.json.
	ManifestSidecar bool `yaml:"manifest_sidecar"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// Cache is the encoded-payload cache directory.
	Cache string `yaml:"cache"`
}

// LoggingConfig controls process logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			Quality:           60,
			Speed:             8,
			Workers:           0,
			SequenceThreshold: 4,
		},
		Paths: PathsConfig{
			Cache: "${XDG_CACHE_HOME:-${HOME}/.cache}/renpak",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the file named by path, or by RENPAK_CONFIG when path is
// empty. With neither, it returns Default with variables expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		config := Default()
		config.expandVariables()
		return config, nil
	}
	return LoadFile(path)
}

// LoadFile reads one YAML file over Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Parse decodes YAML over Default, expands variables and validates.
func Parse(data []byte) (*Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	config.expandVariables()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ResolvedWorkers returns the worker count, substituting the CPU count for 0.
func (b BuildConfig) ResolvedWorkers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

func (c *Config) expandVariables() {
	c.Paths.Cache = filepath.Clean(expandVars(c.Paths.Cache, nil))
}

// varPattern matches ${NAME} and ${NAME:-default}. Defaults may nest
// one level, as in ${XDG_CACHE_HOME:-${HOME}/.cache}.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^{}]|\{[^{}]*\})*))?\}`)

// expandVars replaces variable references using vars first and the
// process environment second. Unset variables without a default
// expand to the empty string.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return expandVars(fallback, vars)
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Build.Quality < 0 || c.Build.Quality > 100 {
		errs = append(errs, fmt.Errorf("build.quality must be 0-100, got %d", c.Build.Quality))
	}
	if c.Build.Speed < 0 || c.Build.Speed > 10 {
		errs = append(errs, fmt.Errorf("build.speed must be 0-10, got %d", c.Build.Speed))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}
	if c.Build.SequenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("build.sequence_threshold must not be negative, got %d", c.Build.SequenceThreshold))
	}
	for _, prefix := range c.Build.Exclude {
		if strings.TrimSpace(prefix) == "" {
			errs = append(errs, errors.New("build.exclude contains an empty prefix"))
		}
	}
	if !contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level))
	}
	if c.Paths.Cache == "" || c.Paths.Cache == "." {
		errs = append(errs, errors.New("paths.cache is required"))
	}
	return errors.Join(errs...)
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
