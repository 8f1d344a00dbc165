// Package config loads ures settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/srodi/ures/pkg/report"
	"github.com/srodi/ures/pkg/types"
)

// Config holds every tunable of a report run.
type Config struct {
	ProcRoot           string        `yaml:"proc_root"`
	Workers            int           `yaml:"workers"`
	TopK               int           `yaml:"top_k"`
	HideKernel         bool          `yaml:"hide_kernel"`
	UserFilter         string        `yaml:"user_filter"`
	CommandFilter      string        `yaml:"command_filter"`
	Human              bool          `yaml:"human"`
	RestThresholdBytes uint64        `yaml:"rest_threshold_bytes"`
	HeaderEvery        int           `yaml:"header_every"`
	CPUTrace           time.Duration `yaml:"cpu_trace"`
	Reports            []string      `yaml:"reports"`
	LogLevel           string        `yaml:"log_level"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		ProcRoot:           "/proc",
		HideKernel:         true,
		RestThresholdBytes: report.DefaultRestThreshold,
		HeaderEvery:        types.DefaultHeaderEvery,
		Reports:            append([]string(nil), report.AllSections...),
		LogLevel:           "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

// Normalize lower-cases filters and report names and trims whitespace.
func (c *Config) Normalize() {
	c.UserFilter = strings.ToLower(strings.TrimSpace(c.UserFilter))
	c.CommandFilter = strings.ToLower(strings.TrimSpace(c.CommandFilter))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	for i, r := range c.Reports {
		c.Reports[i] = strings.ToLower(strings.TrimSpace(r))
	}
}

// Validate rejects settings the pipeline cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.TopK < 0 {
		errs = append(errs, fmt.Errorf("top_k must not be negative, got %d", c.TopK))
	}
	if c.HeaderEvery < 0 {
		errs = append(errs, fmt.Errorf("header_every must not be negative, got %d", c.HeaderEvery))
	}
	if c.CPUTrace < 0 {
		errs = append(errs, fmt.Errorf("cpu_trace must not be negative, got %v", c.CPUTrace))
	}
	for _, r := range c.Reports {
		if !knownSection(r) {
			errs = append(errs, fmt.Errorf("unknown report %q (want one of %s)", r, strings.Join(report.AllSections, ", ")))
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Filter returns the report filter described by the config.
func (c Config) Filter() report.FilterConfig {
	hide := c.HideKernel
	return report.FilterConfig{HideKernel: &hide, UserFilter: c.UserFilter, CommandFilter: c.CommandFilter}
}

func knownSection(name string) bool {
	for _, s := range report.AllSections {
		if s == name {
			return true
		}
	}
	return false
}
