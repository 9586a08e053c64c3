// Package config handles TOML and YAML configuration for costscan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/costscan/internal/filter"
	"github.com/yairfalse/costscan/pkg/resource"
)

// Config is the root configuration structure.
type Config struct {
	AWS     AWSConfig     `toml:"aws" yaml:"aws"`
	Scanner ScannerConfig `toml:"scanner" yaml:"scanner"`
	Output  OutputConfig  `toml:"output" yaml:"output"`
	OTEL    OTELConfig    `toml:"otel" yaml:"otel"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	// Region is the home region for region listing and global services.
	Region         string   `toml:"region" yaml:"region"`
	Regions        []string `toml:"regions" yaml:"regions"`
	ExcludeRegions []string `toml:"exclude_regions" yaml:"exclude_regions"`
	EKSRegions     []string `toml:"eks_regions" yaml:"eks_regions"`
	Profile        string   `toml:"profile" yaml:"profile"`
}

// ScannerConfig holds check execution settings.
type ScannerConfig struct {
	Concurrency     int           `toml:"concurrency" yaml:"concurrency"`
	CheckTimeoutStr string        `toml:"check_timeout" yaml:"check_timeout"`
	CheckTimeout    time.Duration `toml:"-" yaml:"-"`
	Services        []string      `toml:"services" yaml:"services"`
	ExcludeServices []string      `toml:"exclude_services" yaml:"exclude_services"`
}

// OutputConfig selects the report sinks.
type OutputConfig struct {
	Dir         string `toml:"dir" yaml:"dir"`
	Console     bool   `toml:"console" yaml:"console"`
	CSV         bool   `toml:"csv" yaml:"csv"`
	XLSX        bool   `toml:"xlsx" yaml:"xlsx"`
	JSON        bool   `toml:"json" yaml:"json"`
	MetricsFile string `toml:"metrics_file" yaml:"metrics_file"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint" yaml:"endpoint"`
	Insecure    bool          `toml:"insecure" yaml:"insecure"`
	ServiceName string        `toml:"service_name" yaml:"service_name"`
	Traces      TracesConfig  `toml:"traces" yaml:"traces"`
	Metrics     MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled" yaml:"enabled"`
	SampleRate float64 `toml:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Scanner: ScannerConfig{
			Concurrency:     8,
			CheckTimeoutStr: "30s",
		},
		Output: OutputConfig{
			Dir:     ".",
			Console: true,
			CSV:     true,
			XLSX:    true,
		},
		OTEL: OTELConfig{
			Traces: TracesConfig{SampleRate: 1.0},
		},
	}
	applyDefaults(cfg)
	_ = parseDurations(cfg)
	return cfg
}

// Load reads a config file over the defaults. Files ending in .yaml or .yml
// are parsed as YAML, anything else as TOML. An empty path yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "costscan"
	}
	if cfg.Scanner.CheckTimeoutStr == "" {
		cfg.Scanner.CheckTimeoutStr = "30s"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func parseDurations(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Scanner.CheckTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse check_timeout %q: %w", cfg.Scanner.CheckTimeoutStr, err)
	}
	cfg.Scanner.CheckTimeout = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.Scanner.Concurrency < 1 {
		return fmt.Errorf("scanner: concurrency must be at least 1 (got %d)", c.Scanner.Concurrency)
	}
	if c.Scanner.CheckTimeout <= 0 {
		return fmt.Errorf("scanner: check_timeout must be positive (got %s)", c.Scanner.CheckTimeout)
	}
	if _, err := parseServices(c.Scanner.Services); err != nil {
		return fmt.Errorf("scanner: services: %w", err)
	}
	if _, err := parseServices(c.Scanner.ExcludeServices); err != nil {
		return fmt.Errorf("scanner: exclude_services: %w", err)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: format must be console or json (got %q)", c.Log.Format)
	}
	o := c.Output
	if !o.Console && !o.CSV && !o.XLSX && !o.JSON && o.MetricsFile == "" {
		return fmt.Errorf("output: every output is disabled")
	}
	return nil
}

// Filter builds the service and region filter described by the config.
func (c *Config) Filter() (*filter.Filter, error) {
	include, err := parseServices(c.Scanner.Services)
	if err != nil {
		return nil, fmt.Errorf("scanner: services: %w", err)
	}
	exclude, err := parseServices(c.Scanner.ExcludeServices)
	if err != nil {
		return nil, fmt.Errorf("scanner: exclude_services: %w", err)
	}
	return filter.New(include, exclude, c.AWS.ExcludeRegions), nil
}

func parseServices(names []string) ([]resource.Service, error) {
	services := make([]resource.Service, 0, len(names))
	for _, name := range names {
		s, ok := resource.ParseService(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown service %q", name)
		}
		services = append(services, s)
	}
	return services, nil
}
