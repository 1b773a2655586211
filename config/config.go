// Package config loads the configuration of a simulation run.
//
// The configuration comes from a YAML file. A .env file and OCSIM_*
// environment variables override the file. Validate must pass before any
// component is built.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/dictionary"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/workload"
)

// Config is the configuration of one run.
type Config struct {
	Cache       CacheConfig       `yaml:"cache"`
	Compression CompressionConfig `yaml:"compression"`
	Memory      MemoryConfig      `yaml:"memory"`
	Workload    WorkloadConfig    `yaml:"workload"`
	Recording   RecordingConfig   `yaml:"recording"`
	Monitor     MonitorConfig     `yaml:"monitor"`
}

// CacheConfig is the geometry of the overlay cache.
type CacheConfig struct {
	Name    string   `yaml:"name"`
	Size    ByteSize `yaml:"size"`
	Ways    int      `yaml:"ways"`
	Latency uint64   `yaml:"latency"`
	Repack  bool     `yaml:"repack"`
}

// CompressionConfig selects the codec and the default page shape.
type CompressionConfig struct {
	Kind  string    `yaml:"kind"`
	Shape string    `yaml:"shape"`
	MBD   MBDConfig `yaml:"mbd"`
}

// MBDConfig holds the multi-base delta parameters.
type MBDConfig struct {
	DictSize   int    `yaml:"dict_size"`
	IndexBits  int    `yaml:"index_bits"`
	Policy     string `yaml:"policy"`
	RunAhead   int    `yaml:"run_ahead"`
	Throughput int    `yaml:"throughput"`
	Timing     string `yaml:"timing"`
}

// MemoryConfig describes the memory behind the cache.
type MemoryConfig struct {
	Latency uint64 `yaml:"latency"`
}

// WorkloadConfig selects a trace file or describes a synthetic workload. The
// trace wins if both are given.
type WorkloadConfig struct {
	Trace          string   `yaml:"trace"`
	Seed           int64    `yaml:"seed"`
	Records        int      `yaml:"records"`
	Objects        int      `yaml:"objects"`
	LinesPerObject int      `yaml:"lines_per_object"`
	StoreFraction  float64  `yaml:"store_fraction"`
	Patterns       []string `yaml:"patterns"`
}

// RecordingConfig controls the SQLite recording of a run.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Events  bool   `yaml:"events"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	d := mbd.DefaultConfig()

	return &Config{
		Cache: CacheConfig{
			Name:    "L2",
			Size:    ByteSize(32 * mem.KB),
			Ways:    8,
			Latency: 1,
		},
		Compression: CompressionConfig{
			Kind:  compression.KindBDI.String(),
			Shape: mem.Shape4x1.String(),
			MBD: MBDConfig{
				DictSize:   d.DictSize,
				IndexBits:  d.IndexBits,
				Policy:     d.Policy.String(),
				RunAhead:   d.RunAhead,
				Throughput: d.Throughput,
				Timing:     d.Timing.String(),
			},
		},
		Memory: MemoryConfig{Latency: 100},
		Workload: WorkloadConfig{
			Seed:           1,
			Records:        100000,
			Objects:        16,
			LinesPerObject: 1024,
			StoreFraction:  0.3,
			Patterns:       []string{"zero", "smallint", "pointer", "random"},
		},
	}
}

// Load reads the configuration. The YAML file at path is optional; an empty
// path keeps the defaults. Variables in envFile are loaded into the
// environment if the file exists, without replacing variables already set.
// Environment variables are applied last.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from OCSIM_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}

			*dst = n
		}
	}

	cycles := func(key string, dst *uint64) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}

			*dst = n
		}
	}

	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}

			*dst = b
		}
	}

	if v, ok := lookup("OCSIM_CACHE_SIZE"); ok {
		size, err := ParseByteSize(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("OCSIM_CACHE_SIZE: %w", err))
		} else {
			c.Cache.Size = size
		}
	}

	integer("OCSIM_CACHE_WAYS", &c.Cache.Ways)
	cycles("OCSIM_CACHE_LATENCY", &c.Cache.Latency)
	boolean("OCSIM_CACHE_REPACK", &c.Cache.Repack)
	str("OCSIM_COMPRESSION", &c.Compression.Kind)
	str("OCSIM_SHAPE", &c.Compression.Shape)
	cycles("OCSIM_MEMORY_LATENCY", &c.Memory.Latency)
	str("OCSIM_TRACE", &c.Workload.Trace)
	integer("OCSIM_RECORDS", &c.Workload.Records)
	boolean("OCSIM_RECORD", &c.Recording.Enabled)
	str("OCSIM_RECORD_PATH", &c.Recording.Path)
	boolean("OCSIM_MONITOR", &c.Monitor.Enabled)
	integer("OCSIM_MONITOR_PORT", &c.Monitor.Port)

	return errors.Join(errs...)
}

// Kind returns the codec kind.
func (c *Config) Kind() (compression.Kind, error) {
	return compression.ParseKind(c.Compression.Kind)
}

// Shape returns the default page shape. Uncompressed caches always use
// ShapeNone.
func (c *Config) Shape() (mem.Shape, error) {
	kind, err := c.Kind()
	if err != nil {
		return mem.ShapeNone, err
	}

	if kind == compression.KindNone {
		return mem.ShapeNone, nil
	}

	return mem.ParseShape(c.Compression.Shape)
}

// MBD returns the multi-base delta configuration.
func (c *Config) MBD() (mbd.Config, error) {
	m := c.Compression.MBD

	policy, err := dictionary.ParsePolicy(m.Policy)
	if err != nil {
		return mbd.Config{}, err
	}

	timing, err := mbd.ParseTimingModel(m.Timing)
	if err != nil {
		return mbd.Config{}, err
	}

	cfg := mbd.Config{
		DictSize:   m.DictSize,
		IndexBits:  m.IndexBits,
		Policy:     policy,
		RunAhead:   m.RunAhead,
		Throughput: m.Throughput,
		Timing:     timing,
	}

	return cfg, cfg.Validate()
}

// Generator returns the synthetic workload configuration.
func (c *Config) Generator() (workload.GeneratorConfig, error) {
	w := c.Workload

	patterns := make([]workload.Pattern, 0, len(w.Patterns))
	for _, name := range w.Patterns {
		p, err := workload.ParsePattern(name)
		if err != nil {
			return workload.GeneratorConfig{}, err
		}

		patterns = append(patterns, p)
	}

	g := workload.GeneratorConfig{
		Seed:           w.Seed,
		NumRecords:     w.Records,
		NumObjects:     w.Objects,
		LinesPerObject: w.LinesPerObject,
		StoreFraction:  w.StoreFraction,
		Patterns:       patterns,
	}

	return g, g.Validate()
}

// Validate checks every field that a component would otherwise reject with a
// panic.
func (c *Config) Validate() error {
	var errs []error

	size := uint64(c.Cache.Size)

	switch {
	case size == 0 || size%mem.LineSize != 0:
		errs = append(errs, fmt.Errorf("cache size %s is not a positive multiple of %d",
			c.Cache.Size, mem.LineSize))
	case c.Cache.Ways <= 0:
		errs = append(errs, fmt.Errorf("cache ways must be positive, got %d", c.Cache.Ways))
	case (size/mem.LineSize)%uint64(c.Cache.Ways) != 0:
		errs = append(errs, fmt.Errorf("%d ways do not divide %d lines",
			c.Cache.Ways, size/mem.LineSize))
	default:
		sets := size / mem.LineSize / uint64(c.Cache.Ways)
		if sets&(sets-1) != 0 {
			errs = append(errs, fmt.Errorf("number of sets %d is not a power of two", sets))
		}
	}

	if _, err := c.Shape(); err != nil {
		errs = append(errs, err)
	}

	if kind, err := c.Kind(); err == nil && kind == compression.KindMBD {
		if _, err := c.MBD(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Workload.Trace == "" {
		if _, err := c.Generator(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		errs = append(errs, fmt.Errorf("monitor port %d out of range", c.Monitor.Port))
	}

	if strings.TrimSpace(c.Cache.Name) == "" {
		errs = append(errs, errors.New("cache name is empty"))
	}

	return errors.Join(errs...)
}

// Write stores the configuration as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
