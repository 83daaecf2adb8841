package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/junsooki/rawconv/internal/decoder"
	"github.com/junsooki/rawconv/internal/encoder"
)

// Layout mirrors decoder.Layout for the config file.
type Layout struct {
	Prologue int `yaml:"prologue"`
	Preamble int `yaml:"preamble"`
	Reserved int `yaml:"reserved"`
}

// Config holds all runtime configuration. Every binary reads the subset it
// registers flags for.
type Config struct {
	InputDir  string `yaml:"input_dir"`
	Pattern   string `yaml:"pattern"`
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
	Scale     int    `yaml:"scale"`

	Workers  int  `yaml:"workers"`
	FailFast bool `yaml:"fail_fast"`
	Verify   bool `yaml:"verify"`

	Strict    bool   `yaml:"strict"`
	MaxPixels int    `yaml:"max_pixels"`
	Layout    Layout `yaml:"layout"`

	Listen          string `yaml:"listen"`
	Remote          string `yaml:"remote"`
	MaxMessageBytes int64  `yaml:"max_message_bytes"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Command-line only.
	Info     bool `yaml:"-"`
	Progress bool `yaml:"-"`
}

// Default returns the configuration used when neither a file nor a flag
// sets a value.
func Default() *Config {
	return &Config{
		InputDir:  ".",
		Pattern:   "*.raw",
		OutputDir: "out",
		Format:    "png",
		Quality:   90,
		Scale:     1,
		Workers:   runtime.NumCPU(),
		MaxPixels: decoder.DefaultMaxPixels,
		Layout: Layout{
			Prologue: decoder.DefaultLayout.Prologue,
			Preamble: decoder.DefaultLayout.Preamble,
			Reserved: decoder.DefaultLayout.Reserved,
		},
		Listen:          "localhost:8090",
		MaxMessageBytes: 64 << 20,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("config %s: %d field errors: %v", path, len(typeErr.Errors), typeErr.Errors)
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// DecoderLayout converts the configured layout.
func (c *Config) DecoderLayout() decoder.Layout {
	return decoder.Layout{
		Prologue: c.Layout.Prologue,
		Preamble: c.Layout.Preamble,
		Reserved: c.Layout.Reserved,
	}
}

// NewDecoder builds the raw decoder described by c.
func (c *Config) NewDecoder() *decoder.RawDecoder {
	return decoder.NewRawDecoder(
		decoder.WithLayout(c.DecoderLayout()),
		decoder.WithMaxPixels(c.MaxPixels),
		decoder.WithStrict(c.Strict),
	)
}

// Validate checks the fields shared by all binaries.
func (c *Config) Validate() error {
	if err := c.DecoderLayout().Validate(); err != nil {
		return err
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max-pixels must be positive, got %d", c.MaxPixels)
	}
	if _, err := encoder.New(c.Format, c.Quality); err != nil {
		return err
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be 1-100, got %d", c.Quality)
	}
	if c.Scale < 1 || c.Scale > encoder.MaxScale {
		return fmt.Errorf("scale must be 1-%d, got %d", encoder.MaxScale, c.Scale)
	}
	return nil
}

// ParseConvertFlags parses flags for the rawconv binary.
func ParseConvertFlags(args []string) (*Config, error) {
	cfg, err := parse("rawconv", args, func(fs *flag.FlagSet, cfg *Config) {
		registerInput(fs, cfg)
		registerDecoder(fs, cfg)
		registerOutput(fs, cfg)
		registerLog(fs, cfg)
		fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory")
		fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Files decoded in parallel")
		fs.BoolVar(&cfg.FailFast, "fail-fast", cfg.FailFast, "Stop at the first failed file")
		fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Re-decode png or tiff output and compare pixels")
		fs.StringVar(&cfg.Remote, "remote", cfg.Remote, "Decode through a rawserve WebSocket URL")
		fs.BoolVar(&cfg.Info, "info", cfg.Info, "Print each file's header and exit")
		fs.BoolVar(&cfg.Progress, "progress", cfg.Progress, "Show a progress bar instead of log lines")
	})
	if err != nil {
		return nil, err
	}
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("-in is required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

// ParseViewFlags parses flags for the rawview binary.
func ParseViewFlags(args []string) (*Config, error) {
	cfg, err := parse("rawview", args, func(fs *flag.FlagSet, cfg *Config) {
		registerInput(fs, cfg)
		registerDecoder(fs, cfg)
		registerLog(fs, cfg)
	})
	if err != nil {
		return nil, err
	}
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("-in is required")
	}
	return cfg, nil
}

// ParseServeFlags parses flags for the rawserve binary.
func ParseServeFlags(args []string) (*Config, error) {
	cfg, err := parse("rawserve", args, func(fs *flag.FlagSet, cfg *Config) {
		registerDecoder(fs, cfg)
		registerLog(fs, cfg)
		fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
		fs.Int64Var(&cfg.MaxMessageBytes, "max-message", cfg.MaxMessageBytes, "Largest accepted container in bytes")
	})
	if err != nil {
		return nil, err
	}
	if cfg.Listen == "" {
		return nil, fmt.Errorf("-listen is required")
	}
	if cfg.MaxMessageBytes <= 0 {
		return nil, fmt.Errorf("max-message must be positive, got %d", cfg.MaxMessageBytes)
	}
	return cfg, nil
}

// parse runs the flag set twice: once to find -config, then again over the
// file's values so explicitly set flags win.
func parse(name string, args []string, register func(*flag.FlagSet, *Config)) (*Config, error) {
	var path string
	probe := flag.NewFlagSet(name, flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	probe.StringVar(&path, "config", "", "")
	register(probe, Default())
	if err := probe.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	register(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func registerInput(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.InputDir, "in", cfg.InputDir, "Directory of raw containers")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "Glob matched against file names in -in")
}

func registerDecoder(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Reject bytes after the pixel array")
	fs.IntVar(&cfg.MaxPixels, "max-pixels", cfg.MaxPixels, "Largest accepted width*height")
	fs.IntVar(&cfg.Layout.Prologue, "prologue", cfg.Layout.Prologue, "Reserved bytes before the preamble")
	fs.IntVar(&cfg.Layout.Preamble, "preamble", cfg.Layout.Preamble, "Reserved bytes before the width field")
	fs.IntVar(&cfg.Layout.Reserved, "reserved", cfg.Layout.Reserved, "Reserved bytes after the height field")
}

func registerOutput(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: png, tiff, bmp (opaque only) or jpeg")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "JPEG quality (1-100)")
	fs.IntVar(&cfg.Scale, "scale", cfg.Scale, "Integer upscale factor for output")
}

func registerLog(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
}
