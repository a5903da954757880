// Package config provides configuration loading and management.
//
// Values are layered: Defaults, then an optional YAML file, then FRAMEGRAB_*
// environment variables. Command line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/user/framegrab/pkg/orchestrator"
	"github.com/user/framegrab/pkg/ports"
	"github.com/user/framegrab/pkg/seekplanner"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FRAMEGRAB_"

// Output kinds.
const (
	OutputDir     = "dir"
	OutputS3      = "s3"
	OutputDiscard = "discard"
)

// Config represents the full configuration for framegrab.
type Config struct {
	// Extraction
	Frames          []int    `yaml:"frames" env:"FRAMES" envSeparator:","`
	Formats         []string `yaml:"formats" env:"FORMATS" envSeparator:","`
	Strategy        string   `yaml:"strategy" env:"STRATEGY"`
	MaxPackets      int      `yaml:"max_packets" env:"MAX_PACKETS"`
	ContinueOnError bool     `yaml:"continue_on_error" env:"CONTINUE_ON_ERROR"`

	// Image
	Quality int         `yaml:"quality" env:"QUALITY"`
	Width   int         `yaml:"width" env:"WIDTH"`
	Stamp   StampConfig `yaml:"stamp" envPrefix:"STAMP_"`

	// Output
	Output OutputConfig `yaml:"output" envPrefix:"OUTPUT_"`

	// Decoding
	FFmpegPath string `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`

	// Observability
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat    string `yaml:"log_format" env:"LOG_FORMAT"`
	MetricsFile  string `yaml:"metrics_file" env:"METRICS_FILE"`
	SummaryFile  string `yaml:"summary_file" env:"SUMMARY_FILE"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

// StampConfig configures the caption drawn on exported frames.
type StampConfig struct {
	Enabled    bool    `yaml:"enabled" env:"ENABLED"`
	FontPath   string  `yaml:"font_path" env:"FONT_PATH"`
	FontSize   float64 `yaml:"font_size" env:"FONT_SIZE"`
	Color      string  `yaml:"color" env:"COLOR"`
	Background string  `yaml:"background" env:"BACKGROUND"`
}

// OutputConfig selects where exported images are stored.
type OutputConfig struct {
	// Kind is dir, s3 or discard.
	Kind string `yaml:"kind" env:"KIND"`
	Dir  string `yaml:"dir" env:"DIR"`

	// Object store
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Formats:  []string{"ppm"},
		Strategy: string(seekplanner.ModeAuto),
		Quality:  90,

		Stamp: StampConfig{
			FontSize:   14,
			Color:      "#ffffff",
			Background: "#000000a0",
		},

		Output: OutputConfig{
			Kind:   OutputDir,
			Dir:    ".",
			UseSSL: true,
		},

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Load returns Defaults overlaid with the YAML file at path, when path is not
// empty, and then with the process environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, nil); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with FRAMEGRAB_* variables. A nil environment reads
// the process environment. Unset variables leave the current values alone.
func ApplyEnv(cfg *Config, environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate checks values that cannot be checked by the type system.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.ImageFormats(); err != nil {
		errs = append(errs, err)
	}
	if _, err := seekplanner.ParseMode(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.MaxPackets < 0 {
		errs = append(errs, fmt.Errorf("max_packets must not be negative: %d", c.MaxPackets))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be between 1 and 100: %d", c.Quality))
	}
	if c.Width < 0 {
		errs = append(errs, fmt.Errorf("width must not be negative: %d", c.Width))
	}
	for _, f := range c.Frames {
		if f < 0 {
			errs = append(errs, fmt.Errorf("frame numbers must not be negative: %d", f))
			break
		}
	}
	switch c.Output.Kind {
	case OutputDir, OutputDiscard:
	case OutputS3:
		if c.Output.Bucket == "" {
			errs = append(errs, errors.New("output bucket is required for s3 output"))
		}
		if c.Output.Endpoint == "" {
			errs = append(errs, errors.New("output endpoint is required for s3 output"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output kind %q", c.Output.Kind))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ImageFormats parses Formats, dropping duplicates.
func (c Config) ImageFormats() ([]ports.ImageFormat, error) {
	if len(c.Formats) == 0 {
		return nil, errors.New("no image format configured")
	}
	seen := make(map[ports.ImageFormat]bool)
	var formats []ports.ImageFormat
	for _, name := range c.Formats {
		for _, part := range strings.Split(name, ",") {
			f, err := ports.ParseImageFormat(part)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
	}
	return formats, nil
}

// StampStyle converts the stamp settings to a renderer style.
func (c Config) StampStyle() ports.StampStyle {
	return ports.StampStyle{
		FontSize:   c.Stamp.FontSize,
		FontPath:   c.Stamp.FontPath,
		Color:      ParseColor(c.Stamp.Color),
		Background: ParseColor(c.Stamp.Background),
	}
}

// ParseColor parses "#rrggbb" or "#rrggbbaa" into a color. Malformed input
// yields opaque black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	var v [4]uint8
	v[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		v[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}

	// color.RGBA is alpha-premultiplied
	a := uint16(v[3])
	return color.RGBA{
		R: uint8(uint16(v[0]) * a / 255),
		G: uint8(uint16(v[1]) * a / 255),
		B: uint8(uint16(v[2]) * a / 255),
		A: v[3],
	}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config for input.
// Call Validate first; invalid formats and strategies are dropped here.
func (c Config) ToOrchestratorConfig(input string) orchestrator.Config {
	formats, _ := c.ImageFormats()
	mode, _ := seekplanner.ParseMode(c.Strategy)
	return orchestrator.Config{
		Input:           input,
		Frames:          c.Frames,
		Formats:         formats,
		Strategy:        mode,
		MaxPackets:      c.MaxPackets,
		ContinueOnError: c.ContinueOnError,
	}
}
