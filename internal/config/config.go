// Package config provides configuration types and defaults for mousetrap.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default constants
const (
	// DefaultOutputExtension is the container used for clip outputs.
	DefaultOutputExtension = ".avi"

	// DefaultFallbackFPS is used when the source reports no usable frame rate.
	DefaultFallbackFPS float64 = 25

	// DefaultFrameOffset maps 1-based annotation frames onto 0-based table rows.
	DefaultFrameOffset = 1

	// DefaultTargetsSuffix is appended to the feature file stem for merged output.
	DefaultTargetsSuffix = "_targets"

	// ProxyFPS is the frame rate of the intermediate MJPEG proxy.
	ProxyFPS = 25

	// ProxyQuality is the MJPEG qscale used for the intermediate proxy.
	ProxyQuality = 2

	// MinProxyBytes is the smallest proxy file accepted as a valid transcode.
	MinProxyBytes int64 = 1000

	// ProgressLogIntervalPercent is the progress logging interval.
	ProgressLogIntervalPercent = 5
)

// DefaultExcludedBehaviors lists behaviors that are usually not classifier targets.
var DefaultExcludedBehaviors = []string{"other"}

// ClipExtensions lists the clip output containers offered to users.
var ClipExtensions = []string{".avi", ".mp4", ".mov", ".mkv"}

// ParseExtension normalizes a clip output extension such as "MP4" or ".mp4".
func ParseExtension(s string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(s))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, valid := range ClipExtensions {
		if ext == valid {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: '%s', valid options: %s", ErrInvalidExtension, s, strings.Join(ClipExtensions, ", "))
}

// Config holds all configuration for clip extraction and label conversion.
// A Config is passed explicitly into every pipeline call.
type Config struct {
	// Input/output paths
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	LogDir    string `yaml:"log_dir"`
	TempDir   string `yaml:"temp_dir"` // Optional, defaults to OutputDir

	// Clip extraction
	OutputExtension string  `yaml:"output_extension"`
	FallbackFPS     float64 `yaml:"fallback_fps"`
	UseAVIProxy     bool    `yaml:"use_avi_proxy"` // Transcode .seq/.mp4 to MJPEG AVI before clipping
	KeepProxy       bool    `yaml:"keep_proxy"`
	ValidateClips   bool    `yaml:"validate_clips"`
	AnnotationsCSV  string  `yaml:"annotations_csv"` // Optional multi-file CSV

	// Label conversion
	FrameOffset         int      `yaml:"frame_offset"`
	IncludedBehaviors   []string `yaml:"included_behaviors"` // nil means not given
	IncludeAllBehaviors bool     `yaml:"include_all_behaviors"`
	ExcludedBehaviors   []string `yaml:"excluded_behaviors"`
	TargetsSuffix       string   `yaml:"targets_suffix"`

	// External tools
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// NewConfig creates a new Config with default values.
func NewConfig(outputDir, logDir string) *Config {
	return &Config{
		OutputDir:           outputDir,
		LogDir:              logDir,
		OutputExtension:     DefaultOutputExtension,
		FallbackFPS:         DefaultFallbackFPS,
		UseAVIProxy:         true,
		ValidateClips:       true,
		FrameOffset:         DefaultFrameOffset,
		IncludeAllBehaviors: true,
		ExcludedBehaviors:   append([]string(nil), DefaultExcludedBehaviors...),
		TargetsSuffix:       DefaultTargetsSuffix,
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.OutputExtension, ".") {
		return fmt.Errorf("%w: must start with '.', got %q", ErrInvalidExtension, c.OutputExtension)
	}

	if strings.EqualFold(c.OutputExtension, ".gif") {
		return fmt.Errorf("%w: GIF output is not supported for clipping", ErrInvalidExtension)
	}

	if c.FallbackFPS <= 0 {
		return fmt.Errorf("%w: must be positive, got %g", ErrInvalidFPS, c.FallbackFPS)
	}

	if c.FrameOffset < 0 {
		return fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidFrameOffset, c.FrameOffset)
	}

	if c.TargetsSuffix == "" {
		return fmt.Errorf("%w: merged output would overwrite the feature file", ErrInvalidTargetsSuffix)
	}

	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return ErrEmptyBinaryPath
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir if not set.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}

// Load reads configuration from a YAML file on top of the defaults. An empty
// path searches the standard locations; a missing searched file yields defaults.
func Load(path string) (*Config, error) {
	cfg := NewConfig("", "")

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigFile, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}

	return cfg, nil
}

// Save writes configuration to file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func findConfigFile() string {
	candidates := []string{
		"./mousetrap.yaml",
		"./mousetrap.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "mousetrap", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

type contextKey string

const configKey contextKey = "config"

// WithConfig stores config in context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context, falling back to defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return NewConfig("", "")
}
