package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Engine      string            `yaml:"engine"` // "analyzer" or "legacy"
	Locale      string            `yaml:"locale"`
	ModelPath   string            `yaml:"model_path"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Hotkey      HotkeyConfig      `yaml:"hotkey"`
	Inject      InjectConfig      `yaml:"inject"`
	LogLevel    string            `yaml:"log_level"`
	MetricsAddr string            `yaml:"metrics_addr"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate    uint32 `yaml:"sample_rate"`
	Channels      uint32 `yaml:"channels"`
	TapBufferSize uint32 `yaml:"tap_buffer_size"` // frames per tap callback
	QueueSize     int    `yaml:"queue_size"`      // buffered frames between tap and recognizer
}

// RecognitionConfig tunes the streaming engines.
type RecognitionConfig struct {
	PartialInterval   time.Duration `yaml:"partial_interval"`
	LegacyMaxDuration time.Duration `yaml:"legacy_max_duration"`
	SilenceThreshold  float64       `yaml:"silence_threshold"` // RMS below this counts as silence
	SilenceDuration   time.Duration `yaml:"silence_duration"`
	MaxSegment        time.Duration `yaml:"max_segment"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys       []string `yaml:"keys"`
	SwitchKeys []string `yaml:"switch_keys"`
	Mode       string   `yaml:"mode"` // "hold" or "toggle"
}

// InjectConfig controls what happens to a final transcript.
type InjectConfig struct {
	Method string `yaml:"method"` // "none", "type" or "paste"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gostt-live")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory models are downloaded into.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".local", "share", "gostt-live", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine:    "analyzer",
		Locale:    "ja_JP",
		ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.bin"),
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			TapBufferSize: 2048,
			QueueSize:     64,
		},
		Recognition: RecognitionConfig{
			PartialInterval:   500 * time.Millisecond,
			LegacyMaxDuration: time.Minute,
			SilenceThreshold:  0.01,
			SilenceDuration:   800 * time.Millisecond,
			MaxSegment:        25 * time.Second,
		},
		Hotkey: HotkeyConfig{
			Keys:       []string{"ctrl", "shift", "r"},
			SwitchKeys: []string{"ctrl", "shift", "e"},
			Mode:       "toggle",
		},
		Inject: InjectConfig{
			Method: "none",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in model_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ModelPath = expandTilde(cfg.ModelPath)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path either way.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Engine {
	case "analyzer", "legacy":
	default:
		return fmt.Errorf("engine must be \"analyzer\" or \"legacy\", got %q", c.Engine)
	}

	if c.Locale == "" {
		return fmt.Errorf("locale must not be empty")
	}

	if c.ModelPath == "" {
		return fmt.Errorf("model_path must not be empty")
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Audio.TapBufferSize == 0 {
		return fmt.Errorf("audio.tap_buffer_size must be > 0")
	}

	if c.Audio.QueueSize <= 0 {
		return fmt.Errorf("audio.queue_size must be > 0")
	}

	if c.Recognition.PartialInterval <= 0 {
		return fmt.Errorf("recognition.partial_interval must be > 0")
	}

	if c.Recognition.LegacyMaxDuration <= 0 {
		return fmt.Errorf("recognition.legacy_max_duration must be > 0")
	}

	if c.Recognition.SilenceThreshold < 0 || c.Recognition.SilenceThreshold >= 1 {
		return fmt.Errorf("recognition.silence_threshold must be in [0, 1), got %v", c.Recognition.SilenceThreshold)
	}

	if c.Recognition.SilenceDuration <= 0 {
		return fmt.Errorf("recognition.silence_duration must be > 0")
	}

	if c.Recognition.MaxSegment < c.Recognition.SilenceDuration {
		return fmt.Errorf("recognition.max_segment must be >= silence_duration")
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	switch c.Inject.Method {
	case "none", "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"none\", \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
