// ABOUTME: Configuration loading for the engine binary
// ABOUTME: Layers file, environment and defaults through viper
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/livethru/livethru-go/pkg/audio"
)

// Backend names accepted by audio.backend.
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendSynthetic = "synthetic"
)

// Config is the full engine configuration.
type Config struct {
	Audio     AudioConfig     `mapstructure:"audio"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
	Recording RecordingConfig `mapstructure:"recording"`
}

// AudioConfig shapes the hardware streams.
type AudioConfig struct {
	SampleRate         int    `mapstructure:"sample_rate"`
	Channels           int    `mapstructure:"channels"`
	BitDepth           int    `mapstructure:"bit_depth"`
	PeriodFrames       int    `mapstructure:"period_frames"`
	InputSafetyFrames  int    `mapstructure:"input_safety_frames"`
	OutputSafetyFrames int    `mapstructure:"output_safety_frames"`
	Backend            string `mapstructure:"backend"`
}

// EngineConfig tunes the duplex engine.
type EngineConfig struct {
	// RingPeriods sizes the capture ring in input periods.
	RingPeriods int `mapstructure:"ring_periods"`
}

// LogConfig shapes structured logging.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// RecordingConfig holds optional tap targets; empty paths disable a tap.
type RecordingConfig struct {
	Input  string `mapstructure:"input"`
	Player string `mapstructure:"player"`
	Output string `mapstructure:"output"`
}

// Format returns the stream format described by the audio section.
func (c *Config) Format() audio.Format {
	return audio.Format{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BitDepth:   c.Audio.BitDepth,
	}
}

// Load reads configuration from the given file, or from livethru.yaml in
// the working directory when path is empty. Environment variables prefixed
// LIVETHRU_ override file values; a missing file just yields defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("livethru")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.livethru")
	}

	v.SetEnvPrefix("livethru")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.bit_depth", 24)
	v.SetDefault("audio.period_frames", 512)
	v.SetDefault("audio.input_safety_frames", 64)
	v.SetDefault("audio.output_safety_frames", 64)
	v.SetDefault("audio.backend", BackendMalgo)
	v.SetDefault("engine.ring_periods", 20)
	v.SetDefault("log.file", "livethru.log")
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	switch c.Audio.Backend {
	case BackendMalgo, BackendOto, BackendSynthetic:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Audio.Backend)
	}
	if c.Audio.BitDepth != 16 && c.Audio.BitDepth != 24 {
		return fmt.Errorf("config: unsupported bit depth %d", c.Audio.BitDepth)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0 {
		return fmt.Errorf("config: invalid format %dHz/%dch", c.Audio.SampleRate, c.Audio.Channels)
	}
	if c.Audio.PeriodFrames <= 0 {
		return errors.New("config: period_frames must be positive")
	}
	if c.Engine.RingPeriods <= 0 {
		return errors.New("config: ring_periods must be positive")
	}
	return nil
}
