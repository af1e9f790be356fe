// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/dtmfdecoder/internal/audio"
	"github.com/ColonelBlimp/dtmfdecoder/internal/dsp"
	"github.com/ColonelBlimp/dtmfdecoder/internal/report"
)

const (
	AppName       = "dtmfdecoder"
	ConfigType    = "yaml"
	DefaultConfig = `# DTMF Decoder Configuration

# Audio device settings
device_index: -1        # -1 for default device (see 'dtmfdecoder devices')
sample_rate: 8000       # 8000, 16000 or 44100 Hz
buffer_size: 256        # Frames per capture callback / samples per file read

# Detection thresholds
power_threshold: 328    # Minimum mean absolute sample value of a non-silent batch
low_ratio: 6            # Detected tone vs. other dial tones
high_ratio: 16          # Detected tone vs. each harmonic

# Output
output_format: "text"   # text or json
debug: false            # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio device settings
	DeviceIndex int `mapstructure:"device_index"`
	SampleRate  int `mapstructure:"sample_rate"`
	BufferSize  int `mapstructure:"buffer_size"`

	// Detection thresholds
	PowerThreshold int `mapstructure:"power_threshold"`
	LowRatio       int `mapstructure:"low_ratio"`
	HighRatio      int `mapstructure:"high_ratio"`

	// Output
	OutputFormat string `mapstructure:"output_format"`
	Debug        bool   `mapstructure:"debug"`
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 8000)
	viper.SetDefault("buffer_size", 256)
	viper.SetDefault("power_threshold", dsp.DefaultPowerThreshold)
	viper.SetDefault("low_ratio", dsp.DefaultLowRatio)
	viper.SetDefault("high_ratio", dsp.DefaultHighRatio)
	viper.SetDefault("output_format", string(report.FormatText))
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/dtmfdecoder/
func Init() error {
	SetDefaults()

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/dtmfdecoder/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Audio device settings
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device index, got %d", s.DeviceIndex))
	}
	if rates := dsp.SupportedSampleRates(); !slices.Contains(rates, s.SampleRate) {
		errs = append(errs, fmt.Errorf("sample_rate must be one of %v Hz, got %d", rates, s.SampleRate))
	}
	if s.BufferSize < 16 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 16 and 8192, got %d", s.BufferSize))
	}

	// Detection thresholds
	if s.PowerThreshold < 0 || s.PowerThreshold > 32767 {
		errs = append(errs, fmt.Errorf("power_threshold must be between 0 and 32767, got %d", s.PowerThreshold))
	}
	if s.LowRatio < 1 || s.LowRatio > 1000 {
		errs = append(errs, fmt.Errorf("low_ratio must be between 1 and 1000, got %d", s.LowRatio))
	}
	if s.HighRatio < 1 || s.HighRatio > 1000 {
		errs = append(errs, fmt.Errorf("high_ratio must be between 1 and 1000, got %d", s.HighRatio))
	}

	// Output
	if _, err := report.ParseFormat(s.OutputFormat); err != nil {
		errs = append(errs, fmt.Errorf("output_format must be text or json, got %q", s.OutputFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Thresholds returns the classification thresholds
func (s *Settings) Thresholds() dsp.Thresholds {
	return dsp.Thresholds{
		Power:     int32(s.PowerThreshold),
		LowRatio:  int32(s.LowRatio),
		HighRatio: int32(s.HighRatio),
	}
}

// DetectorConfig returns the detector configuration for the given sample
// rate. A rate of 0 selects the configured sample_rate.
func (s *Settings) DetectorConfig(sampleRate int) dsp.DetectorConfig {
	if sampleRate == 0 {
		sampleRate = s.SampleRate
	}
	return dsp.DetectorConfig{
		SampleRate: sampleRate,
		Thresholds: s.Thresholds(),
	}
}

// CaptureConfig returns the audio capture configuration
func (s *Settings) CaptureConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BufferSize:  uint32(s.BufferSize),
	}
}
