// config.go: This file contains the configuration for VoxWatch. It defines the
// settings struct and functions to load and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains general application settings.
type MainSettings struct {
	Name     string // name of this node, used in result output
	LogLevel string // slog level: debug, info, warn, error
}

// AudioSettings contains settings for audio capture and file input.
type AudioSettings struct {
	Source         string  // audio capture source device name or ID
	WindowSize     int     // analysis window length in samples
	WindowMs       int     // optional window length in milliseconds, overrides windowsize when > 0
	QueueSize      int     // bounded pending-frame queue length
	CaptureTimeout float64 // seconds NextFrame waits for a full frame before timing out
	Export         struct {
		Enabled bool   // save captured clips from the record command
		Path    string // directory for exported clips
	}
}

// DSPSettings contains settings for preprocessing and feature extraction.
type DSPSettings struct {
	NoiseFloor      float64 // noise gate floor as absolute amplitude in [0,1)
	MFCCCount       int     // number of MFCC coefficients kept per frame
	MelBands        int     // number of mel filter bank bands
	RolloffFraction float64 // spectral energy fraction for rolloff, e.g. 0.85
}

// ModelSettings describes one classifier in the ensemble.
type ModelSettings struct {
	Type   string  `yaml:"type"`   // spectral, cepstral, combined or tflite
	Name   string  `yaml:"name"`   // unique model identifier
	Weight float64 `yaml:"weight"` // combination weight, 0 means equal share
	Path   string  `yaml:"path"`   // model file path, tflite only
}

// EnsembleSettings contains settings for the model ensemble.
type EnsembleSettings struct {
	Models       []ModelSettings // classifiers to load
	ScoreTimeout float64         // per-model scoring timeout in seconds
	Sensitivity  float64         // sigmoid sensitivity for the tflite backend
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus telemetry endpoint
	Listen  string // listen address and port of telemetry endpoint
}

// OutputSettings controls how detection results are rendered.
type OutputSettings struct {
	JSON bool // emit one JSON object per result instead of text
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool // true to enable debug output

	Main      MainSettings
	Audio     AudioSettings
	DSP       DSPSettings
	Ensemble  EnsembleSettings
	Telemetry TelemetrySettings
	Output    OutputSettings

	// Runtime values, not read from the config file
	Input struct {
		Path     string  `yaml:"-"` // input WAV file for record --input
		Duration float64 `yaml:"-"` // capture duration in seconds for record
		Out      string  `yaml:"-"` // explicit clip output path for record --out
	} `yaml:"-"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings struct, creating a default
// config file if none exists.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

func initViper() error {
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}
	viper.SetConfigName("config")

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config yet, write the embedded default to the first path.
		if err := createDefaultConfig(configPaths[0]); err != nil {
			return err
		}
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading newly created config file: %w", err)
		}
	}

	return nil
}

// createDefaultConfig copies the embedded default config.yaml to configPath.
func createDefaultConfig(configPath string) error {
	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	configFilePath := filepath.Join(configPath, "config.yaml")
	if err := os.WriteFile(configFilePath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configFilePath)
	return nil
}

// GetDefaultConfigPaths returns the paths where a config file is searched for,
// in order of precedence.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return []string{"."}, nil //nolint:nilerr // fall back to cwd when no user config dir
	}
	return []string{
		filepath.Join(configDir, "voxwatch"),
		".",
	}, nil
}

// Setting returns the shared Settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings file: %w", err)
	}
	return nil
}

// WindowSamples resolves the analysis window length in samples, honoring a
// millisecond override when present.
func (s *Settings) WindowSamples() int {
	if s.Audio.WindowMs > 0 {
		return s.Audio.WindowMs * SampleRate / 1000
	}
	return s.Audio.WindowSize
}
