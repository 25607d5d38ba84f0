// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "VoxWatch")
	viper.SetDefault("main.loglevel", "info")

	viper.SetDefault("audio.source", "sysdefault")
	viper.SetDefault("audio.windowsize", 4096)
	viper.SetDefault("audio.windowms", 0)
	viper.SetDefault("audio.queuesize", 16)
	viper.SetDefault("audio.capturetimeout", 5.0)
	viper.SetDefault("audio.export.enabled", true)
	viper.SetDefault("audio.export.path", "clips/")

	viper.SetDefault("dsp.noisefloor", 0.02)
	viper.SetDefault("dsp.mfcccount", 13)
	viper.SetDefault("dsp.melbands", 26)
	viper.SetDefault("dsp.rollofffraction", 0.85)

	viper.SetDefault("ensemble.scoretimeout", 0.05)
	viper.SetDefault("ensemble.sensitivity", 1.0)
	viper.SetDefault("ensemble.models", []map[string]any{
		{"type": "spectral", "name": "spectral-v1"},
		{"type": "cepstral", "name": "cepstral-v1"},
		{"type": "combined", "name": "combined-v1"},
	})

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("output.json", false)
}
