package stream

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/voxwatch/voxwatch-go/internal/analysis"
	"github.com/voxwatch/voxwatch-go/internal/conf"
)

// normalizeDeviceFlag keeps --source working as an alias for --device.
func normalizeDeviceFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "source" {
		name = "device"
	}
	return pflag.NormalizedName(name)
}

// Command creates the command for continuous real-time detection.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Detect AI voices in realtime",
		Long:  "Capture audio from the configured source and print one verdict per analysis window until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the stream command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().SetNormalizeFunc(normalizeDeviceFlag)
	cmd.Flags().StringVarP(&settings.Audio.Source, "device", "s", viper.GetString("audio.source"), "Audio capture device (\"sysdefault\", \"USB Audio\", \":0,0\", etc.)")
	cmd.Flags().IntVar(&settings.Audio.WindowMs, "window-ms", viper.GetInt("audio.windowms"), "Analysis window length in milliseconds, overrides windowsize")
	cmd.Flags().IntVar(&settings.Audio.QueueSize, "queuesize", viper.GetInt("audio.queuesize"), "Bounded pending-frame queue length")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
