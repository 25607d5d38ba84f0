package record

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

// Command creates the command for single-shot clip analysis.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a clip and print one aggregated verdict",
		Long:  "Capture a fixed-duration clip (or read a WAV file with --input) and print a single verdict aggregated over all of its analysis windows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RecordAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the record command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().SetNormalizeFunc(normalizeDeviceFlag)
	cmd.Flags().Float64VarP(&settings.Input.Duration, "duration", "t", 5.0, "Capture duration in seconds")
	cmd.Flags().StringVarP(&settings.Input.Path, "input", "i", "", "Analyze this WAV file instead of capturing")
	cmd.Flags().StringVarP(&settings.Input.Out, "out", "o", "", "Save the analyzed audio to this WAV file")
	cmd.Flags().StringVarP(&settings.Audio.Source, "device", "s", viper.GetString("audio.source"), "Audio capture device (\"sysdefault\", \"USB Audio\", \":0,0\", etc.)")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
