package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voxwatch/voxwatch-go/cmd/config"
	"github.com/voxwatch/voxwatch-go/cmd/devices"
	"github.com/voxwatch/voxwatch-go/cmd/record"
	"github.com/voxwatch/voxwatch-go/cmd/stream"
	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "voxwatch",
		Short:   "VoxWatch CLI",
		Long:    "Real-time detection of AI-generated voices in an audio stream.",
		Version: fmt.Sprintf("%s (built: %s)", conf.Version, conf.BuildDate),
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		stream.Command(settings),
		record.Command(settings),
		devices.Command(settings),
		config.Command(),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}

		level := settings.Main.LogLevel
		if settings.Debug {
			level = "debug"
		}
		logging.Init(logging.ParseLevel(level))

		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&settings.Output.JSON, "json", viper.GetBool("output.json"), "Emit one JSON object per detection result")
	rootCmd.PersistentFlags().StringVar(&settings.Main.LogLevel, "loglevel", viper.GetString("main.loglevel"), "Log level (debug, info, warn, error)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
