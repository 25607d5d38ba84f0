package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voxwatch/voxwatch-go/internal/conf"
)

// Command creates the command that shows or saves the effective
// configuration, with all defaults and flag overrides applied.
func Command() *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := conf.Setting()

			if savePath != "" {
				if err := conf.SaveSettings(settings, savePath); err != nil {
					return err
				}
				fmt.Println("Saved configuration to:", savePath)
				return nil
			}

			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings to YAML: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the effective configuration to this file")

	return cmd
}
