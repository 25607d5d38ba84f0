package main

import (
	"fmt"
	"os"

	"github.com/voxwatch/voxwatch-go/cmd"
	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/errors"
)

// Exit codes for failures the caller may want to distinguish.
const (
	exitFailure           = 1
	exitDeviceUnavailable = 2
	exitNoModels          = 3
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(exitFailure)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		switch {
		case errors.Is(err, errors.ErrDeviceUnavailable):
			os.Exit(exitDeviceUnavailable)
		case errors.Is(err, errors.ErrNoModelsAvailable):
			os.Exit(exitNoModels)
		default:
			os.Exit(exitFailure)
		}
	}
}
