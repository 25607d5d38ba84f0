package analysis

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/voxwatch/voxwatch-go/internal/audio"
	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/detection"
	"github.com/voxwatch/voxwatch-go/internal/ensemble"
	"github.com/voxwatch/voxwatch-go/internal/logging"
	"github.com/voxwatch/voxwatch-go/internal/telemetry"
)

// RealtimeAnalysis starts continuous detection on the configured capture
// device and prints one line per analyzed frame until interrupted. On SIGINT
// or SIGTERM the pipeline drains its queue before exiting.
func RealtimeAnalysis(settings *conf.Settings) error {
	log := logging.ForService("realtime")

	// Get system details for the startup banner
	info, err := host.Info()
	if err != nil {
		fmt.Printf("Error retrieving host info: %v\n", err)
	}

	fmt.Printf("%s v%s (built: %s)\n", settings.Main.Name, conf.Version, conf.BuildDate)
	if info != nil {
		fmt.Printf("Host: %s %s %s on %s hardware\n", info.OS, info.Platform, info.PlatformVersion, info.KernelArch)
	}
	fmt.Printf("Listening on source %q, window %d samples (%.1f ms)\n",
		settings.Audio.Source,
		settings.WindowSamples(),
		float64(settings.WindowSamples())*1000.0/float64(conf.SampleRate))

	detector, err := ensemble.NewDetector(settings)
	if err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	var wg sync.WaitGroup
	quitChan := make(chan struct{})
	if endpoint := telemetry.NewEndpoint(settings); endpoint != nil {
		metrics, err = telemetry.NewMetrics()
		if err != nil {
			return err
		}
		endpoint.Start(metrics, &wg, quitChan)
	}

	source, err := audio.NewCaptureSource(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller := NewController(settings, source, detector, metrics)

	var printWg sync.WaitGroup
	printWg.Add(1)
	go func() {
		defer printWg.Done()
		for result := range controller.Results() {
			printResult(settings, result)
		}
	}()

	err = controller.Run(ctx)
	printWg.Wait()

	close(quitChan)
	wg.Wait()

	if ctx.Err() != nil {
		log.Info("shutdown complete", "dropped_total", controller.DroppedFrames())
		return nil
	}
	return err
}

// printResult renders one detection result to stdout in the configured
// format. A render failure is reported on stderr but never stops the stream.
func printResult(settings *conf.Settings, result *detection.Result) {
	if settings.Output.JSON {
		line, err := result.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render result: %v\n", err)
			return
		}
		fmt.Println(line)
		return
	}
	fmt.Println(result.String())
}
