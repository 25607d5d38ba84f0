// endpoint.go: HTTP endpoint that exposes the Prometheus metrics
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// Endpoint serves the metrics registry over HTTP on the configured listen
// address. It is only started when telemetry is enabled.
type Endpoint struct {
	ListenAddress string

	server *http.Server
	log    *slog.Logger
}

// NewEndpoint builds the telemetry endpoint from settings. Returns nil when
// telemetry is disabled.
func NewEndpoint(settings *conf.Settings) *Endpoint {
	if !settings.Telemetry.Enabled {
		return nil
	}
	return &Endpoint{
		ListenAddress: settings.Telemetry.Listen,
		log:           logging.ForService("telemetry"),
	}
}

// Start launches the metrics server in its own goroutine and shuts it down
// when quitChan closes. The caller's WaitGroup tracks the serving goroutine.
func (e *Endpoint) Start(metrics *Metrics, wg *sync.WaitGroup, quitChan chan struct{}) {
	mux := http.NewServeMux()
	metrics.RegisterMetricsHandlers(mux)

	e.server = &http.Server{
		Addr:         e.ListenAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.log.Info("starting metrics endpoint", "address", fmt.Sprintf("http://%s%s", e.ListenAddress, metricsPath))
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Error("metrics endpoint failed", "error", err)
		}
	}()

	go func() {
		<-quitChan
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			e.log.Error("metrics endpoint shutdown failed", "error", err)
		}
	}()
}
