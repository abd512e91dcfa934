package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// MetricsPath is where the metrics server exposes Prometheus metrics.
	MetricsPath = "/metrics"

	metricsShutdownTimeout = 3 * time.Second
)

// ServeMetrics serves the discovery metrics on addr until ctx is done.
// The listener is bound before ServeMetrics returns so that address
// errors surface immediately; serving continues in the background.
func (app *Application) ServeMetrics(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, app.manager.Metrics().Handler())
	srv := &http.Server{Handler: mux}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	app.logger.Info("serving metrics",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", MetricsPath),
	)
	return ln.Addr(), nil
}
