package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/xavier/nanoc/internal/metrics"
)

// ViewCmd implements the 'view' command: a local HTTP server over the
// compiled output directory.
type ViewCmd struct {
	Addr    string `short:"a" help:"Listen address (overrides view.addr from the config)"`
	Metrics bool   `help:"Expose Prometheus metrics on /metrics (overrides view.metrics)"`
}

func (v *ViewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	addr := cfg.View.Addr
	if v.Addr != "" {
		addr = v.Addr
	}
	withMetrics := cfg.View.Metrics || v.Metrics

	if _, err := os.Stat(cfg.OutputDir); os.IsNotExist(err) {
		return fmt.Errorf("output directory %s does not exist; run 'nanoc compile' first", cfg.OutputDir)
	}

	var metricsHandler http.Handler
	if withMetrics {
		metricsHandler = metrics.HTTPHandler(nil)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := newSiteServer(addr, cfg.OutputDir, metricsHandler)
	fmt.Printf("Serving %s on http://%s\n", cfg.OutputDir, addr)
	return serveUntilDone(ctx, srv)
}

// newSiteServer builds the HTTP server that serves a compiled site from
// outputDir. A non-nil metricsHandler is mounted on /metrics.
func newSiteServer(addr, outputDir string, metricsHandler http.Handler) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/*", http.FileServer(http.Dir(outputDir)))

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// serveUntilDone runs srv until it fails or ctx is canceled, then shuts it
// down gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down server", slog.String("addr", srv.Addr))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// processRegistry exposes the default Prometheus registry so long-running
// commands can register build metrics next to the runtime collectors.
func processRegistry() *prom.Registry {
	if reg, ok := prom.DefaultRegisterer.(*prom.Registry); ok {
		return reg
	}
	return prom.NewRegistry()
}
