package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"useeio/internal/adapters/httpapi"
	"useeio/internal/core"
	"useeio/internal/reload"
)

type serveOptions struct {
	listen    string
	watch     bool
	tracePath string
}

func (a *app) newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = opts.listen
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Watch = opts.watch
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "Listen address (default from config, :8080)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Reload models when the data directory changes")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "Write JSON trace spans to this file")
	return cmd
}

func (a *app) serve(ctx context.Context, opts serveOptions) error {
	var svcOpts []core.ServiceOption
	recorders := core.MultiMetricsRecorder{core.NewExpvarMetricsRecorder("useeio_operations")}
	var handlerOpts []httpapi.Option
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return err
		}
		recorders = append(recorders, prom)
		handlerOpts = append(handlerOpts, httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	svcOpts = append(svcOpts, core.WithMetrics(recorders))
	if opts.tracePath != "" {
		f, err := os.OpenFile(opts.tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}

	var ready atomic.Bool
	svc, src, err := a.newService(ctx, svcOpts...)
	if err != nil {
		return err
	}

	api := httpapi.New(svc, append(handlerOpts,
		httpapi.WithLogger(a.logger),
		httpapi.WithRateLimit(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst),
		httpapi.WithReadiness(ready.Load),
	)...)
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/", api)
	server := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := svc.Discover(gctx, src, a.cfg.LoadConcurrency); err != nil {
			return fmt.Errorf("discover models: %w", err)
		}
		ready.Store(true)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("listening", "addr", a.cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if a.cfg.Watch {
		w := reload.New(a.cfg.Data.FSRoot, func(ctx context.Context) error {
			_, err := svc.Discover(ctx, src, a.cfg.LoadConcurrency)
			return err
		}, reload.WithDebounce(a.cfg.WatchDebounce), reload.WithLogger(a.logger))
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}
