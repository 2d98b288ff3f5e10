package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsinspect/internal/scan"
	"github.com/zsiec/tsinspect/internal/stats"
	"github.com/zsiec/tsinspect/mpegts"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [flags] input",
		Short: "Decode an input and expose its statistics over HTTP",
		Long: `Decode the input in the background and serve:

  /metrics  Prometheus metrics
  /healthz  liveness
  /pids     per-PID snapshot as JSON

The server keeps running after a finite input ends so the final counters
stay scrapeable; stop it with SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := stats.New()
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return serve(cmd.Context(), ln, tr, args[0])
		},
	}

	cmd.Flags().StringVar(&addr, "listen", envOr("TSINSPECT_METRICS_ADDR", ":9090"), "HTTP listen address")

	return cmd
}

func serve(ctx context.Context, ln net.Listener, tr *stats.Tracker, uri string) error {
	log := slog.Default().With("component", "serve")

	o, err := newOpener(ctx, uri)
	if err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           newRouter(tr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		st, err := decode(ctx, o, uri, func(p *mpegts.Packet) error {
			tr.Observe(p)
			return nil
		}, scan.ScannerOptOnResync(tr.ObserveResync))
		if err != nil {
			tr.ObserveError(err)
			return err
		}
		log.Info("input ended", "input", uri, "packets", st.Packets, "resyncs", st.Resyncs)
		return nil
	})

	return g.Wait()
}

func newRouter(tr *stats.Tracker) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		tr.Collector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/pids", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tr.Snapshot()); err != nil {
			slog.Debug("pids encode failed", "error", err)
		}
	})
	return r
}
