// Command gatling-exporter follows a Gatling simulation.log and exposes
// request latency, failure reasons and per-operation totals to Prometheus.
//
// Every flag can also be given through a GATLING_EXPORTER_* environment
// variable, e.g. GATLING_EXPORTER_PORT for --port.
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

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/gatlingexporter/gatling-exporter/exporter/internal/api"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/buffer"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/collector"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/compute"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/config"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/tail"
)

// Version is the exporter release.
const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

func main() {
	opts, err := config.Parse(os.Args[1:], os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if opts.ShowVersion {
		fmt.Println(Version)
		return
	}
	cfg := opts.Config

	level := new(slog.LevelVar)
	level.Set(cfg.Level())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("gatling-exporter starting",
		"version", Version,
		"addr", cfg.Addr(),
		"simulation_log_path", cfg.SimulationLogPath,
		"buffer_len", cfg.BufferLen,
		"log_level", level.Level(),
	)

	if err := run(opts, level); err != nil {
		slog.Error("gatling-exporter stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("gatling-exporter shutting down")
}

// run wires the pipeline and blocks until a signal arrives or a component
// fails. A follower failure is fatal: there is no reopen.
func run(opts *config.Options, level *slog.LevelVar) error {
	cfg := opts.Config
	logPath, err := config.ResolveLogPath(cfg.SimulationLogPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ring := buffer.New(cfg.BufferLen)
	engine := compute.NewEngine()
	coll := collector.New(engine, ring)

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, coll.Handler())
	mux.Handle("/api/", api.New(engine, ring))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", srv.Addr, "metrics_path", cfg.MetricsPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		slog.Info("following simulation log", "path", logPath)
		if err := tail.New(logPath, cfg.PollInterval).Run(ctx, ring.Push); err != nil {
			return fmt.Errorf("follow %s: %w", logPath, err)
		}
		return nil
	})

	if opts.ConfigPath != "" {
		g.Go(func() error {
			err := config.Watch(ctx, opts.ConfigPath, func(updated *config.Config) {
				lvl, ok := opts.ReloadLevel(updated)
				if !ok {
					slog.Info("config hot-reloaded, log level pinned by flag or env; other settings need a restart",
						"log_level", level.Level())
					return
				}
				level.Set(lvl)
				slog.Info("config hot-reloaded, log level applied; other settings need a restart",
					"log_level", lvl)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}
