package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/routecheck/internal/serve"
	"github.com/vango-dev/routecheck/pkg/telemetry"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

func serveCmd(opts *projectOptions) *cobra.Command {
	var (
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve checks over HTTP",
		Long: `Start an HTTP server that checks the route table on request.

Endpoints:
  GET /healthz   liveness probe
  GET /check     JSON report of a fresh run
  GET /metrics   Prometheus metrics
  GET /live      websocket; send "check" to stream diagnostics

With --watch, the route table and source directories are polled and
every change pushes a new run to connected /live clients.

Examples:
  routecheck serve
  routecheck serve --port=9000 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(opts)
			if err != nil {
				return err
			}
			if port > 0 {
				p.cfg.Serve.Port = port
			}
			if host != "" {
				p.cfg.Serve.Host = host
			}
			return runServe(cmd, p, watch)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-check and notify live clients when files change")

	return cmd
}

func runServe(cmd *cobra.Command, p *project, watch bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := telemetry.New(
		telemetry.WithNamespace(p.cfg.Metrics.Namespace),
		telemetry.WithConstLabels(prometheus.Labels{"version": version}),
		telemetry.WithRegistry(reg),
	)

	options := serve.Options{
		Runner: serve.RunnerFunc(func(ctx context.Context) (*urlcheck.Report, error) {
			return p.run(ctx, recorder)
		}),
		Address:  p.cfg.Address(),
		Logger:   p.logger,
		Gatherer: reg,
	}
	if watch {
		options.WatchPaths = append([]string{filepath.Dir(p.cfg.RoutesPath())}, p.cfg.SourcePaths()...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	success(cmd, "Serving checks on http://%s", p.cfg.Address())
	if watch {
		info(cmd, "Watching %d paths for changes", len(options.WatchPaths))
	}
	return serve.NewServer(options).Start(ctx)
}
