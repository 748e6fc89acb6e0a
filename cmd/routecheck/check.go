package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routecheck/internal/config"
	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/publish"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

func checkCmd(opts *projectOptions) *cobra.Command {
	var (
		format      string
		failOn      string
		concurrency int
		publishFlag bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the route table once",
		Long: `Check every endpoint of the route table against its handler.

The exit status is 1 when a diagnostic at or above --fail-on is
reported, and when the route table or sources cannot be loaded.

Examples:
  routecheck check
  routecheck check --routes routes.yaml --src ./internal/handlers
  routecheck check --format github --fail-on warning
  routecheck check --format json --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(opts)
			if err != nil {
				return err
			}
			if format != "" {
				p.cfg.Format = format
			}
			if failOn != "" {
				p.cfg.FailOn = failOn
			}
			if concurrency > 0 {
				p.cfg.Concurrency = concurrency
			}
			return runCheck(cmd, p, publishFlag)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, compact, json or github (default from config)")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Lowest level that fails the check: error, warning or never (default from config)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Endpoints checked in parallel (default from config)")
	cmd.Flags().BoolVar(&publishFlag, "publish", false, "Upload the JSON report as configured in routecheck.json")

	return cmd
}

func runCheck(cmd *cobra.Command, p *project, publishReport bool) error {
	format, err := urlcheck.ParseOutputFormat(p.cfg.Format)
	if err != nil {
		return errors.New(errors.CodeConfigValue).Wrap(err)
	}
	threshold, err := urlcheck.ParseLevel(p.cfg.FailOn)
	if err != nil {
		return errors.New(errors.CodeConfigValue).Wrap(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.run(ctx, nil)
	if err != nil {
		return err
	}

	if err := urlcheck.Render(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}

	if publishReport {
		location, err := publishTo(ctx, p.cfg, report)
		if err != nil {
			return err
		}
		success(cmd, "Report published to %s", location)
	}

	if report.Failed(threshold) {
		return errChecksFailed
	}
	return nil
}

// publishTo uploads the report to the configured bucket or directory.
func publishTo(ctx context.Context, cfg *config.Config, report *urlcheck.Report) (string, error) {
	if !cfg.PublishEnabled() {
		return "", errors.New(errors.CodePublishFailed).
			WithDetail("No publish target is configured.").
			WithSuggestion(`Set "publish.bucket" and "publish.region", or "publish.dir", in routecheck.json`)
	}

	var store publish.Store
	if cfg.Publish.Bucket != "" {
		store = publish.NewS3Store(publish.NewS3Client(cfg.Publish.Region), cfg.Publish.Bucket)
	} else {
		disk, err := publish.NewDiskStore(cfg.PublishDir())
		if err != nil {
			return "", errors.New(errors.CodePublishFailed).Wrap(err)
		}
		store = disk
	}
	return publish.New(store, cfg.Publish.Prefix).Publish(ctx, report)
}
