package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/routecheck/internal/config"
	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/routetable"
	"github.com/vango-dev/routecheck/internal/term"
	"github.com/vango-dev/routecheck/pkg/signature"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// projectOptions are the flags shared by all commands.
type projectOptions struct {
	configPath string
	routes     string
	sources    []string
	verbose    bool
	noColor    bool
}

// project is a loaded configuration plus the logger built from the flags.
type project struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadProject loads routecheck.json and applies command-line overrides.
// Without a config file, --routes is required.
func loadProject(opts *projectOptions) (*project, error) {
	if opts.noColor {
		term.DisableColors()
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	default:
		cfg, err = config.LoadFromWorkingDir()
		if err != nil && errors.Code(err) == errors.CodeConfigNotFound && opts.routes != "" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.routes != "" {
		cfg.Routes = absPath(opts.routes)
	}
	if len(opts.sources) > 0 {
		cfg.Sources = make([]string, len(opts.sources))
		for i, src := range opts.sources {
			cfg.Sources[i] = absPath(src)
		}
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &project{cfg: cfg, logger: logger}, nil
}

// absPath resolves command-line paths against the working directory, not
// the config file.
func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// registry returns the default converters plus the configured ones.
func (p *project) registry() (*urlconf.Registry, error) {
	reg := urlconf.DefaultRegistry()
	for _, c := range p.cfg.Converters {
		if err := reg.Register(urlconf.Converter{Name: c.Name, Output: urlconf.Type(c.Type), Regexp: c.Regexp}); err != nil {
			return nil, errors.New(errors.CodeConfigValue).WithFile(p.cfg.Path()).Wrap(err)
		}
	}
	reg.AddTextAlias(p.cfg.TextAliases...)
	return reg, nil
}

// run loads the route table and handler sources and checks them. Every
// call reads the files again.
func (p *project) run(ctx context.Context, recorder urlcheck.Recorder) (*urlcheck.Report, error) {
	reg, err := p.registry()
	if err != nil {
		return nil, err
	}

	table, err := routetable.Load(p.cfg.RoutesPath(), reg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	source := signature.NewSource(p.cfg.SourcePaths(), p.cfg.Injected...)
	if err := source.Load(); err != nil {
		return nil, errors.New(errors.CodeSourceParse).WithLocationFromError(err).Wrap(err)
	}
	if source.Files() == 0 && len(table.Signatures) == 0 {
		return nil, errors.New(errors.CodeResolverIncomplete).
			WithSuggestion("Pass --src with the directories that declare your handlers")
	}
	p.logger.Debug("handler sources loaded",
		"files", source.Files(),
		"handlers", len(source.Handlers()),
		"duration", time.Since(start),
	)

	silencers, err := urlcheck.ParseSilencers(p.cfg.Silenced)
	if err != nil {
		return nil, errors.New(errors.CodeConfigValue).WithFile(p.cfg.Path()).Wrap(err)
	}

	opts := []urlcheck.Option{
		urlcheck.WithRegistry(table.Registry),
		urlcheck.WithSilencers(silencers...),
		urlcheck.WithLogger(p.logger),
		urlcheck.WithConcurrency(p.cfg.Concurrency),
	}
	if recorder != nil {
		opts = append(opts, urlcheck.WithRecorder(recorder))
	}

	// Declared signatures take precedence over parsed source.
	checker := urlcheck.New(signature.Chain{table.Signatures, source}, opts...)
	report, err := checker.Run(ctx, urlcheck.Root(table.Root))
	if err != nil {
		return nil, errors.FromCheck(err)
	}
	report.Root = p.cfg.Routes
	return report, nil
}
