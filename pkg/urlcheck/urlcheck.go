// Package urlcheck checks a route tree against the signatures of the
// handlers it dispatches to.
//
// For every endpoint the checker compares each typed placeholder visible to
// it with the handler parameter of the same name, and reports mismatches,
// unresolved names and ambiguous compositions as Diagnostics with stable
// IDs (see Codes). Handlers are never executed.
//
// # Usage
//
//	root := urlconf.Include("",
//	    urlconf.Path("articles/<str:year>/", urlconf.Handler("blog.YearArchive", nil), nil),
//	)
//	resolver := signature.Static{
//	    "blog.YearArchive": {Params: []signature.Param{{Name: "year", Type: "int"}}},
//	}
//	diags, err := urlcheck.CheckURLSignatures(ctx, urlcheck.Root(root), resolver)
//	// diags[0].ID == "urlchecker.E002"
//
// Only two failures abort a run: an error from the Provider and a
// structurally invalid tree (*urlconf.TreeError). Both return a nil slice;
// a partial result is never returned.
package urlcheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/routecheck/pkg/signature"
	"github.com/vango-dev/routecheck/pkg/urlconf"
)

const defaultTracerName = "routecheck"

// Provider supplies the root of the route tree to check.
type Provider interface {
	Root(ctx context.Context) (*urlconf.Entry, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*urlconf.Entry, error)

// Root implements Provider.
func (f ProviderFunc) Root(ctx context.Context) (*urlconf.Entry, error) {
	return f(ctx)
}

// Root returns a Provider for an already built tree.
func Root(root *urlconf.Entry) Provider {
	return ProviderFunc(func(context.Context) (*urlconf.Entry, error) {
		return root, nil
	})
}

// Recorder observes check runs. pkg/telemetry provides a Prometheus
// implementation.
type Recorder interface {
	// ObserveRun is called once per run with the number of endpoints
	// checked and the fatal error, if any.
	ObserveRun(duration time.Duration, endpoints int, err error)

	// ObserveDiagnostic is called for every reported diagnostic.
	ObserveDiagnostic(d Diagnostic)
}

// Checker runs checks with a fixed resolver and options.
// A Checker is safe for concurrent use.
type Checker struct {
	resolver    signature.Resolver
	registry    *urlconf.Registry
	silencers   []Silencer
	logger      *slog.Logger
	tracer      trace.Tracer
	recorder    Recorder
	concurrency int
}

// Option configures a Checker.
type Option func(*Checker)

// WithRegistry sets the converter registry (default: urlconf.DefaultRegistry).
func WithRegistry(reg *urlconf.Registry) Option {
	return func(c *Checker) {
		c.registry = reg
	}
}

// WithSilencers drops matching diagnostics from every run.
func WithSilencers(silencers ...Silencer) Option {
	return func(c *Checker) {
		c.silencers = append(c.silencers, silencers...)
	}
}

// WithLogger sets the logger (default: slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithTracer sets the tracer (default: the global provider's "routecheck"
// tracer).
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Checker) {
		c.tracer = tracer
	}
}

// WithRecorder sets the run recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Checker) {
		c.recorder = r
	}
}

// WithConcurrency resolves and checks up to n endpoints at once.
// Diagnostics keep traversal order regardless of n.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		c.concurrency = n
	}
}

// New creates a Checker that resolves handler signatures with resolver.
func New(resolver signature.Resolver, opts ...Option) *Checker {
	c := &Checker{
		resolver:    resolver,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = signature.Chain{}
	}
	if c.registry == nil {
		c.registry = urlconf.DefaultRegistry()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaultTracerName)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Registry returns the converter registry.
func (c *Checker) Registry() *urlconf.Registry {
	return c.registry
}

// CheckURLSignatures is a convenience wrapper around New(resolver,
// opts...).CheckURLSignatures.
func CheckURLSignatures(ctx context.Context, provider Provider, resolver signature.Resolver, opts ...Option) ([]Diagnostic, error) {
	return New(resolver, opts...).CheckURLSignatures(ctx, provider)
}

// CheckURLSignatures checks every endpoint of the provider's tree and
// returns the diagnostics in traversal order. The result is empty, not
// nil, when there is nothing to report.
func (c *Checker) CheckURLSignatures(ctx context.Context, provider Provider) ([]Diagnostic, error) {
	diags, _, err := c.run(ctx, provider)
	return diags, err
}

// Run is like CheckURLSignatures but returns a Report.
func (c *Checker) Run(ctx context.Context, provider Provider) (*Report, error) {
	start := time.Now()
	diags, endpoints, err := c.run(ctx, provider)
	if err != nil {
		return nil, err
	}
	return NewReport(diags, endpoints, time.Since(start)), nil
}

// task is one unit of checking. Steps other than endpoints carry their
// finished diagnostic.
type task struct {
	ep   *urlconf.ResolvedEndpoint
	diag *Diagnostic
}

func (c *Checker) run(ctx context.Context, provider Provider) (diags []Diagnostic, endpoints int, err error) {
	ctx, span := c.tracer.Start(ctx, "routecheck.check",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("routecheck.endpoints", endpoints),
				attribute.Int("routecheck.diagnostics", len(diags)),
			)
			span.SetStatus(otelcodes.Ok, "")
		}
		span.End()
		if c.recorder != nil {
			c.recorder.ObserveRun(time.Since(start), endpoints, err)
			for _, d := range diags {
				c.recorder.ObserveDiagnostic(d)
			}
		}
	}()

	if provider == nil {
		return nil, 0, fmt.Errorf("urlcheck: nil provider")
	}
	root, err := provider.Root(ctx)
	if err != nil {
		c.logger.Error("route tree unavailable", "error", err)
		return nil, 0, fmt.Errorf("loading route tree: %w", err)
	}
	if root == nil {
		c.logger.Info("no route tree configured")
		return []Diagnostic{}, 0, nil
	}
	if err := urlconf.Validate(root); err != nil {
		c.logger.Error("invalid route tree", "error", err)
		return nil, 0, err
	}

	var tasks []task
	walker := urlconf.NewWalker(c.registry)
	for step := range walker.Walk(root) {
		switch step.Kind {
		case urlconf.StepEndpoint:
			tasks = append(tasks, task{ep: step.Endpoint})
			endpoints++
		case urlconf.StepShadowed:
			d := shadowDiagnostic(step)
			tasks = append(tasks, task{diag: &d})
		case urlconf.StepMalformed:
			d := malformedDiagnostic(step)
			tasks = append(tasks, task{diag: &d})
		}
	}

	results, err := c.checkAll(ctx, tasks)
	if err != nil {
		return nil, 0, err
	}

	diags = make([]Diagnostic, 0, len(tasks))
	for _, r := range results {
		diags = append(diags, r...)
	}
	diags = Filter(diags, c.silencers)

	c.logger.Info("route check complete",
		"endpoints", endpoints,
		"diagnostics", len(diags),
		"duration", time.Since(start),
	)
	return diags, endpoints, nil
}

// checkAll checks every task, writing each result into its own slot.
func (c *Checker) checkAll(ctx context.Context, tasks []task) ([][]Diagnostic, error) {
	results := make([][]Diagnostic, len(tasks))

	if c.concurrency == 1 {
		for i, t := range tasks {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("checking endpoints: %w", err)
			}
			results[i] = c.checkTask(t)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkTask(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("checking endpoints: %w", err)
	}
	return results, nil
}

func (c *Checker) checkTask(t task) []Diagnostic {
	if t.diag != nil {
		return []Diagnostic{*t.diag}
	}
	diags := CheckEndpoint(c.registry, c.resolver, t.ep)
	c.logger.Debug("checked endpoint",
		"route", t.ep.Route,
		"handler", t.ep.Callback.String(),
		"diagnostics", len(diags),
	)
	return diags
}
