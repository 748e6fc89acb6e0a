package serve

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

// Runner performs one check run.
type Runner interface {
	Run(ctx context.Context) (*urlcheck.Report, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) (*urlcheck.Report, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context) (*urlcheck.Report, error) {
	return f(ctx)
}

// Options configures the server.
type Options struct {
	// Runner performs the checks. Required.
	Runner Runner

	// Address is the listen address.
	Address string

	// Logger receives request and websocket logs (default: slog.Default).
	Logger *slog.Logger

	// Gatherer serves /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	// WatchPaths are polled for changes; a change triggers a run that is
	// pushed to live clients.
	WatchPaths []string

	// WatchInterval is the polling interval (default: 500ms).
	WatchInterval time.Duration
}

// Server is the check server.
type Server struct {
	options    Options
	logger     *slog.Logger
	live       *Hub
	watcher    *Watcher
	httpServer *http.Server
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new check server.
func NewServer(options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		options: options,
		logger:  logger,
		live:    NewHub(options.Runner, logger),
	}
	if len(options.WatchPaths) > 0 {
		s.watcher = NewWatcher(WatcherConfig{
			Paths:    options.WatchPaths,
			Interval: options.WatchInterval,
		})
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/check", s.handleCheck)
	r.Handle("/metrics", promhttp.HandlerFor(s.options.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/live", s.live.HandleWebSocket)

	return r
}

// Live returns the websocket hub.
func (s *Server) Live() *Hub {
	return s.live
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.httpServer = &http.Server{
		Addr:              s.options.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.OnChange(func(changes []Change) {
			for _, c := range changes {
				s.logger.Info("changed", "path", c.Path)
			}
			s.live.Broadcast(ctx)
		})
		go s.watcher.Start(ctx)
	}

	s.logger.Info("server running", "address", s.options.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return errors.New(errors.CodeServerFailed).Wrap(err)
		}
		return nil
	}
}

// Stop stops the server and closes live connections.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.live.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.options.Runner.Run(r.Context())
	if err != nil {
		ce := errors.FromCheck(err)
		s.logger.Error("check failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, ce.FormatJSON())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
