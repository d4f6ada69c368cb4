package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"go-co2-emissions-dashboard/internal/config"
	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/countries"
	"go-co2-emissions-dashboard/internal/dataset"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
	"go-co2-emissions-dashboard/internal/storage"
	"go-co2-emissions-dashboard/internal/views"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer     *nethttp.Server
	provider       *dataset.Provider
	backends       *dataset.Backends
	viewsStore     *sqlitestore.Store
	snapshots      storage.Client
	hub            *Hub
	reloadInterval time.Duration
	cancel         context.CancelFunc
	logger         *slog.Logger
}

// deps are the collaborators the routes are built from.
type deps struct {
	provider  *dataset.Provider
	backends  *dataset.Backends
	aliases   *countries.Aliases
	views     *sqlitestore.Store
	snapshots storage.Client
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.Component("http")

	aliases := countries.Default()
	if cfg.CountryAliasesFile != "" {
		loaded, err := countries.Load(cfg.CountryAliasesFile)
		if err != nil {
			return nil, err
		}
		aliases = loaded
	}

	source, backends, err := dataset.NewSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider := dataset.NewProvider(source, recordDatasetLoad)

	var viewsStore *sqlitestore.Store
	if cfg.ViewsSQLitePath != "" {
		viewsStore, err = sqlitestore.NewStore(cfg.ViewsSQLitePath)
		if err != nil {
			_ = backends.Close()
			return nil, fmt.Errorf("open saved views store: %w", err)
		}
	}

	snapshots, err := storage.New(ctx, cfg.SnapshotDir, cfg.SnapshotGCSBucket)
	if err != nil {
		logger.Warn("snapshot storage unavailable", "error", err)
	}

	handler, hub, err := newRouter(cfg, deps{
		provider:  provider,
		backends:  backends,
		aliases:   aliases,
		views:     viewsStore,
		snapshots: snapshots,
	})
	if err != nil {
		_ = backends.Close()
		_ = viewsStore.Close()
		return nil, err
	}

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer:     httpServer,
		provider:       provider,
		backends:       backends,
		viewsStore:     viewsStore,
		snapshots:      snapshots,
		hub:            hub,
		reloadInterval: cfg.ReloadInterval,
		logger:         logger,
	}, nil
}

// newRouter registers every route and wraps the mux in the middleware chain.
func newRouter(cfg config.Config, d deps) (nethttp.Handler, *Hub, error) {
	metric, err := emissions.ParseMetric(cfg.DefaultMetric)
	if err != nil {
		return nil, nil, err
	}
	var source views.TableSource
	if d.provider != nil {
		source = d.provider
	}
	dash := views.NewDashboard(source, d.aliases, cfg.TopN)
	sel := selector{dash: dash, year: cfg.DefaultYear, metric: metric}
	hub := newHub(sel)
	if d.provider != nil {
		d.provider.Subscribe(hub.Reloaded)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(d.provider))
	mux.HandleFunc("/api/v1/options", optionsHandler(sel))
	mux.HandleFunc("/api/v1/dashboard", dashboardDataHandler(sel))
	mux.HandleFunc("/api/v1/figures/", figureRouter(sel))
	mux.HandleFunc("/charts/", chartRouter(sel))
	mux.HandleFunc("/api/v1/emissions", emissionsHandler(1000, sel))
	mux.HandleFunc("/api/v1/summary", summaryHandler(sel))
	mux.HandleFunc("/api/v1/views", savedViewsRouter(100, d.views))
	mux.HandleFunc("/api/v1/views/", savedViewsRouter(100, d.views))
	mux.HandleFunc("/api/v1/snapshots", snapshotsRouter(sel, d.snapshots))
	mux.HandleFunc("/api/v1/snapshots/", snapshotsRouter(sel, d.snapshots))
	mux.HandleFunc("/api/v1/dataset/reload", reloadHandler(d.provider))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(statusDeps{
		provider:  d.provider,
		backends:  d.backends,
		views:     d.views,
		snapshots: d.snapshots,
	}))
	mux.Handle("/ws", hub)

	return loggingMiddleware(observabilityMiddleware(mux)), hub, nil
}

// ListenAndServe loads the dataset in the background and starts the HTTP server.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if _, err := s.provider.Reload(ctx); err != nil {
			s.logger.Error("initial dataset load failed", "error", err)
		}
		s.provider.Start(ctx, s.reloadInterval)
	}()

	s.logger.Info("listening", "addr", s.httpServer.Addr, "source", s.provider.SourceName())
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.httpServer.Shutdown(ctx)
	if s.backends != nil {
		_ = s.backends.Close()
	}
	if s.viewsStore != nil {
		_ = s.viewsStore.Close()
	}
	if s.snapshots != nil {
		_ = s.snapshots.Close()
	}
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(provider *dataset.Provider) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if provider == nil || !provider.Ready() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "loading",
				"error":  dataset.ErrNotLoaded.Error(),
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
			"source": provider.SourceName(),
		})
	}
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	logger := logging.Component("http")
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
