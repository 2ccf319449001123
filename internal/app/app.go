package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/catalog"
	"github.com/MrSnakeDoc/pulse/internal/config"
	"github.com/MrSnakeDoc/pulse/internal/httpserver"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/live"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
	"github.com/MrSnakeDoc/pulse/internal/scheduler"
	"github.com/MrSnakeDoc/pulse/internal/utils"
	"github.com/MrSnakeDoc/pulse/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	backend   Backend
	hub       *live.Hub
	refresher *scheduler.GenreRefresher
	stats     *scheduler.StatsCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the store early - fail fast if unavailable
	backend, err := OpenStore(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}

	genres := catalog.NewGenreCache(
		catalog.NewClient(catalog.ClientOptions{
			BaseURL: cfg.TMDBBaseURL,
			APIKey:  cfg.TMDBAPIKey,
			Timeout: cfg.CatalogRequestTimeout,
		}, loggerClient),
		cfg.GenreTTL,
		time.Now,
		loggerClient,
	)
	if cfg.TMDBAPIKey == "" {
		loggerClient.Info("TMDB_API_KEY not set, using the built-in genre table")
	}

	hub := live.NewHub(loggerClient)

	service := pulse.NewService(backend.Store, loggerClient, pulse.Options{
		NearbyStrategy:       cfg.NearbyStrategy,
		NearbyCandidateLimit: cfg.NearbyCandidateLimit,
		DefaultRadiusKm:      cfg.DefaultRadiusKm,
		TrendingWindow:       cfg.TrendingWindow,
		FeedLimit:            cfg.FeedLimit,
		Publisher:            hub,
		Genres:               genres,
	})

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	refresher := scheduler.NewGenreRefresher(genres, loggerClient, cfg.GenreRefreshInterval, reloadTrigger)
	stats := scheduler.NewStatsCollector(service, loggerClient, cfg.StatsInterval)

	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		Pulses:            service,
		Live:              hub,
		StoreKind:         cfg.Store,
		RedisClient:       backend.Redis,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		AllowedHosts:      cfg.AllowedHosts,
		TrustProxy:        cfg.TrustProxy,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		ReloadTrigger:     reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    server,
		backend:   backend,
		hub:       hub,
		refresher: refresher,
		stats:     stats,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Pulse v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Pulse %s, store=%s", version.String(), a.cfg.Store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hub.Run(ctx)

	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start genre refresher: %w", err)
	}
	a.logger.Info("genre refresher started",
		logger.Duration("interval", a.cfg.GenreRefreshInterval))

	if err := a.stats.Start(ctx); err != nil {
		return fmt.Errorf("failed to start stats collector: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()
	a.stats.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.backend.Closer != nil {
		utils.CloseLogged(a.backend.Closer, a.cfg.Store, a.logger)
	}

	a.logger.Info("✅ Pulse stopped cleanly")
	return nil
}
