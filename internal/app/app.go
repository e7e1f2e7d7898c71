package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"PharmaWatch/internal/config"
	"PharmaWatch/internal/infrastructure/httpapi"
	"PharmaWatch/internal/infrastructure/parser"
	"PharmaWatch/internal/infrastructure/scheduler"
	"PharmaWatch/internal/infrastructure/storage"
	"PharmaWatch/internal/logging"
	"PharmaWatch/internal/ports"
	"PharmaWatch/internal/scanner"
	"PharmaWatch/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.MemoryStore
	scheduler *usecase.Scheduler
	server    *echo.Echo
}

// New builds the store, crawlers, feed, scheduler and query API from cfg.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store := storage.NewMemoryStore()
	pages := parser.NewPageFetcher(&http.Client{Timeout: cfg.HTTP.Timeout}, cfg.HTTP.UserAgent)

	registry := scanner.NewRegistry()
	registry.Register(parser.BfArMScannerName, parser.NewBfArMSource)
	registry.Register(parser.PEIScannerName, parser.NewPEISource)

	crawlers := make([]ports.LetterCrawler, 0, len(cfg.Sites))
	for _, site := range cfg.Sites {
		logger := baseLogger.With("component", "scanner."+site.Scanner)
		source, err := registry.Resolve(site.Scanner, scanner.Site{
			Name:     site.Name,
			PageURL:  site.PageURL,
			BaseURL:  site.BaseURL,
			MaxPages: site.MaxPages,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		crawlers = append(crawlers, scanner.NewCrawler(source, pages, store, cfg.Refresh.MaxConcurrentRequests, logger))
	}

	enc, err := parser.LookupEncoding(cfg.ShortageFeed.Encoding)
	if err != nil {
		return nil, fmt.Errorf("shortage feed: %w", err)
	}
	feed := parser.NewShortageFeed(cfg.ShortageFeed.URL, enc, pages, store, baseLogger.With("component", "shortage_feed"))

	refresher := usecase.NewRefresher(usecase.RefresherDeps{
		Crawlers: crawlers,
		Feed:     feed,
		Store:    store,
		Logger:   baseLogger.With("component", "refresher"),
	})
	driver := scheduler.NewIntervalScheduler(
		cfg.Refresh.Interval,
		cfg.Refresh.RetryDelay,
		scheduler.SystemClock{},
		baseLogger.With("component", "scheduler"),
	)
	sched := usecase.NewScheduler(driver, refresher, store)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		scheduler: sched,
		server:    newServer(store, sched, baseLogger.With("component", "http")),
	}, nil
}

// Handler exposes the query API, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server
}

// Run starts the refresh loop and the query API and blocks until ctx is done
// or the listener fails; both are then shut down.
func (a *Application) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(gCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	g.Go(func() error {
		a.logger.Info("query api listening", "address", a.cfg.Server.Address)
		if err := a.server.Start(a.cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serverErr := a.server.Shutdown(shutdownCtx)
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			if !scheduler.IsShutdown(err) {
				return errors.Join(serverErr, err)
			}
			a.logger.Warn("refresh cycle still running at shutdown", "error", err)
		}
		return serverErr
	})

	return g.Wait()
}

func newServer(store ports.SnapshotReader, status httpapi.StatusProvider, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Error("request failed", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
				return nil
			}
			logger.Debug("request completed", "method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))
	e.Use(middleware.Recover())

	httpapi.RegisterRoutes(e, store, status)
	return e
}
