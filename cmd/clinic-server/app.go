package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/clinic"
	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/referral"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/internal/platform/store/postgres"
	"github.com/clinic/clinic/internal/platform/store/sqlite"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

// app holds everything a command needs once storage and the notification
// log are wired.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	manager  *clinic.Manager
	notes    *notification.Log
	metrics  *telemetry.Metrics
	checkers []db.Checker
	closers  []io.Closer
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// openBackend returns the store named by cfg.StorageBackend. Closers and
// health checkers for the opened resources are registered on a.
func (a *app) openBackend(ctx context.Context) (store.Backend, error) {
	switch a.cfg.StorageBackend {
	case config.BackendCSV:
		return store.NewCSVBackend(a.cfg.DataDir), nil
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendSQLite:
		b, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		a.checkers = append(a.checkers, db.SQLChecker{Label: "sqlite", DB: b.DB()})
		return b, nil
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closerFunc(pool.Close))
		a.checkers = append(a.checkers, db.PoolChecker{Pool: pool})
		if _, err := db.NewMigrator(pool, db.Migrations()).Up(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.StorageBackend)
	}
}

// buildSink always writes the two text logs and fans out to Redis and a
// webhook when they are configured.
func (a *app) buildSink() (notification.Sink, error) {
	sinks := notification.MultiSink{notification.NewFileSink(a.cfg.EmailLogFile, a.cfg.EHRLogFile)}

	if a.cfg.NotifyRedisURL != "" {
		rs, err := notification.NewRedisStreamSinkFromURL(a.cfg.NotifyRedisURL, a.cfg.NotifyRedisStream)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs)
		a.checkers = append(a.checkers, rs)
		sinks = append(sinks, rs)
	}
	if a.cfg.NotifyWebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookSink(a.cfg.NotifyWebhookURL, a.cfg.NotifyTimeout))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// newApp wires storage, notifications and the record manager, then loads
// every collection. Missing collections start empty.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: telemetry.New("clinic")}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open %s backend: %w", cfg.StorageBackend, err)
	}
	sink, err := a.buildSink()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notification sink: %w", err)
	}

	a.notes = notification.NewLog(sink, logger)
	a.notes.SetObserver(func(e notification.Entry) {
		a.metrics.RecordDelivery(string(e.Channel), e.Status)
	})
	refs := referral.NewManager(backend, a.notes, logger)
	a.manager = clinic.NewManager(backend, refs, logger, a.metrics)

	report, err := a.manager.LoadAll(ctx)
	for entity, res := range report {
		logger.Debug().Str("entity", string(entity)).Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("startup load")
	}
	if err != nil {
		// Unreadable collections start empty; keep serving.
		logger.Error().Err(err).Msg("some collections failed to load")
	}
	return a, nil
}

// Close releases every resource in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func()

func (f closerFunc) Close() error { f(); return nil }

func (a *app) newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(a.metrics.Middleware())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(a.checkers...))
	e.GET("/metrics", a.metrics.Handler())

	api := e.Group("/api/v1")
	clinic.NewHandler(a.manager).RegisterRoutes(api)
	notification.NewHandler(a.notes).RegisterRoutes(api)
	return e
}

func writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
