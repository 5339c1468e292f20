package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/examreport/internal/config"
	"github.com/ehr/examreport/internal/domain/examination"
	"github.com/ehr/examreport/internal/domain/report"
	"github.com/ehr/examreport/internal/platform/apierr"
	"github.com/ehr/examreport/internal/platform/cache"
	"github.com/ehr/examreport/internal/platform/converter"
	"github.com/ehr/examreport/internal/platform/db"
	"github.com/ehr/examreport/internal/platform/docx"
	"github.com/ehr/examreport/internal/platform/middleware"
	"github.com/ehr/examreport/internal/platform/websocket"
)

// pingCache is a report cache that can also answer health checks.
type pingCache interface {
	cache.Cache
	db.Pinger
}

// deps are the collaborators the HTTP server is assembled from.
type deps struct {
	exams   *examination.Service
	reports *report.Service
	hub     *websocket.Hub
	health  map[string]db.Pinger
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}
}

// openCache connects to Redis when REDIS_URL is set and falls back to an
// in-process cache otherwise. The returned func releases the connection.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (pingCache, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), func() {}
	}

	r, err := cache.NewRedis(ctx, cache.RedisConfig{URL: cfg.RedisURL})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory report cache")
		return cache.NewMemory(), func() {}
	}
	return r, func() { _ = r.Close() }
}

func newRenderer(cfg *config.Config, logger zerolog.Logger) (*report.Renderer, error) {
	tmpl, err := docx.Open(cfg.ReportTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("load report template: %w", err)
	}
	logger.Info().
		Str("path", cfg.ReportTemplatePath).
		Int("placeholders", len(tmpl.Placeholders())).
		Msg("report template loaded")

	conv := converter.NewLibreOffice(cfg.ConverterBinary, cfg.ConverterTimeout, logger)
	return report.NewRenderer(tmpl, conv, report.RendererConfig{
		PhotoSize:   cfg.PhotoSize,
		PhotoInches: cfg.PhotoDisplayInches,
	}, logger), nil
}

func buildServer(cfg *config.Config, logger zerolog.Logger, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierr.Handler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	// Health check
	e.GET("/health", db.HealthHandler(d.health))

	// Realtime notifications
	websocket.NewWebSocketHandler(d.hub, cfg.CORSOrigins).RegisterRoutes(e.Group(""))

	// API routes
	api := e.Group("/api",
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.Audit(logger),
	)
	examination.NewHandler(d.exams).RegisterRoutes(api)
	report.NewHandler(d.reports, logger).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	// Database
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	reportCache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	records := examination.NewRecordRepo(pool, cfg.StorageTimeout)
	exams := examination.NewService(records, hub, logger)
	reports := report.NewService(exams, renderer, reportCache, cfg.ReportCacheTTL, logger)

	e := buildServer(cfg, logger, deps{
		exams:   exams,
		reports: reports,
		hub:     hub,
		health:  map[string]db.Pinger{"database": pool, "cache": reportCache},
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting examination report server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}
