package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/config"
	"github.com/iliyamo/rental-analytics/internal/database"
	"github.com/iliyamo/rental-analytics/internal/handler"
	"github.com/iliyamo/rental-analytics/internal/logging"
	"github.com/iliyamo/rental-analytics/internal/middleware"
	"github.com/iliyamo/rental-analytics/internal/queue"
	"github.com/iliyamo/rental-analytics/internal/repository"
	"github.com/iliyamo/rental-analytics/internal/router"
	"github.com/iliyamo/rental-analytics/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(log.NewLogfmtLogger(os.Stderr), "invalid configuration", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fatal(log.NewLogfmtLogger(os.Stderr), "invalid logging configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()

	src := repository.NewSQLSource(db, config.LoadTableMap())
	orch := analysis.New(src, config.LoadAnalysisConfig(), logger)

	rdb := config.NewRedisClient(ctx, config.LoadRedisOptions())
	if rdb == nil {
		level.Warn(logger).Log("msg", "redis unavailable, caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events service.Publisher = service.NopPublisher{}
	g, gctx := errgroup.WithContext(ctx)
	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		events = pub
		g.Go(func() error {
			err := queue.StartAnalysisConsumer(gctx, cfg.AMQPURL, queue.DefaultLogPath, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(logger))
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg))
	router.RegisterAnalyses(e, handler.NewAnalysisHandler(orch, events, logger), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	)

	addr := ":" + cfg.Port
	g.Go(func() error {
		level.Info(logger).Log("msg", "listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal(logger, "server stopped", err)
	}
	level.Info(logger).Log("msg", "server stopped")
}

func fatal(logger log.Logger, msg string, err error) {
	level.Error(logger).Log("msg", msg, "err", err)
	os.Exit(1)
}
