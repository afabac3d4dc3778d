package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qrinout/server/internal/config"
	"github.com/qrinout/server/internal/db"
	"github.com/qrinout/server/internal/httpapi"
	"github.com/qrinout/server/internal/monitoring"
	"github.com/qrinout/server/internal/qrinout/service"
	sqlitestore "github.com/qrinout/server/internal/qrinout/store/sqlite"
	"github.com/qrinout/server/internal/qrinout/timesource"
	"github.com/qrinout/server/internal/qrinout/token"
)

func main() {
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.TokenSecret == "" || cfg.SessionSecret == "" {
		logger.Fatal("QRINOUT_TOKEN_SECRET and QRINOUT_SESSION_SECRET are required in prod")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatal("seed dev data", zap.Error(err))
		}
	}

	writer := db.NewWorker(conn, cfg.DBWriteQueue)
	defer writer.Close()

	checkpoints := sqlitestore.NewCheckpointStore(conn, writer)
	guests := sqlitestore.NewGuestStore(conn, writer)
	activity := sqlitestore.NewActivityStore(conn, writer)
	settings := sqlitestore.NewSettingsStore(conn, writer)

	codec := token.NewCodec(cfg.TokenSecret)
	metrics := monitoring.New(prometheus.DefaultRegisterer)

	providers := timesource.DefaultProviders()
	if cfg.WorldTimeBaseURL != "" || cfg.TimeAPIBaseURL != "" {
		providers = nil
		if cfg.WorldTimeBaseURL != "" {
			providers = append(providers, &timesource.WorldTimeAPI{BaseURL: cfg.WorldTimeBaseURL})
		}
		if cfg.TimeAPIBaseURL != "" {
			providers = append(providers, &timesource.TimeAPIIO{BaseURL: cfg.TimeAPIBaseURL})
		}
	}
	clock := timesource.NewService(providers, logger)
	clock.SetMetrics(metrics)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           cfg.HTTPAddr,
		ScanService:    service.NewScanService(checkpoints, activity, codec, logger),
		Issuer:         service.NewIssuer(checkpoints, settings, codec, clock, logger),
		DisplayAuth:    service.NewDisplayAuth(checkpoints, cfg.SessionSecret, cfg.SessionTTL),
		GuestDirectory: service.NewGuestDirectory(guests, settings),
		Settings:       settings,
		TimeSource:     clock,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
