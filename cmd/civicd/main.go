package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/civicgrid/civic-report-service/internal/adapter/geocode"
	"github.com/civicgrid/civic-report-service/internal/adapter/httpapi"
	kafkaadapter "github.com/civicgrid/civic-report-service/internal/adapter/kafka"
	"github.com/civicgrid/civic-report-service/internal/adapter/weather"
	"github.com/civicgrid/civic-report-service/internal/config"
	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/observability"
	"github.com/civicgrid/civic-report-service/internal/service"
	"github.com/civicgrid/civic-report-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var st store.Store
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		st = db
		logger.Info("sqlite store opened", "path", cfg.SQLitePath)
	default:
		st = store.NewMemory()
		logger.Info("in-memory store selected")
	}

	// Weather lookups feed hazard classification (feature-flagged via
	// CIVIC_WEATHER_ENABLED). Disabled means every submission classifies
	// against the neutral snapshot.
	var weatherSvc domain.WeatherService
	if cfg.WeatherEnabled {
		client := weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, logger, metrics)
		weatherSvc = weather.NewCachedService(client, cfg.WeatherCacheSize, metrics)
		logger.Info("weather lookups enabled", "cache_size", cfg.WeatherCacheSize, "timeout", cfg.WeatherTimeout)
	} else {
		logger.Info("weather lookups disabled")
	}

	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		geocoder = geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeTimeout, logger, metrics)
		logger.Info("reverse geocoding enabled", "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("reverse geocoding disabled")
	}

	var publisher domain.EventPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaPublisher
		logger.Info("event feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("event feed disabled")
	}

	fallback := domain.LatLng{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng}
	svc := service.New(service.Deps{
		Store:     st,
		Locator:   service.FixedLocator{Position: fallback},
		Geocoder:  geocoder,
		Weather:   weatherSvc,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
		Fallback:  fallback,
	})

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
