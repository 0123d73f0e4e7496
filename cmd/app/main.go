package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"studio-service/internal/config"
	"studio-service/internal/events"
	"studio-service/internal/geo"
	availabilityGet "studio-service/internal/http-server/handlers/availability/get"
	availabilitySet "studio-service/internal/http-server/handlers/availability/set"
	sessionBatch "studio-service/internal/http-server/handlers/sessions/batch"
	sessionCancel "studio-service/internal/http-server/handlers/sessions/cancel"
	sessionClient "studio-service/internal/http-server/handlers/sessions/client"
	sessionEarliest "studio-service/internal/http-server/handlers/sessions/earliest"
	sessionTypes "studio-service/internal/http-server/handlers/sessions/types"
	"studio-service/internal/lock"
	svc "studio-service/internal/service"
	"studio-service/internal/storage/postgres"
	slogpretty "studio-service/pkg/handlers/slogPretty"
	"studio-service/pkg/middleware/mwLogger"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env), slog.String("timezone", cfg.Timezone))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		log.Error("Failed to migrate storage", sl.Err(err))
		os.Exit(1)
	}

	redisClient, err := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("Failed to init redis", sl.Err(err))
		os.Exit(1)
	}

	locker := lock.NewRedisLock(redisClient)

	baseGeo, err := setupGeo(cfg, log)
	if err != nil {
		log.Error("Failed to init geo provider", sl.Err(err))
		os.Exit(1)
	}

	geoProvider := geo.NewCached(baseGeo, geo.NewRedisCache(redisClient), cfg.Geo.CacheTTL)

	var publisher events.Publisher = events.Nop{}
	var rabbit *events.RabbitPublisher
	if cfg.Broker.URL != "" {
		rabbit = events.NewRabbitPublisher(cfg.Broker.URL, cfg.Broker.Queue, cfg.Broker.DialTimeout)
		publisher = rabbit
		log.Info("Publishing booking events", slog.String("queue", cfg.Broker.Queue))
	}

	service := svc.NewService(log, storage, locker, geoProvider, publisher, svc.Options{
		Location:    cfg.Location(),
		BaseAddress: cfg.Studio.BaseAddress,
		GeoTimeout:  cfg.Geo.Timeout,
		LockTTL:     cfg.Booking.LockTTL,
	})

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Sessions
	router.Get("/sessions/types", sessionTypes.New(log, service))
	router.Get("/sessions/client", sessionClient.New(log, service))
	router.Post("/sessions/batch", sessionBatch.New(log, service))
	router.Post("/sessions/earliest", sessionEarliest.New(log, service))
	router.Post("/sessions/{id}/cancel", sessionCancel.New(log, service))

	// Availability
	router.Get("/availability", availabilityGet.New(log, service))
	router.Post("/availability", availabilitySet.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			log.Error("Failed to close publisher", sl.Err(err))
		}
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close redis", sl.Err(err))
	} else {
		log.Info("Redis closed")
	}

	log.Info("Shutdown finished, server stopped")

}

var errNoGeocoder = errors.New("geo.api_key is required in prod")

// setupGeo picks the travel-time backend. The haversine estimate still
// geocodes through Google when a key is configured. Without a key only
// stored coordinates resolve, which is refused in prod.
func setupGeo(cfg *config.Config, log *slog.Logger) (geo.Provider, error) {
	if cfg.Geo.APIKey == "" {
		if cfg.Env == envProd {
			return nil, errNoGeocoder
		}

		log.Warn("No geocoder configured: addresses without coordinates are not resolved, "+
			"travel checks assume 0 minutes and earliest search returns null",
			slog.String("provider", cfg.Geo.Provider),
		)

		return &geo.Haversine{SpeedKmh: cfg.Geo.AverageSpeedKmh}, nil
	}

	google, err := geo.NewGoogleClient(geo.GoogleOptions{
		BaseURL:           cfg.Geo.BaseURL,
		APIKey:            cfg.Geo.APIKey,
		Timeout:           cfg.Geo.Timeout,
		RequestsPerSecond: cfg.Geo.RequestsPerSecond,
		Burst:             cfg.Geo.Burst,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Geo.Provider == "google" {
		log.Info("Using Google distance matrix")
		return google, nil
	}

	log.Info("Using haversine travel estimate", slog.Float64("speed_kmh", cfg.Geo.AverageSpeedKmh))
	return &geo.Haversine{SpeedKmh: cfg.Geo.AverageSpeedKmh, Geocoder: google}, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
