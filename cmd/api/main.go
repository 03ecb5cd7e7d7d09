package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rrojan/ticket-booking/internal/app"
	"github.com/rrojan/ticket-booking/internal/clock"
	"github.com/rrojan/ticket-booking/internal/config"
	"github.com/rrojan/ticket-booking/internal/payment"
	"github.com/rrojan/ticket-booking/internal/storage/postgres"
	"github.com/rrojan/ticket-booking/internal/storage/rediscache"
	transporthttp "github.com/rrojan/ticket-booking/internal/transport/http"
	"github.com/rrojan/ticket-booking/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	setLogLevel(cfg.LogLevel)

	log.Info().Str("app", cfg.AppName).Msg("starting")

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.StartupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	bookingRepo := postgres.NewBookingRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)

	gateway := payment.NewSimulated(cfg.PaymentSuccessRate, uint64(time.Now().UnixNano()))

	bookingOpts := []app.BookingServiceOption{
		app.WithMaxQuantity(cfg.MaxTicketsPerBooking),
		app.WithLogger(log.Logger),
	}
	catalogOpts := []app.CatalogServiceOption{
		app.WithCatalogLogger(log.Logger),
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis ping")
		}

		cache := rediscache.New(redisClient, rediscache.WithTTL(cfg.AvailabilityCacheTTL))
		bookingOpts = append(bookingOpts, app.WithAvailabilityInvalidator(cache))
		catalogOpts = append(catalogOpts, app.WithAvailabilityCache(cache))
		log.Info().Str("addr", cfg.RedisAddr).Msg("availability cache enabled")
	}

	bookingSvc := app.NewBookingService(bookingRepo, gateway, clock.NewSystem(), bookingOpts...)
	catalogSvc := app.NewCatalogService(catalogRepo, catalogOpts...)
	adminSvc := app.NewAdminService(adminRepo, clock.NewSystem())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/bookings", transporthttp.HandleCreateBooking(bookingSvc))
	mux.Handle("/bookings/", transporthttp.HandleUserBookings(bookingSvc))
	mux.Handle("/concerts", transporthttp.HandleListConcerts(catalogSvc))
	mux.Handle("/concerts/", transporthttp.HandleConcert(catalogSvc))
	mux.Handle("/admin/concerts", transporthttp.HandleAdminConcerts(adminSvc, catalogSvc))
	mux.Handle("/admin/concerts/", transporthttp.HandleAdminTiers(adminSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOriginList(), mux), log.Logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Info().Str("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		log.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
