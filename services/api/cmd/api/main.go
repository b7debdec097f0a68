package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/app"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/config"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/event"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/metrics"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/notify"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/storage/postgres"
	transporthttp "github.com/jinxlo/RifasCAIv2/services/api/internal/transport/http"
	"github.com/jinxlo/RifasCAIv2/services/api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	bus := event.NewBus(logger.With().Str("component", "event_bus").Logger())
	defer bus.Close()

	hub := notify.NewWebSocketHub(logger.With().Str("component", "websocket").Logger())
	defer hub.Close()
	bus.Subscribe(hub.HandleEvent)

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger.With().Str("component", "telegram").Logger())
		if err != nil {
			logger.Warn().Err(err).Msg("telegram notifier disabled")
		} else {
			bus.Subscribe(notifier.HandleEvent)
		}
	}

	clk := clock.NewSystem()
	reservationSvc := app.NewReservationService(
		postgres.NewReservationRepository(pool), clk, bus,
		app.WithReservationMetrics(engineMetrics),
	)
	paymentSvc := app.NewPaymentService(
		postgres.NewPaymentRepository(pool), clk, bus,
		app.WithPaymentMetrics(engineMetrics),
	)
	raffleSvc := app.NewRaffleService(postgres.NewRaffleRepository(pool), clk)
	sweeper := app.NewSweeper(
		postgres.NewSweepRepository(pool), clk, bus,
		logger.With().Str("component", "sweeper").Logger(),
		app.WithReservationTTL(cfg.ReservationTTL),
		app.WithSweeperMetrics(engineMetrics),
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		sweeper.Sweep(context.Background())
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("schedule sweep")
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Reservations: reservationSvc,
		Payments:     paymentSvc,
		Raffles:      raffleSvc,
		Events:       hub,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:       logger,
		AuthSecret:   []byte(cfg.AuthSecret),
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info().Str("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
