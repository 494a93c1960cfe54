package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/provider-slot-scheduling/internal/api"
	"github.com/hackgods/provider-slot-scheduling/internal/appointment"
	"github.com/hackgods/provider-slot-scheduling/internal/config"
	"github.com/hackgods/provider-slot-scheduling/internal/db"
	"github.com/hackgods/provider-slot-scheduling/internal/events"
	"github.com/hackgods/provider-slot-scheduling/internal/logging"
	redisclient "github.com/hackgods/provider-slot-scheduling/internal/redis"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("api-server", "dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("api-server", cfg.Env, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("api-server stopped with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("events_backend", cfg.EventsBackend).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.DefaultPoolConfig())
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		return err
	}
	logger.Info().Msg("connected to Postgres, schema up to date")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	publisher, err := events.NewFromConfig(cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing event publisher")
		}
	}()

	sched := scheduling.NewService(
		scheduling.NewPgStore(pgPool),
		logger,
		scheduling.WithLocker(redisclient.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)),
	)
	appts := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		sched,
		logger,
		appointment.WithPublisher(publisher),
	)

	srv := &http.Server{
		Addr: net.JoinHostPort("", cfg.HTTPPort),
		Handler: api.NewRouter(api.RouterConfig{
			Scheduling:   sched,
			Appointments: appts,
			PgPool:       pgPool,
			Redis:        rdb,
			Logger:       logger,
			Env:          cfg.Env,
			Version:      cfg.Version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-rootCtx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
