package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"societyhub/internal/api"
	"societyhub/internal/audit"
	"societyhub/internal/auth"
	"societyhub/internal/booking"
	"societyhub/internal/config"
	"societyhub/internal/database"
	"societyhub/internal/events"
	"societyhub/internal/maintenance"
	"societyhub/internal/metrics"
	"societyhub/internal/notify"
	"societyhub/internal/payments"
	"societyhub/internal/polls"
	"societyhub/internal/sheets"
	"societyhub/internal/visitors"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SOCIETYHUB_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.JWTSecret == "" {
		logger.Fatal().Msg("set server.jwt_secret in config")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	var holds *booking.HoldManager
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, slot holds disabled")
			rdb = nil
		} else {
			holds = booking.NewHoldManager(rdb, cfg.HoldTTL())
		}
	}

	bus := notify.NewBus()

	bookingService := booking.NewService(db, bus, holds, cfg.Booking.MaxAdvanceDays, &logger)
	visitorService := visitors.NewService(db, bus, &logger)
	eventService := events.NewService(db, bus, &logger)
	maintenanceService := maintenance.NewService(db, bus, &logger)
	paymentService := payments.NewService(db, &logger)
	pollService := polls.NewService(db, &logger)

	var staff notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.StaffChatID != 0 {
		channel, err := notify.NewStaffChannel(cfg.Notify.TelegramToken, cfg.Notify.StaffChatID,
			cfg.Notify.RatePerSecond, cfg.Notify.Burst, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram channel unavailable, staff notices disabled")
		} else {
			staff = channel
		}
	}
	dispatcher := notify.NewDispatcher(db, paymentService, staff, &logger)
	dispatcher.Attach(bus)

	reminders := notify.NewReminderScheduler(db, cfg.Notify.ReminderHour, &logger)
	go reminders.Start(ctx)

	if cfg.Sheets.Enabled {
		mirror, err := sheets.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile, db, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("sheets mirror unavailable")
		} else {
			mirror.Attach(bus)
			go func() {
				if err := mirror.SyncAll(ctx); err != nil {
					logger.Warn().Err(err).Msg("initial sheets sync failed")
				}
			}()
		}
	}

	if cfg.Audit.Enabled {
		auditService := audit.NewService(audit.Config{
			ExportPath:    cfg.Audit.ExportPath,
			RetentionDays: cfg.Notify.RetentionDays,
			ExportOnStart: cfg.Audit.ExportOnStart,
		}, db, audit.NewExcelizeWriter, db, &logger)
		auditService.Start()
		defer auditService.Stop()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	router := api.SetupRouter(api.Deps{
		DB:          db,
		Tokens:      auth.NewManager(cfg.Server.JWTSecret, cfg.TokenTTL()),
		Bookings:    bookingService,
		Holds:       holds,
		Visitors:    visitorService,
		Events:      eventService,
		Maintenance: maintenanceService,
		Payments:    paymentService,
		Polls:       pollService,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("societyhub server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
