package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/app"
	"github.com/Freeeeeet/tutor_schedule/internal/config"
	"github.com/Freeeeeet/tutor_schedule/internal/controller/rest"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/Freeeeeet/tutor_schedule/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, "tutor-schedule")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tutor schedule server",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr))

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create db pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Run(ctx); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	_ = migrator.Close()

	users := repository.NewUserRepository(pool)
	stores := service.Stores{
		RegularCalendars: repository.NewRegularCalendarRepository(pool, logger),
		Bookings:         repository.NewBookingRepository(pool),
		Users:            users,
		Courses:          repository.NewCourseRepository(pool),
		OrderedPackages:  repository.NewOrderedPackageRepository(pool),
		Reservations:     repository.NewReservationRequestRepository(pool),
		Counters:         repository.NewCounterRepository(pool),
	}

	// Уведомления: очередь развязывает переходы состояний и доставку
	queue := notification.NewQueue(cfg.NotifyQueue, logger)
	dispatcher := notification.NewDispatcher(users, newMailer(cfg, logger), newPusher(cfg, logger), logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(context.WithoutCancel(ctx), dispatcher)
	}()

	calendars := service.NewRegularCalendarService(stores, queue, service.Options{
		SweepConcurrency:       cfg.SweepConcurrency,
		ExpiryAlertWindow:      cfg.ExpiryAlertWindow(),
		LowClassThreshold:      cfg.LowClassAlertThreshold,
		AutoScheduleWeeksAhead: cfg.AutoScheduleWeeksAhead,
	}, logger)

	scheduler, err := app.NewScheduler(calendars, cfg.SweepCron, cfg.AutoScheduleCron, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	scheduler.Start(ctx)

	auth := rest.NewAuthenticator(cfg.JWTSecret, logger)
	router := rest.NewRouter(rest.NewHandler(calendars, logger), auth, cfg.CORSOrigins, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := serveHTTP(ctx, srv, logger)
	scheduler.Stop()

	// дослать накопленные уведомления
	queue.Close()
	wg.Wait()

	if serveErr != nil {
		return serveErr
	}
	logger.Info("Server stopped")
	return nil
}

// serveHTTP обслуживает запросы до отмены ctx или падения сервера,
// затем останавливает сервер. Возвращает ошибку запуска, если она была.
func serveHTTP(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			serveErr = fmt.Errorf("serve http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	return serveErr
}

func newMailer(cfg *config.Config, logger *zap.Logger) notification.Mailer {
	if cfg.SendGridAPIKey == "" || cfg.MailFrom == "" {
		logger.Warn("SendGrid is not configured, emails will be logged only")
		return notification.NewLogMailer(logger)
	}
	return notification.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFrom)
}

func newPusher(cfg *config.Config, logger *zap.Logger) notification.Pusher {
	if cfg.TelegramToken == "" {
		logger.Warn("Telegram token is not set, pushes will be logged only")
		return notification.NewLogPusher(logger)
	}
	b, err := notification.NewTelegramBot(cfg.TelegramToken)
	if err != nil {
		logger.Error("Failed to create telegram bot, pushes will be logged only", zap.Error(err))
		return notification.NewLogPusher(logger)
	}
	return notification.NewTelegramPusher(b, logger)
}
