package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/dreamloop/backend/api/handler"
	"github.com/dreamloop/backend/internal/config"
	"github.com/dreamloop/backend/internal/infrastructure/monitor"
	"github.com/dreamloop/backend/internal/infrastructure/outbox"
	pgInfra "github.com/dreamloop/backend/internal/infrastructure/postgres"
	redisInfra "github.com/dreamloop/backend/internal/infrastructure/redis"
	"github.com/dreamloop/backend/internal/middleware"
	"github.com/dreamloop/backend/internal/router"
	"github.com/dreamloop/backend/internal/services"
	"github.com/dreamloop/backend/internal/services/lifecycle"
	"github.com/dreamloop/backend/internal/verifier"
	"github.com/dreamloop/backend/pkg/httpcontext"
	"github.com/dreamloop/backend/pkg/logger"
	"github.com/dreamloop/backend/repository/postgres"
	redisRepo "github.com/dreamloop/backend/repository/redis"
	authUC "github.com/dreamloop/backend/usecase/auth"
	profileUC "github.com/dreamloop/backend/usecase/profile"
	streakUC "github.com/dreamloop/backend/usecase/streak"
	taskUC "github.com/dreamloop/backend/usecase/task"
	verificationUC "github.com/dreamloop/backend/usecase/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		FilePath: cfg.Logger.FilePath,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Reminder.OutboxPath, "reminders")
	if err != nil {
		zapLogger.Fatal("failed to open reminder outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	streakRepo := postgres.NewStreakRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)
	verificationLock := redisRepo.NewVerificationLock(redisClient, cfg.Inference.Timeout+10*time.Second)

	verifierClient, err := verifier.New(verifier.Config{
		APIKey:  cfg.Inference.APIKey,
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.Model,
		Timeout: cfg.Inference.Timeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create verifier client", zap.Error(err))
	}

	if cfg.Reminder.Enabled {
		reminderService := services.NewReminderService(
			outboxStore,
			mon,
			taskRepo,
			services.NewLogDispatcher(zapLogger),
			zapLogger,
			services.ReminderConfig{
				SweepSchedule: cfg.Reminder.SweepSchedule,
				DrainInterval: cfg.Reminder.DrainInterval,
				BatchSize:     cfg.Reminder.BatchSize,
				MaxRetries:    cfg.Reminder.MaxRetry,
				Retention:     time.Duration(cfg.Reminder.RetentionHrs) * time.Hour,
			},
		)
		reminderService.Start()
		manager.Register("reminder_service", func(ctx context.Context) error {
			reminderService.Stop(ctx)
			return nil
		})
	}

	authUseCase := authUC.New(userRepo, sessionRepo, zapLogger)
	profileUseCase := profileUC.New(userRepo, zapLogger)
	taskUseCase := taskUC.New(taskRepo, zapLogger)
	streakUseCase := streakUC.New(streakRepo, zapLogger)
	verificationUseCase := verificationUC.New(
		taskRepo,
		streakRepo,
		verificationLock,
		verifierClient,
		cfg.Inference.Timeout+10*time.Second,
		zapLogger,
	)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, time.Hour),
		Profile:      apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:         apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Verification: apiHandler.NewVerificationHandler(verificationUseCase, ctxAdapter, zapLogger),
		Streak:       apiHandler.NewStreakHandler(streakUseCase, ctxAdapter, zapLogger),
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
