package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-tasklist/internal/config"
	"go-tasklist/internal/database"
	"go-tasklist/internal/handler"
	"go-tasklist/internal/middleware"
	"go-tasklist/internal/repository"
	"go-tasklist/internal/router"
	"go-tasklist/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	taskRepo := repository.NewTaskRepository(db.Pool)
	slog.Info("database ready")

	var mailService *service.MailService
	if cfg.MailEnabled() {
		mailService, err = service.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize mail service: %w", err)
		}
	} else {
		slog.Warn("SMTP_HOST not set; registration and reminder emails disabled")
	}

	var imageService *service.ImageService
	if cfg.ImagesEnabled() {
		imageService, err = service.NewImageService(context.Background(),
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize image storage: %w", err)
		}
	} else {
		slog.Warn("MINIO_ENDPOINT not set; task image upload disabled")
	}

	tokenService := service.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(tokenService, userRepo, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	accessService := service.NewAccessService(userRepo)

	// A typed nil must not reach the optional-collaborator interfaces.
	userService := service.NewUserService(userRepo, nil)
	if mailService != nil {
		userService = service.NewUserService(userRepo, mailService)
	}
	taskService := service.NewTaskService(taskRepo, nil)
	if imageService != nil {
		taskService = service.NewTaskService(taskRepo, imageService)
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth: handler.NewAuthHandler(authService, userService),
		User: handler.NewUserHandler(userService, taskService, accessService),
		Task: handler.NewTaskHandler(taskService, accessService),
	})

	cleanupFuncs := []func(){func() { db.Close() }}

	if mailService != nil {
		reminderService := service.NewReminderService(taskService, userService, mailService, cfg.ReminderHorizon)
		reminderCtx, reminderCancel := context.WithCancel(context.Background())
		go reminderService.Start(reminderCtx, cfg.ReminderInterval)
		cleanupFuncs = append(cleanupFuncs, reminderCancel)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		db:           db,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
