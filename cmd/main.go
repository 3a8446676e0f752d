package main

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

	"github.com/Dosada05/esports-platform/config"
	"github.com/Dosada05/esports-platform/db"
	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/handlers"
	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/repositories"
	api "github.com/Dosada05/esports-platform/routes"
	"github.com/Dosada05/esports-platform/scheduler"
	"github.com/Dosada05/esports-platform/services"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("log_level", cfg.LogLevel.String()))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema is up to date")

	// Инициализация загрузчика файлов (Cloudflare R2); без настроек загрузка баннеров отключена
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, banner upload is disabled")
	}

	// Публикация доменных событий
	publisher := events.NewNoopPublisher()
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		publisher = natsPublisher
		logger.Info("NATS event publisher connected", slog.String("subject_prefix", cfg.NATSSubjectPrefix))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", slog.Any("error", err))
		}
	}()

	// Инициализация репозиториев
	txManager := repositories.NewPostgresTransactor(dbConn, logger)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	historyRepo := repositories.NewPostgresEloHistoryRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	gameService := services.NewGameService(gameRepo)
	ratingService := services.NewRatingService(rankingRepo, historyRepo, gameRepo, cfg.RatingKFactor, cfg.RatingStart, logger)
	bracketService := services.NewBracketService(txManager, tournamentRepo, registrationRepo, matchRepo, logger)
	tournamentService := services.NewTournamentService(
		txManager,
		tournamentRepo,
		registrationRepo,
		matchRepo,
		gameRepo,
		bracketService,
		uploader,
		publisher,
		logger,
	)
	registrationService := services.NewRegistrationService(txManager, tournamentRepo, registrationRepo, matchRepo, teamRepo, logger)
	matchService := services.NewMatchService(txManager, tournamentRepo, registrationRepo, matchRepo, ratingService, publisher, logger)
	logger.Info("Services initialized")

	// Запуск планировщика закрытия регистрации по дедлайну
	sched, err := scheduler.New(tournamentService, cfg.SchedulerInterval, logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament:   handlers.NewTournamentHandler(tournamentService, bracketService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Match:        handlers.NewMatchHandler(matchService),
		Ranking:      handlers.NewRankingHandler(ratingService),
		Game:         handlers.NewGameHandler(gameService),
	}, middleware.NewAuthenticator(cfg.JWTSecretKey), cfg.CORSAllowedOrigins)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
