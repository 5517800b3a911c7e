package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/conectacordoba/marketplace-backend/internal/cache"
	"github.com/conectacordoba/marketplace-backend/internal/config"
	"github.com/conectacordoba/marketplace-backend/internal/db"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	httpHandlers "github.com/conectacordoba/marketplace-backend/internal/http/handlers"
	"github.com/conectacordoba/marketplace-backend/internal/http/middleware"
	httpRouter "github.com/conectacordoba/marketplace-backend/internal/http/router"
	"github.com/conectacordoba/marketplace-backend/internal/infrastructure/payment"
	"github.com/conectacordoba/marketplace-backend/internal/infrastructure/persistence"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/handler"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
	"github.com/conectacordoba/marketplace-backend/internal/repository"
	"github.com/conectacordoba/marketplace-backend/internal/service"
	"github.com/conectacordoba/marketplace-backend/internal/storage"
	"github.com/conectacordoba/marketplace-backend/internal/usecase/connection"
	"github.com/conectacordoba/marketplace-backend/internal/validation"
)

const version = "1.0.0"

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "json")
		logger.Component("main").Fatalf("не удалось загрузить конфигурацию: %v", err)
	}

	if cfg.IsProduction() {
		logger.Init("info", "json")
	} else {
		logger.Init("debug", "text")
	}
	log := logger.Component("main")

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatalf("не удалось подключиться к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("не удалось применить миграции: %v", err)
	}

	if err := validation.RegisterBindingTags(); err != nil {
		log.Fatalf("не удалось зарегистрировать валидаторы: %v", err)
	}

	// Кэш и хранилище лимитов: Redis, если задан, иначе память процесса.
	var (
		appCache   cache.Cache
		pinger     httpHandlers.Pinger
		redisConn  *redis.Client
		limitStore limiter.Store
	)
	if cfg.RedisURL != "" {
		redisConn, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("не удалось подключиться к Redis: %v", err)
		}
		defer func() {
			if err := redisConn.Close(); err != nil {
				log.Warnf("ошибка закрытия Redis: %v", err)
			}
		}()
		redisCache := cache.NewRedisCache(redisConn, "conecta:")
		appCache = redisCache
		pinger = redisCache
	} else {
		appCache = cache.NewMemoryCache(ctx, time.Minute)
		log.Info("REDIS_URL не задан, используется кэш в памяти")
	}
	limitStore, err = middleware.NewRateLimitStore(redisConn, "conecta:limit")
	if err != nil {
		log.Fatalf("не удалось подготовить хранилище лимитов: %v", err)
	}

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("не удалось подготовить файловое хранилище: %v", err)
	}

	commission, err := valueobject.NewMoney(cfg.CommissionAmount, cfg.CommissionCurrency)
	if err != nil {
		log.Fatalf("некорректная комиссия: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	connRepo := persistence.NewConnectionRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	profileService := service.NewProfileService(userRepo, photoStorage, appCache)
	reviewService := service.NewReviewService(reviewRepo, connRepo, userRepo, appCache)
	professionalService := service.NewProfessionalService(userRepo, reviewRepo, appCache, cfg.CacheTTL)

	// Сценарии связей.
	connectionHandler := handler.NewConnectionHandler(
		connection.NewCreateConnectionUseCase(connRepo, userRepo, commission),
		connection.NewListConnectionsUseCase(connRepo),
		connection.NewGetConnectionUseCase(connRepo),
		connection.NewUpdateStatusUseCase(connRepo),
		connection.NewSendMessageUseCase(connRepo),
		connection.NewMarkReadUseCase(connRepo),
		connection.NewRecordPaymentUseCase(connRepo, payment.NewSimulatedProcessor()),
		connection.NewStatsUseCase(connRepo),
	)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Profile:       httpHandlers.NewProfileHandler(profileService),
		Professionals: httpHandlers.NewProfessionalHandler(professionalService),
		Reviews:       httpHandlers.NewReviewHandler(reviewService),
		Catalog:       httpHandlers.NewCatalogHandler(),
		Health:        httpHandlers.NewHealthHandler(dbConn, pinger, version),
		Connections:   connectionHandler,
	}, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("ошибка остановки http сервера: %v", err)
		}
	}()

	log.WithField("port", cfg.HTTPPort).WithField("env", cfg.Env).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("сервер завершился с ошибкой: %v", err)
	}
	log.Info("сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Component("main").Errorf("ошибка закрытия базы: %v", err)
	}
}
