package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/avery/hireflow/internal/api"
	"github.com/avery/hireflow/internal/application"
	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database"
	"github.com/avery/hireflow/internal/invitation"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/pipeline"
	"github.com/avery/hireflow/internal/storage"
	"github.com/avery/hireflow/pkg/config"
	"github.com/avery/hireflow/pkg/crypto"
	"github.com/avery/hireflow/pkg/queue"
	"github.com/avery/hireflow/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting hireflow server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, emails will not be sent", "error", err)
		redisClient = nil
	}

	asynqClient := queue.NewClient(&cfg.Redis)
	if redisClient == nil {
		asynqClient = nil
	}

	// Resume storage: S3 when a bucket is configured, otherwise uploads are
	// skipped.
	var resumes storage.ResumeStore
	if cfg.Storage.Bucket != "" {
		encryptor, err := crypto.NewEncryptor(cfg.Storage.EncryptionKey)
		if err != nil {
			logger.Error("failed to create resume encryptor", "error", err)
			os.Exit(1)
		}
		if cfg.Storage.EncryptionKey == "" {
			logger.Warn("STORAGE_ENCRYPTION_KEY not set, using generated key - resumes will be unreadable after restart")
		}
		resumes, err = storage.NewS3Store(context.Background(), &cfg.Storage, encryptor, logger)
		if err != nil {
			logger.Error("failed to create resume store", "error", err)
			os.Exit(1)
		}
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	ledger := membership.NewService(db, logger)
	authService := auth.NewService(db, jwtService, ledger)
	pipelineService := pipeline.NewService(db, logger)
	jobService := job.NewService(db, logger, pipelineService)
	invitationService := invitation.NewService(db, logger, ledger, asynqClient, cfg.Invitations.TTL(), cfg.Server.BaseURL)
	applicationService := application.NewService(db, logger, resumes, asynqClient)

	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		JWTService:    jwtService,
		AuthService:   authService,
		Memberships:   ledger,
		Invitations:   invitationService,
		Pipelines:     pipelineService,
		Jobs:          jobService,
		Applications:  applicationService,
		RateLimitReqs: cfg.RateLimit.Requests,
		RateLimitSecs: cfg.RateLimit.WindowSeconds,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
