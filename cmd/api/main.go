package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careerforge/careerforge/internal/api"
	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/service"
	"github.com/careerforge/careerforge/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	userRepo := repository.NewUserRepository(db)
	resumeRepo := repository.NewResumeRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	evalRepo := repository.NewEvaluationRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)

	// Initialize storage (supports MinIO, R2, S3)
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}

	ctx := context.Background()
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		logger.Fatal("Failed to ensure storage bucket: %v", err)
	}

	// Initialize external collaborators
	parser := service.NewFileParser(cfg.Uploads.Dir)
	renderer := service.NewHTTPRenderer(&service.RendererConfig{
		BaseURL: cfg.Renderer.BaseURL,
		APIKey:  cfg.Renderer.APIKey,
	})
	scorer := service.NewOpenAIScorer(&service.ScorerConfig{
		Provider: cfg.Scorer.Provider,
		Model:    cfg.Scorer.Model,
		APIKey:   cfg.Scorer.APIKey,
		BaseURL:  cfg.Scorer.BaseURL,
	})

	// Initialize executor
	executor := service.NewExecutor(
		jobRepo,
		resumeRepo,
		interviewRepo,
		evalRepo,
		parser,
		renderer,
		scorer,
		objectStorage,
		appLog,
		&service.ExecutorConfig{
			Workers:   cfg.Executor.Workers,
			QueueSize: cfg.Executor.QueueSize,
		},
	)

	// Recover jobs interrupted by the previous process before accepting new
	// work: processing jobs are failed, pending jobs are re-enqueued.
	if err := executor.RecoverInterrupted(ctx); err != nil {
		logger.Fatal("Failed to recover interrupted jobs: %v", err)
	}
	executor.Start(ctx)

	// Purge expired idempotency records periodically
	purgeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Idempotency.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := idemRepo.PurgeExpired(ctx); err != nil {
					logger.Warn("Failed to purge idempotency records: %v", err)
				} else if n > 0 {
					logger.Debug("Purged %d expired idempotency records", n)
				}
			case <-purgeDone:
				return
			}
		}
	}()

	// Setup router
	router := api.SetupRouter(&api.RouterDeps{
		Jobs:        jobRepo,
		Users:       userRepo,
		Resumes:     resumeRepo,
		Interviews:  interviewRepo,
		Evaluations: evalRepo,
		Idempotency: idemRepo,
		Executor:    executor,
		Storage:     objectStorage,
		Log:         appLog,
		Mode:        cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		IdempotencyTTL: cfg.Idempotency.TTL,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server on port %d (mode=%s, workers=%d)",
			cfg.Server.Port, cfg.Server.Mode, cfg.Executor.Workers)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	close(purgeDone)

	// Stop accepting requests first, then drain the worker pool.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	if err := executor.Stop(shutdownCtx); err != nil {
		logger.Warn("Executor did not drain before deadline: %v", err)
	}

	logger.Info("Server exited")
}
