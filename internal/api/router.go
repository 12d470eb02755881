package api

import (
	"time"

	"github.com/careerforge/careerforge/internal/api/handler"
	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/service"
	"github.com/careerforge/careerforge/internal/storage"
	"github.com/gin-gonic/gin"
)

// RouterDeps carries everything the router needs to wire handlers.
type RouterDeps struct {
	Jobs        *repository.JobRepository
	Users       *repository.UserRepository
	Resumes     *repository.ResumeRepository
	Interviews  *repository.InterviewRepository
	Evaluations *repository.EvaluationRepository
	Idempotency *repository.IdempotencyRepository

	Executor *service.Executor
	Storage  storage.ObjectStorage
	Log      *logger.Logger

	Mode           string
	CORS           middleware.CORSConfig
	IdempotencyTTL time.Duration
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *RouterDeps) *gin.Engine {
	switch deps.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(middleware.CORS(deps.CORS))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(deps.Jobs, deps.Users, deps.Resumes, deps.Interviews, deps.Executor)
	judgeHandler := handler.NewJudgeHandler(deps.Jobs, deps.Users, deps.Interviews, deps.Evaluations, deps.Executor)
	resumeHandler := handler.NewResumeHandler(deps.Resumes, deps.Storage)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes: everything below requires a caller identity, and
	// mutating requests carrying an Idempotency-Key are deduplicated.
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.Use(middleware.Idempotency(deps.Idempotency, deps.IdempotencyTTL))
	{
		// Jobs
		v1.POST("/jobs/:kind", jobHandler.Create)
		v1.GET("/jobs/:kind/:jobId", jobHandler.Status)

		// Rendered artifacts
		v1.GET("/resumes/:id/artifact", resumeHandler.Artifact)

		// Judge evaluations
		v1.POST("/judge/evaluate", judgeHandler.Evaluate)
		v1.GET("/judge/interview/:id/aggregated", judgeHandler.Aggregated)
	}

	return r
}
