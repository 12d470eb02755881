package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JudgeHandler manages multi-evaluator interview assessments: submitting a
// judge's evaluation run and reading the aggregated view.
type JudgeHandler struct {
	jobs       *repository.JobRepository
	users      *repository.UserRepository
	interviews *repository.InterviewRepository
	evals      *repository.EvaluationRepository
	executor   *service.Executor
}

// NewJudgeHandler creates a new judge evaluation handler.
func NewJudgeHandler(
	jobs *repository.JobRepository,
	users *repository.UserRepository,
	interviews *repository.InterviewRepository,
	evals *repository.EvaluationRepository,
	executor *service.Executor,
) *JudgeHandler {
	return &JudgeHandler{
		jobs:       jobs,
		users:      users,
		interviews: interviews,
		evals:      evals,
		executor:   executor,
	}
}

type evaluateRequest struct {
	InterviewID string   `json:"interview_id" binding:"required"`
	JudgeID     string   `json:"judge_id" binding:"required"`
	JudgeRole   string   `json:"judge_role"`
	Weight      *float64 `json:"weight"`
}

// Evaluate handles POST /api/v1/judge/evaluate. Resubmitting the same
// (interview, judge) pair resets that judge's evaluation and runs it again;
// only one run per pair is in flight at a time.
func (h *JudgeHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body: " + err.Error()})
		return
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}
	if weight < 0 || weight > 2 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "weight must be between 0 and 2"})
		return
	}

	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	if _, err := h.interviews.GetOwned(ctx, req.InterviewID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "interview not found"})
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load user"})
		return
	}
	result := service.CheckLimit(service.PlanByID(user.PlanID), user.Usage, domain.FeatureInterviews, time.Now())
	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message": "monthly quota exceeded for " + string(domain.FeatureInterviews),
			"limit":   result.Limit,
			"used":    result.Used,
			"planId":  user.PlanID,
		})
		return
	}

	eval, err := h.evals.GetOrCreate(ctx, &domain.JudgeEvaluation{
		ID:          uuid.New().String(),
		InterviewID: req.InterviewID,
		JudgeID:     req.JudgeID,
		JudgeRole:   req.JudgeRole,
		Weight:      weight,
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to record judge evaluation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to record evaluation"})
		return
	}

	input, _ := json.Marshal(domain.JudgeInput{InterviewID: req.InterviewID, JudgeID: req.JudgeID})
	job := &domain.JobRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		ResourceID: eval.ID,
		Kind:       domain.JobKindJudgeEvaluate,
		Status:     domain.JobStatusPending,
		Input:      string(input),
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveJob) {
			existing, findErr := h.jobs.FindActive(ctx, eval.ID, domain.JobKindJudgeEvaluate)
			if findErr == nil {
				c.JSON(http.StatusOK, gin.H{"jobId": existing.ID, "evaluationId": eval.ID, "status": existing.Status})
				return
			}
		}
		logger.CtxError(ctx, "Failed to create judge evaluation job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create job"})
		return
	}

	// The claim is ours, so no run for this pair is in flight: the previous
	// run's output can be cleared for the rerun.
	if err := h.evals.ResetForRun(ctx, eval.ID, req.JudgeRole, weight); err != nil {
		_ = h.jobs.Fail(ctx, job.ID, "failed to reset evaluation for rerun")
		logger.CtxError(ctx, "Failed to reset judge evaluation %s: %v", eval.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to record evaluation"})
		return
	}

	if err := h.executor.Enqueue(job.ID); err != nil {
		_ = h.jobs.Fail(ctx, job.ID, err.Error())
		_ = h.evals.Fail(ctx, eval.ID, "job queue is full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "job queue is full, try again later"})
		return
	}

	if err := h.users.IncrementUsage(ctx, userID, domain.FeatureInterviews); err != nil {
		logger.CtxError(ctx, "Failed to increment interview usage: %v", err)
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "evaluationId": eval.ID, "status": job.Status})
}

// Aggregated handles GET /api/v1/judge/interview/:id/aggregated. The view is
// recomputed from all completed evaluations on every read.
func (h *JudgeHandler) Aggregated(c *gin.Context) {
	interviewID := c.Param("id")
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	if _, err := h.interviews.GetOwned(ctx, interviewID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "interview not found"})
		return
	}

	evals, err := h.evals.ListByInterview(ctx, interviewID)
	if err != nil {
		logger.CtxError(ctx, "Failed to list judge evaluations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load evaluations"})
		return
	}

	items := make([]gin.H, 0, len(evals))
	for _, e := range evals {
		item := gin.H{
			"evaluationId": e.ID,
			"judgeId":      e.JudgeID,
			"judgeRole":    e.JudgeRole,
			"weight":       e.Weight,
			"status":       e.Status,
		}
		if e.Status == domain.JobStatusCompleted {
			item["scores"] = e.Scores
			item["strengths"] = e.Strengths
			item["improvements"] = e.Improvements
			item["summary"] = e.Summary
			item["recommendation"] = e.Recommendation
		}
		if e.Error != "" {
			item["error"] = e.Error
		}
		items = append(items, item)
	}

	var aggregate interface{}
	if view := service.Aggregate(evals); view != nil {
		aggregate = view
	}

	c.JSON(http.StatusOK, gin.H{
		"interviewId": interviewID,
		"evaluations": items,
		"aggregate":   aggregate,
	})
}
