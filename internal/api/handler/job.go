package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobHandler is the job gateway: it accepts creation requests, enforces
// quotas and the single-active-job claim, hands accepted jobs to the
// executor, and serves the polling endpoint.
type JobHandler struct {
	jobs       *repository.JobRepository
	users      *repository.UserRepository
	resumes    *repository.ResumeRepository
	interviews *repository.InterviewRepository
	executor   *service.Executor
}

// NewJobHandler creates a new job gateway handler.
func NewJobHandler(
	jobs *repository.JobRepository,
	users *repository.UserRepository,
	resumes *repository.ResumeRepository,
	interviews *repository.InterviewRepository,
	executor *service.Executor,
) *JobHandler {
	return &JobHandler{
		jobs:       jobs,
		users:      users,
		resumes:    resumes,
		interviews: interviews,
		executor:   executor,
	}
}

// createJobRequest is the union of all kind-specific creation fields. Which
// fields are required depends on the :kind path parameter.
type createJobRequest struct {
	FilePath       string `json:"file_path"`
	FileName       string `json:"file_name"`
	MIMEType       string `json:"mime_type"`
	ProfileURL     string `json:"profile_url"`
	ResumeID       string `json:"resume_id"`
	Template       string `json:"template"`
	JobDescription string `json:"job_description"`
	InterviewID    string `json:"interview_id"`
}

// jobFeature maps a job kind to its quota category. Parse kinds have no
// quota; an unmapped feature is always allowed.
func jobFeature(kind domain.JobKind) (domain.Feature, bool) {
	switch kind {
	case domain.JobKindRenderPDF:
		return domain.FeatureResumeGenerations, true
	case domain.JobKindATSScore, domain.JobKindATSRewrite:
		return domain.FeatureATSChecks, true
	case domain.JobKindInterviewEvaluate, domain.JobKindJudgeEvaluate:
		return domain.FeatureInterviews, true
	}
	return "", false
}

// Create handles POST /api/v1/jobs/:kind.
func (h *JobHandler) Create(c *gin.Context) {
	kindParam := c.Param("kind")
	if !domain.ValidJobKind(kindParam) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unknown job kind: " + kindParam})
		return
	}
	kind := domain.JobKind(kindParam)
	if kind == domain.JobKindJudgeEvaluate {
		// Judge evaluations go through the judge endpoint, which manages the
		// evaluation record alongside the job.
		c.JSON(http.StatusBadRequest, gin.H{"message": "judge evaluations are created via /judge/evaluate"})
		return
	}

	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body: " + err.Error()})
		return
	}

	input, resourceID, err := h.buildInput(c, kind, userID, &req)
	if err != nil {
		return // buildInput wrote the response
	}

	user, err := h.getOrCreateUser(c, userID)
	if err != nil {
		return
	}

	feature, gated := jobFeature(kind)
	if gated {
		result := service.CheckLimit(service.PlanByID(user.PlanID), user.Usage, feature, time.Now())
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"message": "monthly quota exceeded for " + string(feature),
				"limit":   result.Limit,
				"used":    result.Used,
				"planId":  user.PlanID,
			})
			return
		}
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to encode job input"})
		return
	}

	job := &domain.JobRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		ResourceID: resourceID,
		Kind:       kind,
		Status:     domain.JobStatusPending,
		Input:      string(encoded),
	}

	if err := h.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveJob) {
			existing, findErr := h.jobs.FindActive(ctx, resourceID, kind)
			if findErr == nil {
				c.JSON(http.StatusOK, gin.H{"jobId": existing.ID, "status": existing.Status})
				return
			}
			// Claim holder finished between insert and fetch; treat as transient.
			c.JSON(http.StatusConflict, gin.H{"message": "a job for this resource just finished, retry"})
			return
		}
		logger.CtxError(ctx, "Failed to create job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create job"})
		return
	}

	if err := h.executor.Enqueue(job.ID); err != nil {
		_ = h.jobs.Fail(ctx, job.ID, err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "job queue is full, try again later"})
		return
	}

	if gated {
		if err := h.users.IncrementUsage(ctx, userID, feature); err != nil {
			logger.CtxError(ctx, "Failed to increment %s usage: %v", feature, err)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": job.Status})
}

// buildInput validates the kind-specific fields and returns the serializable
// input plus the owning resource id. It writes the HTTP error response itself.
func (h *JobHandler) buildInput(c *gin.Context, kind domain.JobKind, userID string, req *createJobRequest) (interface{}, string, error) {
	ctx := c.Request.Context()
	errBadRequest := errors.New("bad request")

	switch kind {
	case domain.JobKindParseTemplate:
		if req.FilePath == "" || req.FileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "file_path and file_name are required"})
			return nil, "", errBadRequest
		}
		return domain.ParseTemplateInput{FilePath: req.FilePath, FileName: req.FileName, MIMEType: req.MIMEType}, "", nil

	case domain.JobKindParseLinkedInURL:
		if !strings.HasPrefix(req.ProfileURL, "https://") {
			c.JSON(http.StatusBadRequest, gin.H{"message": "profile_url must be an https URL"})
			return nil, "", errBadRequest
		}
		return domain.ParseLinkedInURLInput{ProfileURL: req.ProfileURL}, "", nil

	case domain.JobKindParseLinkedInZip:
		if req.FilePath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "file_path is required"})
			return nil, "", errBadRequest
		}
		return domain.ParseLinkedInZipInput{FilePath: req.FilePath}, "", nil

	case domain.JobKindRenderPDF, domain.JobKindATSScore, domain.JobKindATSRewrite:
		if req.ResumeID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "resume_id is required"})
			return nil, "", errBadRequest
		}
		if _, err := h.resumes.GetOwned(ctx, req.ResumeID, userID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "resume not found"})
			return nil, "", errBadRequest
		}
		if kind == domain.JobKindRenderPDF {
			return domain.RenderInput{ResumeID: req.ResumeID, Template: req.Template}, req.ResumeID, nil
		}
		return domain.ScoreInput{ResumeID: req.ResumeID, JobDescription: req.JobDescription}, req.ResumeID, nil

	case domain.JobKindInterviewEvaluate:
		if req.InterviewID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "interview_id is required"})
			return nil, "", errBadRequest
		}
		if _, err := h.interviews.GetOwned(ctx, req.InterviewID, userID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "interview not found"})
			return nil, "", errBadRequest
		}
		return domain.EvaluateInput{InterviewID: req.InterviewID}, req.InterviewID, nil
	}

	c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported job kind"})
	return nil, "", errBadRequest
}

// getOrCreateUser loads the caller's user row, provisioning a default one on
// first sight (account creation lives with the external auth system).
func (h *JobHandler) getOrCreateUser(c *gin.Context, userID string) (*domain.User, error) {
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load user"})
		return nil, err
	}

	user = &domain.User{ID: userID, PlanID: "free"}
	user.Usage.Normalize(time.Now())
	if createErr := h.users.Create(ctx, user); createErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to provision user"})
		return nil, createErr
	}
	return user, nil
}

// Status handles GET /api/v1/jobs/:kind/:jobId. Lookup is scoped to the
// caller: someone else's job is a 404, never a 403.
func (h *JobHandler) Status(c *gin.Context) {
	jobID := c.Param("jobId")
	userID := middleware.UserID(c)

	job, err := h.jobs.FindOwned(c.Request.Context(), jobID, userID)
	if err != nil || string(job.Kind) != c.Param("kind") {
		c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
		return
	}

	resp := gin.H{
		"jobId":    job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.Result != "" {
		resp["result"] = json.RawMessage(job.Result)
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	c.JSON(http.StatusOK, resp)
}
