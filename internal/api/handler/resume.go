package handler

import (
	"net/http"

	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/storage"
	"github.com/gin-gonic/gin"
)

// ResumeHandler serves resume-owned resources, currently the rendered PDF
// artifact.
type ResumeHandler struct {
	resumes *repository.ResumeRepository
	store   storage.ObjectStorage
}

// NewResumeHandler creates a new resume resource handler.
func NewResumeHandler(resumes *repository.ResumeRepository, store storage.ObjectStorage) *ResumeHandler {
	return &ResumeHandler{resumes: resumes, store: store}
}

// Artifact handles GET /api/v1/resumes/:id/artifact. It streams the rendered
// PDF for a resume the caller owns. A resume without a finished render, or
// whose recorded artifact no longer exists in storage, is a 404.
func (h *ResumeHandler) Artifact(c *gin.Context) {
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	resume, err := h.resumes.GetOwned(ctx, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "resume not found"})
		return
	}
	if resume.ArtifactKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"message": "resume has no rendered artifact"})
		return
	}

	ok, err := h.store.Exists(ctx, resume.ArtifactKey)
	if err != nil {
		logger.CtxError(ctx, "Failed to check artifact %s: %v", resume.ArtifactKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to read artifact"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "artifact no longer exists"})
		return
	}

	reader, err := h.store.Download(ctx, resume.ArtifactKey)
	if err != nil {
		logger.CtxError(ctx, "Failed to download artifact %s: %v", resume.ArtifactKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to read artifact"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}
