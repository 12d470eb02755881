package repository

import (
	"context"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
)

// ResumeRepository handles resume persistence.
type ResumeRepository struct {
	db *gorm.DB
}

// NewResumeRepository creates a new ResumeRepository.
func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

// Create inserts a new resume record.
func (r *ResumeRepository) Create(ctx context.Context, resume *domain.Resume) error {
	return r.db.WithContext(ctx).Create(resume).Error
}

// Save persists the full resume record.
func (r *ResumeRepository) Save(ctx context.Context, resume *domain.Resume) error {
	return r.db.WithContext(ctx).Save(resume).Error
}

// GetByID retrieves a resume by id.
func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	var resume domain.Resume
	if err := r.db.WithContext(ctx).First(&resume, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// GetOwned retrieves a resume scoped to its owning user.
func (r *ResumeRepository) GetOwned(ctx context.Context, id, userID string) (*domain.Resume, error) {
	var resume domain.Resume
	if err := r.db.WithContext(ctx).First(&resume, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// SetArtifact records the rendered artifact location on the resume.
func (r *ResumeRepository) SetArtifact(ctx context.Context, id, key, url string) error {
	return r.db.WithContext(ctx).Model(&domain.Resume{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"artifact_key": key,
			"artifact_url": url,
		}).Error
}
