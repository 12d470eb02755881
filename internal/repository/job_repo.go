package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
)

// ErrDuplicateActiveJob is returned when a non-terminal job already holds the
// claim for the same (resource, kind) pair.
var ErrDuplicateActiveJob = errors.New("a non-terminal job already exists for this resource")

// JobRepository handles job record persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a pending job. Jobs with a resource id take the active
// claim; the unique index rejects the insert if another non-terminal job
// holds it, in which case ErrDuplicateActiveJob is returned and the caller
// should fetch the existing job via FindActive.
func (r *JobRepository) Create(ctx context.Context, job *domain.JobRecord) error {
	if job.ResourceID != "" {
		claimed := true
		job.Active = &claimed
	}
	err := r.db.WithContext(ctx).Create(job).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateActiveJob
	}
	return err
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.JobRecord, error) {
	var job domain.JobRecord
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindOwned retrieves a job scoped to its owning user. A job belonging to a
// different user is indistinguishable from a missing one.
func (r *JobRepository) FindOwned(ctx context.Context, id, userID string) (*domain.JobRecord, error) {
	var job domain.JobRecord
	if err := r.db.WithContext(ctx).First(&job, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindActive retrieves the non-terminal job holding the claim for a
// (resource, kind) pair, if any.
func (r *JobRepository) FindActive(ctx context.Context, resourceID string, kind domain.JobKind) (*domain.JobRecord, error) {
	var job domain.JobRecord
	err := r.db.WithContext(ctx).
		First(&job, "resource_id = ? AND kind = ? AND active = ?", resourceID, kind, true).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SetResource links a job to the resource it created mid-flight (parse jobs
// discover their resume id while running). The claim column is left alone:
// the job was admitted without one.
func (r *JobRepository) SetResource(ctx context.Context, id, resourceID string) error {
	return r.db.WithContext(ctx).Model(&domain.JobRecord{}).
		Where("id = ?", id).
		Update("resource_id", resourceID).Error
}

// MarkProcessing transitions a pending job to processing and stamps
// started_at. The status guard makes the transition idempotent and forward-only.
func (r *JobRepository) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&domain.JobRecord{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusProcessing,
			"started_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s is not pending", id)
	}
	return nil
}

// SetProgress advances the progress of a processing job. Progress is
// monotonic: a lower value than the stored one is a no-op.
func (r *JobRepository) SetProgress(ctx context.Context, id string, progress int) error {
	return r.db.WithContext(ctx).Model(&domain.JobRecord{}).
		Where("id = ? AND status = ? AND progress < ?", id, domain.JobStatusProcessing, progress).
		Update("progress", progress).Error
}

// Complete transitions a processing job to completed, writes the result, and
// releases the active claim.
func (r *JobRepository) Complete(ctx context.Context, id, result string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&domain.JobRecord{}).
		Where("id = ? AND status = ?", id, domain.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusCompleted,
			"progress":     100,
			"result":       result,
			"completed_at": &now,
			"active":       nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s is not processing", id)
	}
	return nil
}

// Fail transitions a non-terminal job to failed with an error message and
// releases the active claim. Failed jobs are terminal; there is no retry.
func (r *JobRepository) Fail(ctx context.Context, id, message string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.JobRecord{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusFailed,
			"error":        message,
			"completed_at": &now,
			"active":       nil,
		}).Error
}

// FindByStatus lists jobs in a given status, oldest first. Used by boot
// recovery to fail interrupted jobs and re-enqueue pending ones.
func (r *JobRepository) FindByStatus(ctx context.Context, status domain.JobStatus) ([]domain.JobRecord, error) {
	var jobs []domain.JobRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
