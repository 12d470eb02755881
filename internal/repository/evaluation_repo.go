package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvaluationRepository handles judge evaluation persistence.
type EvaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository creates a new EvaluationRepository.
func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// GetOrCreate returns the evaluation for a (interview, judge) pair, creating
// a pending record when none exists. The existing record is returned
// untouched: resubmission must not disturb a run that is already in flight.
// The unique index on the pair guarantees at most one record survives
// concurrent submissions; the returned record carries the canonical ID.
func (r *EvaluationRepository) GetOrCreate(ctx context.Context, eval *domain.JudgeEvaluation) (*domain.JudgeEvaluation, error) {
	eval.Status = domain.JobStatusPending
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "interview_id"}, {Name: "judge_id"}},
		DoNothing: true,
	}).Create(eval).Error
	if err != nil {
		return nil, err
	}
	return r.GetByPair(ctx, eval.InterviewID, eval.JudgeID)
}

// ResetForRun rewinds an evaluation to pending for a fresh run, clearing the
// previous run's output. Callers must hold the active-job claim for the
// evaluation first; the claim is what keeps a reset from racing an in-flight
// run.
func (r *EvaluationRepository) ResetForRun(ctx context.Context, id, judgeRole string, weight float64) error {
	return r.db.WithContext(ctx).Model(&domain.JudgeEvaluation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         domain.JobStatusPending,
			"judge_role":     judgeRole,
			"weight":         weight,
			"scores":         "{}",
			"strengths":      "[]",
			"improvements":   "[]",
			"summary":        "",
			"recommendation": "",
			"error":          "",
			"completed_at":   nil,
		}).Error
}

// GetByPair retrieves the evaluation for a (interview, judge) pair.
func (r *EvaluationRepository) GetByPair(ctx context.Context, interviewID, judgeID string) (*domain.JudgeEvaluation, error) {
	var eval domain.JudgeEvaluation
	err := r.db.WithContext(ctx).
		First(&eval, "interview_id = ? AND judge_id = ?", interviewID, judgeID).Error
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// GetByID retrieves an evaluation by id.
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (*domain.JudgeEvaluation, error) {
	var eval domain.JudgeEvaluation
	if err := r.db.WithContext(ctx).First(&eval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &eval, nil
}

// ListByInterview returns all evaluations for an interview, oldest first.
func (r *EvaluationRepository) ListByInterview(ctx context.Context, interviewID string) ([]domain.JudgeEvaluation, error) {
	var evals []domain.JudgeEvaluation
	err := r.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("created_at asc").
		Find(&evals).Error
	if err != nil {
		return nil, err
	}
	return evals, nil
}

// ListCompleted returns the completed evaluations for an interview. The
// aggregate is always recomputed from this full set.
func (r *EvaluationRepository) ListCompleted(ctx context.Context, interviewID string) ([]domain.JudgeEvaluation, error) {
	var evals []domain.JudgeEvaluation
	err := r.db.WithContext(ctx).
		Where("interview_id = ? AND status = ?", interviewID, domain.JobStatusCompleted).
		Order("created_at asc").
		Find(&evals).Error
	if err != nil {
		return nil, err
	}
	return evals, nil
}

// MarkProcessing moves a pending evaluation to processing. An evaluation in
// any other state means the caller lost a race and must not proceed.
func (r *EvaluationRepository) MarkProcessing(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.JudgeEvaluation{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Update("status", domain.JobStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("evaluation %s is not pending", id)
	}
	return nil
}

// Complete writes the judge's scores and feedback and marks the evaluation
// completed. Only a processing evaluation can complete; a silent no-op here
// would strand the record.
func (r *EvaluationRepository) Complete(ctx context.Context, eval *domain.JudgeEvaluation) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&domain.JudgeEvaluation{}).
		Where("id = ? AND status = ?", eval.ID, domain.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":         domain.JobStatusCompleted,
			"scores":         eval.Scores,
			"strengths":      eval.Strengths,
			"improvements":   eval.Improvements,
			"summary":        eval.Summary,
			"recommendation": eval.Recommendation,
			"completed_at":   &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("evaluation %s is not processing", eval.ID)
	}
	return nil
}

// Fail marks a non-terminal evaluation failed with an error message.
func (r *EvaluationRepository) Fail(ctx context.Context, id, message string) error {
	return r.db.WithContext(ctx).Model(&domain.JudgeEvaluation{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Updates(map[string]interface{}{
			"status": domain.JobStatusFailed,
			"error":  message,
		}).Error
}
