package repository

import (
	"context"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
)

// InterviewRepository handles interview and answer persistence.
type InterviewRepository struct {
	db *gorm.DB
}

// NewInterviewRepository creates a new InterviewRepository.
func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// Create inserts a new interview record.
func (r *InterviewRepository) Create(ctx context.Context, iv *domain.Interview) error {
	return r.db.WithContext(ctx).Create(iv).Error
}

// GetByID retrieves an interview by id.
func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	var iv domain.Interview
	if err := r.db.WithContext(ctx).First(&iv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &iv, nil
}

// GetOwned retrieves an interview scoped to its owning user.
func (r *InterviewRepository) GetOwned(ctx context.Context, id, userID string) (*domain.Interview, error) {
	var iv domain.Interview
	if err := r.db.WithContext(ctx).First(&iv, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &iv, nil
}

// ListAnswers returns an interview's answers in question order.
func (r *InterviewRepository) ListAnswers(ctx context.Context, interviewID string) ([]domain.InterviewAnswer, error) {
	var answers []domain.InterviewAnswer
	err := r.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("position asc").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// AddAnswer appends an answer transcript to an interview.
func (r *InterviewRepository) AddAnswer(ctx context.Context, answer *domain.InterviewAnswer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

// MarkEvaluated transitions the interview to its terminal evaluated state and
// stores the report. Called if and only if the evaluation job completed.
func (r *InterviewRepository) MarkEvaluated(ctx context.Context, id, report string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.InterviewStatusEvaluated,
			"report":       report,
			"evaluated_at": &now,
		}).Error
}
