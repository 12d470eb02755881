package repository

import (
	"context"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles user and usage-counter persistence.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save persists the full user record.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// IncrementUsage applies the reset-if-stale-then-increment mutation for one
// feature counter inside a transaction. Counters only ever go up within a
// month; a month rollover zeroes them first.
func (r *UserRepository) IncrementUsage(ctx context.Context, userID string, feature domain.Feature) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		user.Usage.Normalize(time.Now())
		user.Usage.Add(feature)
		return tx.Model(&user).Select("usage_interviews", "usage_ats_checks", "usage_resume_generations", "usage_month").
			Updates(map[string]interface{}{
				"usage_interviews":         user.Usage.Interviews,
				"usage_ats_checks":         user.Usage.ATSChecks,
				"usage_resume_generations": user.Usage.ResumeGenerations,
				"usage_month":              user.Usage.Month,
			}).Error
	})
}
