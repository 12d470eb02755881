package repository

import (
	"context"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyRepository handles cached-response persistence for idempotent
// request replay.
type IdempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Lookup returns the cached response for a key, or gorm.ErrRecordNotFound.
// Expired records are never returned, even if not yet purged.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := r.db.WithContext(ctx).
		First(&rec, "key = ? AND expires_at > ?", key, time.Now()).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Record stores the first successful response for a key. A record already
// present wins: the write is first-come, never an overwrite.
func (r *IdempotencyRepository) Record(ctx context.Context, rec *domain.IdempotencyRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(rec).Error
}

// PurgeExpired deletes records past their expiry and returns how many were
// removed.
func (r *IdempotencyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&domain.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}
