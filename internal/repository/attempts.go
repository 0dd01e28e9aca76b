package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roadwatch/backend/internal/models"
)

// Attempts is the append-only login attempt log.
type Attempts interface {
	Append(ctx context.Context, attempt *models.LoginAttempt) error

	// ListByUserNewestFirst returns the user's attempts ordered most
	// recent first, for consecutive-failure counting.
	ListByUserNewestFirst(ctx context.Context, userID uuid.UUID) ([]models.LoginAttempt, error)
}

type GormAttempts struct {
	db *gorm.DB
}

func NewAttempts(db *gorm.DB) *GormAttempts {
	return &GormAttempts{db: db}
}

func (r *GormAttempts) Append(ctx context.Context, attempt *models.LoginAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to append login attempt: %w", err)
	}
	return nil
}

func (r *GormAttempts) ListByUserNewestFirst(ctx context.Context, userID uuid.UUID) ([]models.LoginAttempt, error) {
	var attempts []models.LoginAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attempted_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	return attempts, nil
}
