package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roadwatch/backend/internal/models"
)

// Reports is the relational access surface for road-damage reports.
type Reports interface {
	// CreateWithVersions inserts the report and its initial attribute
	// versions in one transaction.
	CreateWithVersions(ctx context.Context, report *models.Report, versions []models.AttributeVersion) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListNewestFirst(ctx context.Context) ([]models.Report, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Report, error)

	// FindByUserAndCoords is the reconciliation identity match: an exact
	// (user, latitude, longitude) hit means the document was already
	// imported.
	FindByUserAndCoords(ctx context.Context, userID uuid.UUID, lat, lon float64) ([]models.Report, error)
}

type GormReports struct {
	db *gorm.DB
}

func NewReports(db *gorm.DB) *GormReports {
	return &GormReports{db: db}
}

func (r *GormReports) CreateWithVersions(ctx context.Context, report *models.Report, versions []models.AttributeVersion) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		for i := range versions {
			versions[i].SubjectID = report.ID
			if err := tx.Create(&versions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create report with versions: %w", err)
	}
	return nil
}

func (r *GormReports) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report %s: %w", id, err)
	}
	return &report, nil
}

func (r *GormReports) ListNewestFirst(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (r *GormReports) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for user %s: %w", userID, err)
	}
	return reports, nil
}

func (r *GormReports) FindByUserAndCoords(ctx context.Context, userID uuid.UUID, lat, lon float64) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND latitude = ? AND longitude = ?", userID, lat, lon).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to match report by coords: %w", err)
	}
	return reports, nil
}
