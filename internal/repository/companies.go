package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/roadwatch/backend/internal/models"
)

// Companies is the relational access surface for repair contractors.
type Companies interface {
	Create(ctx context.Context, c *models.Company) error
	FindByID(ctx context.Context, id int64) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
}

type GormCompanies struct {
	db *gorm.DB
}

func NewCompanies(db *gorm.DB) *GormCompanies {
	return &GormCompanies{db: db}
}

func (r *GormCompanies) Create(ctx context.Context, c *models.Company) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: company %s", ErrDuplicate, c.Name)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (r *GormCompanies) FindByID(ctx context.Context, id int64) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company %d: %w", id, err)
	}
	return &company, nil
}

func (r *GormCompanies) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.WithContext(ctx).Order("name asc").Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}
