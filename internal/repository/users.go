package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/version"
)

// ErrDuplicate means a unique constraint (email, external id) rejected the
// write. Callers racing on creation re-query and adopt the winner.
var ErrDuplicate = errors.New("duplicate row")

// Users is the relational access surface for user identities. Find methods
// return (nil, nil) when no row matches.
type Users interface {
	Create(ctx context.Context, u *models.User) error

	// CreateWithVersions inserts the user and its initial attribute
	// versions in one transaction. SubjectID on each version is filled
	// from the created user.
	CreateWithVersions(ctx context.Context, u *models.User, versions []models.AttributeVersion) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// ListByCurrentState returns users whose open state version carries
	// the given state code.
	ListByCurrentState(ctx context.Context, state string) ([]models.User, error)
}

type GormUsers struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (r *GormUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormUsers) CreateWithVersions(ctx context.Context, u *models.User, versions []models.AttributeVersion) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		for i := range versions {
			versions[i].SubjectID = u.ID
			if err := tx.Create(&versions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, u.Email)
		}
		return fmt.Errorf("failed to create user with versions: %w", err)
	}
	return nil
}

func (r *GormUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return &user, nil
}

func (r *GormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *GormUsers) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by external id: %w", err)
	}
	return &user, nil
}

func (r *GormUsers) ListByCurrentState(ctx context.Context, state string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN attribute_versions av ON av.subject_id = users.id").
		Where("av.kind = ? AND av.valid_to IS NULL AND av.payload ->> 'state' = ?", version.KindUserState, state).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users by state %s: %w", state, err)
	}
	return users, nil
}
