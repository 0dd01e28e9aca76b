package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roadwatch/backend/internal/models"
)

// GormStore persists attribute versions in the attribute_versions table.
// Supersede runs close-then-open in one transaction serialized per
// (kind, subject) by a transaction-scoped advisory lock: a row lock on the
// open row alone is not enough, since two first-assignment supersedes have
// no row to contend on, and under read committed a waiter can wake to a
// snapshot where the closed row is gone and the new open row is not yet
// visible. The partial unique index on open rows (see database.Migrate)
// backstops any writer that skips the lock.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Open(ctx context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error {
	row := models.AttributeVersion{
		SubjectID: subject,
		Kind:      kind,
		Payload:   datatypes.JSONMap(payload),
		ValidFrom: at,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapOpenErr(kind, subject, err)
	}
	return nil
}

func (s *GormStore) Close(ctx context.Context, kind string, subject uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenRows(tx, kind, subject)
		if err != nil {
			return err
		}
		switch len(open) {
		case 0:
			return ErrNoOpenVersion
		case 1:
			return closeRow(tx, &open[0], at)
		default:
			return fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
		}
	})
}

func (s *GormStore) Current(ctx context.Context, kind string, subject uuid.UUID) (*Row, error) {
	var open []models.AttributeVersion
	err := s.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ? AND valid_to IS NULL", kind, subject).
		Find(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read current %s version: %w", kind, err)
	}
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		r := toRow(open[0])
		return &r, nil
	default:
		return nil, fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
	}
}

func (s *GormStore) Supersede(ctx context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSubject(tx, kind, subject); err != nil {
			return err
		}
		open, err := lockOpenRows(tx, kind, subject)
		if err != nil {
			return err
		}
		switch len(open) {
		case 0:
			// First assignment for this subject.
		case 1:
			if err := closeRow(tx, &open[0], at); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
		}
		row := models.AttributeVersion{
			SubjectID: subject,
			Kind:      kind,
			Payload:   datatypes.JSONMap(payload),
			ValidFrom: at,
		}
		if err := tx.Create(&row).Error; err != nil {
			return wrapOpenErr(kind, subject, err)
		}
		return nil
	})
}

func (s *GormStore) History(ctx context.Context, kind string, subject uuid.UUID) ([]Row, error) {
	var rows []models.AttributeVersion
	err := s.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ?", kind, subject).
		Order("valid_from asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s history: %w", kind, err)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = toRow(r)
	}
	return out, nil
}

// lockSubject serializes writers on (kind, subject) for the rest of the
// transaction. Advisory locks cover the zero-open-row case, where there is
// no row to lock FOR UPDATE.
func lockSubject(tx *gorm.DB, kind string, subject uuid.UUID) error {
	err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(? || '/' || ?))", kind, subject.String()).Error
	if err != nil {
		return fmt.Errorf("failed to lock subject %s/%s: %w", kind, subject, err)
	}
	return nil
}

// wrapOpenErr maps a violation of the one-open-row partial unique index to
// ErrConsistency: a second open row was about to exist.
func wrapOpenErr(kind string, subject uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: concurrent open row for %s/%s", ErrConsistency, kind, subject)
	}
	return fmt.Errorf("failed to open %s version: %w", kind, err)
}

func lockOpenRows(tx *gorm.DB, kind string, subject uuid.UUID) ([]models.AttributeVersion, error) {
	var open []models.AttributeVersion
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND subject_id = ? AND valid_to IS NULL", kind, subject).
		Find(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock open rows for %s/%s: %w", kind, subject, err)
	}
	return open, nil
}

func closeRow(tx *gorm.DB, row *models.AttributeVersion, at time.Time) error {
	return tx.Model(row).Update("valid_to", at).Error
}

func toRow(m models.AttributeVersion) Row {
	return Row{
		SubjectID: m.SubjectID,
		Kind:      m.Kind,
		Payload:   map[string]any(m.Payload),
		ValidFrom: m.ValidFrom,
		ValidTo:   m.ValidTo,
	}
}
