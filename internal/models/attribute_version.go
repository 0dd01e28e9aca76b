package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AttributeVersion is one row of an entity's attribute history. For a given
// (kind, subject) at most one row has ValidTo = NULL; that row is the current
// value. Closed rows are immutable.
type AttributeVersion struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SubjectID uuid.UUID         `gorm:"type:uuid;not null;index:idx_attr_versions_subject" json:"subject_id"`
	Kind      string            `gorm:"size:32;not null;index:idx_attr_versions_subject" json:"kind"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null" json:"payload"`
	ValidFrom time.Time         `gorm:"not null" json:"valid_from"`
	ValidTo   *time.Time        `gorm:"index" json:"valid_to"`
}
