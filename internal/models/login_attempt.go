package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is one row of the append-only authentication log. UserID is
// nil when the submitted email matched no account. Rows are never updated
// or deleted.
type LoginAttempt struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AttemptedAt time.Time  `gorm:"not null;index" json:"attempted_at"`
	Succeeded   bool       `gorm:"not null" json:"succeeded"`
}
