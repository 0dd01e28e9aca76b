package models

import (
	"time"

	"github.com/google/uuid"
)

// Report sources.
const (
	SourceWeb      = "WEB"
	SourceMobile   = "MOBILE"
	SourceExternal = "EXTERNAL"
)

// Report statuses carried in the report-status version payload.
const (
	StatusNew        = "NEW"
	StatusAssigned   = "ASSIGNED"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// ValidStatus reports whether code is a known report status.
func ValidStatus(code string) bool {
	switch code {
	case StatusNew, StatusAssigned, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Report is an immutable road-damage report. Its current status and repair
// detail live in AttributeVersion history keyed by the report id.
type Report struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Latitude  float64    `gorm:"not null" json:"latitude"`
	Longitude float64    `gorm:"not null" json:"longitude"`
	Source    string     `gorm:"size:20;not null;default:'WEB'" json:"source"`
	CreatedAt time.Time  `json:"created_at"`
}
