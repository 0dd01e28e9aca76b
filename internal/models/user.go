package models

import (
	"time"

	"github.com/google/uuid"
)

// Auth sources for User.AuthSource.
const (
	AuthSourceLocal    = "LOCAL"
	AuthSourceExternal = "EXTERNAL"
)

// Account states carried in the user-state version payload.
const (
	StateActive   = "ACTIVE"
	StateInactive = "INACTIVE"
	StateBlocked  = "BLOCKED"
)

// Roles carried in the user-role version payload.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is the immutable identity row. Everything mutable about a user
// (profile, role, account state, credential) lives in AttributeVersion
// history keyed by the user id.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email      string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	AuthSource string    `gorm:"size:20;not null;default:'LOCAL'" json:"auth_source"`
	ExternalID *string   `gorm:"size:128;uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
