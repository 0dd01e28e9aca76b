package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateReportRequest struct {
	UserID    *uuid.UUID `json:"user_id"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Source    string     `json:"source"`
}

// UpdateReportRequest supersedes the report's status and/or detail
// versions. Nil fields are left untouched.
type UpdateReportRequest struct {
	Status    *string  `json:"status"`
	SurfaceM2 *float64 `json:"surface_m2"`
	Budget    *float64 `json:"budget"`
	CompanyID *int64   `json:"company_id"`
}

type ReportResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Source    string     `json:"source"`
	Status    string     `json:"status"`
	SurfaceM2 *float64   `json:"surface_m2,omitempty"`
	Budget    *float64   `json:"budget,omitempty"`
	CompanyID *int64     `json:"company_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

type CompanyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
