package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success           bool         `json:"success"`
	Message           string       `json:"message"`
	AccessToken       string       `json:"access_token,omitempty"`
	User              UserResponse `json:"user,omitempty"`
	RemainingAttempts *int         `json:"remaining_attempts,omitempty"`
}

type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Role       string    `json:"role"`
	State      string    `json:"state"`
	AuthSource string    `json:"auth_source"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	DocStore  string `json:"doc_store"`
}
