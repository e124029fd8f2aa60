package models

import "time"

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Password string `json:"password" validate:"min=6"`
}

type LoginResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
