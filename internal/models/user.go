package models

import "time"

type User struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	PasswordHash   string     `json:"-"` // Never expose in JSON
	Role           string     `json:"role"`
	TOTPSecret     string     `json:"-"`
	TOTPEnabled    bool       `json:"totp_enabled"`
	TOTPVerifiedAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const RoleOwner = "owner"

// RegisterRequest represents the request body for owner registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest accepts either the email or the username as identifier
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}
