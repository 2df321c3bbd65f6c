package model

import "time"

// User is a registered farmer account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	Token        *string   `json:"-" db:"token"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RegisterRequest represents a registration form
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse reports the outcome of a registration
type RegisterResponse struct {
	User      *User  `json:"user"`
	EmailSent bool   `json:"email_sent"`
	Message   string `json:"message"`
}

// LoginRequest represents a login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token for subsequent requests
type LoginResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}
