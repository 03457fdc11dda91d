package model

import "time"

// User represents a user account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	PasswordHash string    `json:"-"` // Do not expose password hash in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the name carried in issued tokens
func (u *User) DisplayName() string {
	if u.FirstName == nil {
		return ""
	}
	return *u.FirstName
}

// CreateUserRequest is the payload for creating a user and for replacing one by ID
type CreateUserRequest struct {
	Username  string  `json:"username" validate:"required,min=1"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  string  `json:"password" validate:"required,min=6"`
}

// LoginRequest is the payload for POST /login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=6"`
}
