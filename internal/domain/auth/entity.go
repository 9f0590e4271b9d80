package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden indicates the user lacks the role required for the operation.
	ErrForbidden = errors.New("admin privileges required")
)

// UserRole identifies the privileges assigned to a user.
type UserRole string

const (
	// RoleUser can sign in but not modify the catalog.
	RoleUser UserRole = "user"
	// RoleAdmin may create, update and delete products.
	RoleAdmin UserRole = "admin"
)

// User models an account allowed to sign in to the admin dashboard.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may modify the catalog.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
