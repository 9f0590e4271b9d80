package auth

import domain "catalog/backend/internal/domain/auth"

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	Generate(user *domain.User) (string, error)
	// Validate returns the user id carried by a valid token.
	Validate(token string) (string, error)
}
