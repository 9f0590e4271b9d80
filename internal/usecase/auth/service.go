package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "catalog/backend/internal/domain/auth"
	"catalog/backend/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service coordinates dashboard sign-in between domain and infrastructure.
type Service struct {
	users   domain.UserRepository
	tokens  TokenManager
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens TokenManager, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		logger:  logging.OrNop(logger).Named("auth"),
		nowFunc: time.Now,
	}
}

// EnsureAdmin makes sure an admin account exists for email. A missing account is created
// with the given password; an existing non-admin account is promoted and keeps its password.
// An empty email is a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		existing.Role = domain.RoleAdmin
		existing.UpdatedAt = s.nowFunc().UTC()
		if err := s.users.UpdateRole(ctx, existing); err != nil {
			return err
		}
		s.logger.Info("promoted user to admin", zap.String("email", email))
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return err
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return errors.New("admin password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleAdmin,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil
		}
		return err
	}
	s.logger.Info("created admin account", zap.String("email", email))
	return nil
}

// Login checks the dashboard credentials and issues a signed token for the account.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.User, error) {
	user, err := s.authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.logger.Info("rejected sign-in", zap.String("email", creds.Email))
		}
		return "", nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, sanitizeUser(user), nil
}

// authenticate resolves the account for creds. Unknown emails and wrong passwords
// both surface as ErrInvalidCredentials.
func (s *Service) authenticate(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	password := strings.TrimSpace(creds.Password)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// VerifyToken returns the account a bearer token was issued to. Tokens for deleted
// accounts are treated as invalid.
func (s *Service) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.tokens.Validate(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	user, err := s.users.GetByID(ctx, subject)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrTokenInvalid
	case err != nil:
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Authorize resolves the token owner and requires the admin role.
func (s *Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}
