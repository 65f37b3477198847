package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrUserExists         = errors.New("username already exists")
	ErrSetupComplete      = errors.New("setup already completed")
	ErrInvalidRole        = errors.New("invalid role")
)

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"43200"`
}

// Service provides account and login logic.
type Service struct {
	store      *UserStore
	tokens     *TokenService
	bcryptCost int
	logger     *zap.Logger

	// decoyHash is compared against when the username is unknown, so a
	// failed login costs one bcrypt comparison either way.
	decoyHash func() string
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithBcryptCost sets the cost used to hash new passwords. Zero keeps the
// bcrypt default.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates an auth Service.
func NewService(store *UserStore, tokens *TokenService, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.decoyHash = sync.OnceValue(func() string {
		hash, _ := HashPassword(uuid.NewString(), s.bcryptCost)
		return hash
	})
	return s
}

// Tokens returns the token service for middleware use.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		CheckPassword(s.decoyHash(), password)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.String("username", username), zap.String("user_id", user.ID))
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// NeedsSetup reports whether no account exists yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Setup creates the first admin account. It fails once any account exists,
// including when a concurrent Setup won the race.
func (s *Service) Setup(ctx context.Context, username, name, password string) (*User, error) {
	needed, err := s.NeedsSetup(ctx)
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, ErrSetupComplete
	}
	user, err := s.newUser(username, name, password, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateFirstUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("initial admin account created", zap.String("username", user.Username))
	return user, nil
}

// CreateUser adds an account with the given role.
func (s *Service) CreateUser(ctx context.Context, username, name, password string, role Role) (*User, error) {
	user, err := s.newUser(username, name, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("account created", zap.String("username", user.Username), zap.String("role", string(role)))
	return user, nil
}

func (s *Service) newUser(username, name, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}
