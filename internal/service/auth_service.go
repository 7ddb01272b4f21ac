package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-tickets/internal/auth"
	"github.com/spec-kit/support-tickets/internal/domain"
	"github.com/spec-kit/support-tickets/internal/repository"
	apperrors "github.com/spec-kit/support-tickets/pkg/util/errorutil"
)

const (
	maxUsernameLength = 150
	maxNameLength     = 30
)

// TokenBlacklist records revoked refresh tokens by their jti.
type TokenBlacklist interface {
	// Blacklist returns false when jti was already revoked.
	Blacklist(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService coordinates registration, login and token rotation.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	blacklist  TokenBlacklist
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Blacklist    TokenBlacklist
	BcryptCost   int
	Logger       *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.TokenManager,
		blacklist:  deps.Blacklist,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// Register creates an active, non-admin account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *auth.TokenPair, error) {
	user := &domain.User{
		Username:  strings.TrimSpace(input.Username),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		IsActive:  true,
	}
	if err := validateRegistration(user, input.Password); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.NewConflict("username already taken", map[string]any{"username": user.Username})
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, pair, nil
}

// Login verifies credentials of an active user.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *auth.TokenPair, error) {
	user, err := s.users.GetActiveByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// refresh token is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.activeRefreshClaims(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetActiveByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found or inactive")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Logout revokes the refresh token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.activeRefreshClaims(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

func (s *AuthService) activeRefreshClaims(ctx context.Context, refreshToken string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("refresh token revoked")
	}
	return claims, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	fresh, err := s.blacklist.Blacklist(ctx, claims.ID, ttl)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	if !fresh {
		return apperrors.NewUnauthorized("refresh token revoked")
	}
	return nil
}

func validateRegistration(user *domain.User, password string) error {
	fields := map[string]any{}
	switch {
	case user.Username == "":
		fields["username"] = "required"
	case utf8.RuneCountInString(user.Username) > maxUsernameLength:
		fields["username"] = fmt.Sprintf("must be at most %d characters", maxUsernameLength)
	}
	if utf8.RuneCountInString(password) < auth.MinPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength)
	}
	if utf8.RuneCountInString(user.FirstName) > maxNameLength {
		fields["first_name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if utf8.RuneCountInString(user.LastName) > maxNameLength {
		fields["last_name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid registration", fields)
	}
	return nil
}
