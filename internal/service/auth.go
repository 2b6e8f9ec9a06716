package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/color"
	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/id"
	"github.com/schoolhub/schoolhub-server/internal/ratelimit"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// AuthService handles setup, login, token refresh and logout.
type AuthService struct {
	store        *store.Store
	tokens       *auth.TokenService
	validator    *validation.Validator
	loginLimiter *ratelimit.KeyedRateLimiter
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	st *store.Store,
	tokens *auth.TokenService,
	validator *validation.Validator,
	loginLimiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:        st,
		tokens:       tokens,
		validator:    validator,
		loginLimiter: loginLimiter,
		logger:       logger,
	}
}

// SetupRequest contains the initial admin user creation data.
type SetupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=120"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"` // Extracted from request by handler
	UserAgent string `json:"-"`
}

// RefreshRequest contains the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// Setup creates the first admin user. It can only be used once, before any
// users exist.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	empty, err := s.noUsersExist(ctx)
	if err != nil {
		return nil, fmt.Errorf("check setup status: %w", err)
	}
	if !empty {
		return nil, domainerrors.AlreadyConfigured("server is already configured")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Record:       domain.Record{ID: userID},
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin, // First user is always admin
		DisplayName:  req.DisplayName,
		AvatarColor:  color.ForUser(userID),
		LastLoginAt:  time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.Users.Create(ctx, user.ID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("Server setup complete", "user_id", userID, "email", user.Email)

	return s.issueTokens(ctx, user, "", "")
}

// Login authenticates a user and creates a new session. Attempts are rate
// limited per client IP.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.IPAddress != "" && !s.loginLimiter.Allow(req.IPAddress) {
		s.logger.Warn("Login rate limit exceeded", "ip", req.IPAddress)
		return nil, domainerrors.InvalidCredentials("too many login attempts, try again later")
	}

	user, err := s.store.Users.GetByIndex(ctx, "email", req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		// Log but don't fail login.
		s.logger.Warn("Failed to update last login time", "user_id", user.ID, "error", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return s.issueTokens(ctx, user, req.IPAddress, req.UserAgent)
}

// Refresh rotates the refresh token and issues a fresh access token.
// The access token is rebuilt from the current user record, so permission
// changes take effect here at the latest.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.store.Sessions.GetByIndex(ctx, "token", auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if session.IsExpired() {
		if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn("Failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, domainerrors.TokenExpired("session expired, log in again")
	}

	user, err := s.store.Users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// User was deleted; the session is dead.
			if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
				s.logger.Warn("Failed to delete orphaned session", "session_id", session.ID, "error", err)
			}
			return nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	newRefresh, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session.RefreshTokenHash = auth.HashRefreshToken(newRefresh)
	session.ExpiresAt = time.Now().Add(s.tokens.RefreshTokenDuration())
	session.Touch()
	if req.IPAddress != "" {
		session.IPAddress = req.IPAddress
	}
	if req.UserAgent != "" {
		session.UserAgent = req.UserAgent
	}

	if err := s.store.Sessions.Update(ctx, session.ID, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenDuration()),
	}, nil
}

// Logout deletes the session belonging to the given refresh token.
// Logging out an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.store.Sessions.GetByIndex(ctx, "token", auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info("User logged out", "user_id", session.UserID)
	return nil
}

// VerifyAccessToken validates a raw token string and returns its claims.
func (s *AuthService) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	return s.tokens.VerifyAccessToken(token)
}

// CleanupExpiredSessions removes sessions past their expiry. Returns the
// number of sessions removed.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	removed := 0
	for session, err := range s.store.Sessions.List(ctx) {
		if err != nil {
			return removed, fmt.Errorf("list sessions: %w", err)
		}
		if !session.IsExpired() {
			continue
		}
		if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
			return removed, fmt.Errorf("delete session %s: %w", session.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Cleaned up expired sessions", "count", removed)
	}
	return removed, nil
}

// issueTokens creates a session and the token pair for a logged-in user.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User, ipAddress, userAgent string) (*AuthResponse, error) {
	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionID, err := id.Generate("sess")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokens.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
	}

	if err := s.store.Sessions.Create(ctx, session.ID, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokens.AccessTokenDuration()),
	}, nil
}

// noUsersExist reports whether the user collection is empty.
func (s *AuthService) noUsersExist(ctx context.Context) (bool, error) {
	for _, err := range s.store.Users.List(ctx) {
		if err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// sanitizeUser strips secrets from a user record before it leaves the
// service layer.
func sanitizeUser(user *domain.User) *domain.User {
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
