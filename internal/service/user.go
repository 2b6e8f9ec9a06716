package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/color"
	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/id"
	"github.com/schoolhub/schoolhub-server/internal/normalize"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// UserService handles admin-side user and permission management.
type UserService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a new user management service.
func NewUserService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{store: st, validator: validator, logger: logger}
}

// PermissionsRequest carries e-library grants. Book entries are decimal
// BookID strings or the "all" sentinel; tag entries are tag names or the
// sentinel.
type PermissionsRequest struct {
	Books []string `json:"books" validate:"dive,bookgrant"`
	Tags  []string `json:"tags" validate:"dive,min=1,max=80"`
}

func (p PermissionsRequest) toDomain() domain.Permissions {
	// Tag grants are normalized the same way book tags are, so a grant of
	// "Math" matches a book tagged "math".
	return domain.Permissions{Books: p.Books, Tags: normalize.Tags(p.Tags)}
}

// CreateUserRequest contains data for an admin-created account.
type CreateUserRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string             `json:"display_name" validate:"required,max=120"`
	Role        string             `json:"role" validate:"required,oneof=admin user"`
	Permissions PermissionsRequest `json:"permissions"`
}

// UpdateUserRequest contains fields an admin may change on an account.
// Nil pointers leave the field untouched.
type UpdateUserRequest struct {
	Email       *string             `json:"email" validate:"omitempty,email"`
	Password    *string             `json:"password" validate:"omitempty,min=8,max=1024"`
	DisplayName *string             `json:"display_name" validate:"omitempty,max=120"`
	Role        *string             `json:"role" validate:"omitempty,oneof=admin user"`
	Permissions *PermissionsRequest `json:"permissions"`
}

// CreateUser creates a new account.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
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
		Role:         domain.Role(req.Role),
		DisplayName:  req.DisplayName,
		AvatarColor:  color.ForUser(userID),
		Permissions:  req.Permissions.toDomain(),
	}
	user.InitTimestamps()

	if err := s.store.Users.Create(ctx, user.ID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User created", "user_id", userID, "role", user.Role)

	return sanitizeUser(user), nil
}

// GetUser returns a single account.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return sanitizeUser(user), nil
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for user, err := range s.store.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, sanitizeUser(user))
	}
	return users, nil
}

// UpdateUser applies an admin edit to an account. Permission changes take
// effect when the user next obtains an access token.
func (s *UserService) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Permissions != nil {
		if err := s.validator.Validate(*req.Permissions); err != nil {
			return nil, err
		}
	}

	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}
	if req.Permissions != nil {
		user.Permissions = req.Permissions.toDomain()
	}
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User updated", "user_id", userID)

	return sanitizeUser(user), nil
}

// DeleteUser removes an account and all of its sessions. The last admin
// account cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	if user.IsAdmin() {
		admins, err := s.countAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return domainerrors.Conflict("cannot delete the last admin account")
		}
	}

	if err := s.store.Users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	// Kill the user's sessions so the refresh tokens die with the account.
	for session, err := range s.store.Sessions.List(ctx) {
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if session.UserID != userID {
			continue
		}
		if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn("Failed to delete session of removed user",
				"user_id", userID, "session_id", session.ID, "error", err)
		}
	}

	s.logger.Info("User deleted", "user_id", userID)
	return nil
}

func (s *UserService) countAdmins(ctx context.Context) (int, error) {
	count := 0
	for user, err := range s.store.Users.List(ctx) {
		if err != nil {
			return 0, fmt.Errorf("list users: %w", err)
		}
		if user.IsAdmin() {
			count++
		}
	}
	return count, nil
}
