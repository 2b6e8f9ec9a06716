package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/id"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// StaffService manages the public teacher directory.
type StaffService struct {
	store     *store.Store
	storage   *files.Storage
	validator *validation.Validator
	logger    *slog.Logger
}

// NewStaffService creates a new staff directory service.
func NewStaffService(st *store.Store, storage *files.Storage, validator *validation.Validator, logger *slog.Logger) *StaffService {
	return &StaffService{store: st, storage: storage, validator: validator, logger: logger}
}

// StaffRequest carries the editable fields of a staff member.
type StaffRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Subject  string `json:"subject" validate:"max=200"`
	Position string `json:"position" validate:"max=200"`
	Bio      string `json:"bio" validate:"max=5000"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CreateStaff adds a staff member, with an optional photo upload.
func (s *StaffService) CreateStaff(ctx context.Context, req StaffRequest, photo *Upload) (*domain.StaffMember, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	memberID, err := id.Generate("staff")
	if err != nil {
		return nil, fmt.Errorf("generate staff ID: %w", err)
	}

	member := &domain.StaffMember{
		Record:   domain.Record{ID: memberID},
		Name:     req.Name,
		Subject:  req.Subject,
		Position: req.Position,
		Bio:      req.Bio,
		Email:    req.Email,
	}
	member.InitTimestamps()

	if photo != nil {
		if !isImageExt(photo.ext()) {
			return nil, domainerrors.Validation("photo must be a png, jpg, gif or webp image")
		}
		saved, err := s.storage.SaveStaffPhoto(photo.Reader, photo.ext())
		if err != nil {
			return nil, fmt.Errorf("store photo: %w", err)
		}
		member.PhotoPath = saved.RelPath
	}

	if err := s.store.Staff.Create(ctx, member.ID, member); err != nil {
		if member.PhotoPath != "" {
			_ = s.storage.Remove(member.PhotoPath) //nolint:errcheck // Best effort cleanup
		}
		return nil, fmt.Errorf("create staff member: %w", err)
	}

	s.logger.Info("Staff member created", "staff_id", memberID, "name", member.Name)

	return member, nil
}

// UpdateStaff edits a staff member, optionally replacing the photo.
func (s *StaffService) UpdateStaff(ctx context.Context, memberID string, req StaffRequest, photo *Upload) (*domain.StaffMember, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	member, err := s.getStaff(ctx, memberID)
	if err != nil {
		return nil, err
	}

	member.Name = req.Name
	member.Subject = req.Subject
	member.Position = req.Position
	member.Bio = req.Bio
	member.Email = req.Email

	oldPhoto := ""
	if photo != nil {
		if !isImageExt(photo.ext()) {
			return nil, domainerrors.Validation("photo must be a png, jpg, gif or webp image")
		}
		saved, err := s.storage.SaveStaffPhoto(photo.Reader, photo.ext())
		if err != nil {
			return nil, fmt.Errorf("store photo: %w", err)
		}
		oldPhoto = member.PhotoPath
		member.PhotoPath = saved.RelPath
	}

	member.Touch()

	if err := s.store.Staff.Update(ctx, member.ID, member); err != nil {
		return nil, fmt.Errorf("update staff member: %w", err)
	}

	if oldPhoto != "" {
		if err := s.storage.Remove(oldPhoto); err != nil {
			s.logger.Warn("Failed to remove replaced photo", "path", oldPhoto, "error", err)
		}
	}

	s.logger.Info("Staff member updated", "staff_id", memberID)

	return member, nil
}

// DeleteStaff removes a staff member and their photo.
func (s *StaffService) DeleteStaff(ctx context.Context, memberID string) error {
	member, err := s.getStaff(ctx, memberID)
	if err != nil {
		return err
	}

	if err := s.store.Staff.Delete(ctx, memberID); err != nil {
		return fmt.Errorf("delete staff member: %w", err)
	}

	if member.PhotoPath != "" {
		if err := s.storage.Remove(member.PhotoPath); err != nil {
			s.logger.Warn("Failed to remove staff photo", "path", member.PhotoPath, "error", err)
		}
	}

	s.logger.Info("Staff member deleted", "staff_id", memberID)
	return nil
}

// GetStaff returns a single staff member.
func (s *StaffService) GetStaff(ctx context.Context, memberID string) (*domain.StaffMember, error) {
	return s.getStaff(ctx, memberID)
}

// ListStaff returns the directory sorted by name.
func (s *StaffService) ListStaff(ctx context.Context) ([]*domain.StaffMember, error) {
	var members []*domain.StaffMember
	for member, err := range s.store.Staff.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list staff: %w", err)
		}
		members = append(members, member)
	}

	slices.SortFunc(members, func(a, b *domain.StaffMember) int {
		return strings.Compare(a.Name, b.Name)
	})

	return members, nil
}

func (s *StaffService) getStaff(ctx context.Context, memberID string) (*domain.StaffMember, error) {
	member, err := s.store.Staff.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("staff member not found")
		}
		return nil, fmt.Errorf("get staff member: %w", err)
	}
	return member, nil
}
