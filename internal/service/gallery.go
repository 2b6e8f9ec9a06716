package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/id"
	"github.com/schoolhub/schoolhub-server/internal/media/images"
	"github.com/schoolhub/schoolhub-server/internal/slug"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// GalleryService manages public photo albums.
type GalleryService struct {
	store     *store.Store
	storage   *files.Storage
	validator *validation.Validator
	logger    *slog.Logger
}

// NewGalleryService creates a new gallery service.
func NewGalleryService(st *store.Store, storage *files.Storage, validator *validation.Validator, logger *slog.Logger) *GalleryService {
	return &GalleryService{store: st, storage: storage, validator: validator, logger: logger}
}

// GalleryRequest carries the editable fields of an album.
type GalleryRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description" validate:"max=5000"`
}

// CreateGallery creates an empty album.
func (s *GalleryService) CreateGallery(ctx context.Context, req GalleryRequest) (*domain.Gallery, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	galleryID, err := id.Generate("gal")
	if err != nil {
		return nil, fmt.Errorf("generate gallery ID: %w", err)
	}

	gallery := &domain.Gallery{
		Record:      domain.Record{ID: galleryID},
		Title:       req.Title,
		Description: req.Description,
		Images:      []domain.GalleryImage{},
	}
	gallery.InitTimestamps()

	base := slug.Make(req.Title)
	if base == "" {
		base = galleryID
	}

	gallery.Slug = base
	for attempt := 2; ; attempt++ {
		err := s.store.Galleries.Create(ctx, gallery.ID, gallery)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create gallery: %w", err)
		}
		if attempt > 50 {
			return nil, domainerrors.Conflict("could not find a free slug")
		}
		gallery.Slug = fmt.Sprintf("%s-%d", base, attempt)
	}

	s.logger.Info("Gallery created", "gallery_id", galleryID, "slug", gallery.Slug)

	return gallery, nil
}

// UpdateGallery edits an album's title and description. The slug is
// stable across edits.
func (s *GalleryService) UpdateGallery(ctx context.Context, galleryID string, req GalleryRequest) (*domain.Gallery, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	gallery, err := s.getGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}

	gallery.Title = req.Title
	gallery.Description = req.Description
	gallery.Touch()

	if err := s.store.Galleries.Update(ctx, gallery.ID, gallery); err != nil {
		return nil, fmt.Errorf("update gallery: %w", err)
	}

	return gallery, nil
}

// DeleteGallery removes an album and all of its photos from disk.
func (s *GalleryService) DeleteGallery(ctx context.Context, galleryID string) error {
	gallery, err := s.getGallery(ctx, galleryID)
	if err != nil {
		return err
	}

	if err := s.store.Galleries.Delete(ctx, galleryID); err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}

	for _, img := range gallery.Images {
		if err := s.storage.Remove(img.Path); err != nil {
			s.logger.Warn("Failed to remove gallery image", "path", img.Path, "error", err)
		}
	}

	s.logger.Info("Gallery deleted", "gallery_id", galleryID)
	return nil
}

// AddImage uploads a photo into an album.
func (s *GalleryService) AddImage(ctx context.Context, galleryID string, photo *Upload, caption string) (*domain.Gallery, error) {
	if photo == nil {
		return nil, domainerrors.Validation("an image file is required")
	}
	if !isImageExt(photo.ext()) {
		return nil, domainerrors.Validation("image must be a png, jpg, gif or webp")
	}

	gallery, err := s.getGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}

	saved, err := s.storage.SaveGalleryImage(photo.Reader, photo.ext())
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	img := domain.GalleryImage{Path: saved.RelPath, Caption: caption}

	hash, err := images.ComputeBlurHash(saved.AbsPath)
	if err != nil {
		s.logger.Warn("Failed to compute image blur hash", "path", saved.RelPath, "error", err)
	} else {
		img.BlurHash = hash
	}

	gallery.Images = append(gallery.Images, img)
	gallery.Touch()

	if err := s.store.Galleries.Update(ctx, gallery.ID, gallery); err != nil {
		_ = s.storage.Remove(saved.RelPath) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("update gallery: %w", err)
	}

	s.logger.Info("Gallery image added", "gallery_id", galleryID, "path", saved.RelPath)

	return gallery, nil
}

// RemoveImage deletes a photo from an album and from disk.
func (s *GalleryService) RemoveImage(ctx context.Context, galleryID, imagePath string) (*domain.Gallery, error) {
	gallery, err := s.getGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}

	if !gallery.RemoveImage(imagePath) {
		return nil, domainerrors.NotFound("image not found in gallery")
	}

	if err := s.store.Galleries.Update(ctx, gallery.ID, gallery); err != nil {
		return nil, fmt.Errorf("update gallery: %w", err)
	}

	if err := s.storage.Remove(imagePath); err != nil {
		s.logger.Warn("Failed to remove gallery image", "path", imagePath, "error", err)
	}

	return gallery, nil
}

// GetGallery returns an album by ID.
func (s *GalleryService) GetGallery(ctx context.Context, galleryID string) (*domain.Gallery, error) {
	return s.getGallery(ctx, galleryID)
}

// GetGalleryBySlug returns an album for the public site.
func (s *GalleryService) GetGalleryBySlug(ctx context.Context, gallerySlug string) (*domain.Gallery, error) {
	gallery, err := s.store.Galleries.GetByIndex(ctx, "slug", gallerySlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("gallery not found")
		}
		return nil, fmt.Errorf("get gallery: %w", err)
	}
	return gallery, nil
}

// ListGalleries returns all albums.
func (s *GalleryService) ListGalleries(ctx context.Context) ([]*domain.Gallery, error) {
	var galleries []*domain.Gallery
	for gallery, err := range s.store.Galleries.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list galleries: %w", err)
		}
		galleries = append(galleries, gallery)
	}
	return galleries, nil
}

func (s *GalleryService) getGallery(ctx context.Context, galleryID string) (*domain.Gallery, error) {
	gallery, err := s.store.Galleries.Get(ctx, galleryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("gallery not found")
		}
		return nil, fmt.Errorf("get gallery: %w", err)
	}
	return gallery, nil
}
