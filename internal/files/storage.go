package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage subdirectories under the media root. Covers and books are the
// gated categories; gallery and staff images are served publicly.
const (
	subdirCovers  = "covers"
	subdirBooks   = "books"
	subdirGallery = "gallery"
	subdirStaff   = "staff"
)

// SavedFile describes a file written into storage.
type SavedFile struct {
	ID      string // Random identifier embedded in the filename
	Name    string // {id}{ext}
	RelPath string // {subdir}/{name}, as persisted on records
	AbsPath string
}

// Storage manages the media directory tree. File names embed a randomly
// generated identifier so they can never be guessed and never collide.
type Storage struct {
	basePath string
}

// NewStorage creates the media directory layout under basePath.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("media base path cannot be empty")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media path: %w", err)
	}

	for _, subdir := range []string{subdirCovers, subdirBooks, subdirGallery, subdirStaff} {
		if err := os.MkdirAll(filepath.Join(abs, subdir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return &Storage{basePath: abs}, nil
}

// BasePath returns the media root directory.
func (s *Storage) BasePath() string { return s.basePath }

// CoversDir returns the cover image directory root.
func (s *Storage) CoversDir() string { return filepath.Join(s.basePath, subdirCovers) }

// BooksDir returns the book PDF directory root.
func (s *Storage) BooksDir() string { return filepath.Join(s.basePath, subdirBooks) }

// GalleryDir returns the gallery image directory root.
func (s *Storage) GalleryDir() string { return filepath.Join(s.basePath, subdirGallery) }

// StaffDir returns the staff photo directory root.
func (s *Storage) StaffDir() string { return filepath.Join(s.basePath, subdirStaff) }

// SaveCover stores a cover image read from r.
func (s *Storage) SaveCover(r io.Reader, ext string) (*SavedFile, error) {
	return s.save(subdirCovers, r, ext)
}

// SavePDF stores a book PDF read from r.
func (s *Storage) SavePDF(r io.Reader, ext string) (*SavedFile, error) {
	return s.save(subdirBooks, r, ext)
}

// SaveGalleryImage stores a gallery image read from r.
func (s *Storage) SaveGalleryImage(r io.Reader, ext string) (*SavedFile, error) {
	return s.save(subdirGallery, r, ext)
}

// SaveStaffPhoto stores a staff photo read from r.
func (s *Storage) SaveStaffPhoto(r io.Reader, ext string) (*SavedFile, error) {
	return s.save(subdirStaff, r, ext)
}

func (s *Storage) save(subdir string, r io.Reader, ext string) (*SavedFile, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	id := uuid.New().String()
	name := id + ext
	absPath := filepath.Join(s.basePath, subdir, name)

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()          //nolint:errcheck // Best effort on the failure path
		_ = os.Remove(absPath) //nolint:errcheck // Best effort on the failure path
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(absPath) //nolint:errcheck // Best effort on the failure path
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return &SavedFile{
		ID:      id,
		Name:    name,
		RelPath: subdir + "/" + name,
		AbsPath: absPath,
	}, nil
}

// Resolve maps a storage-relative path (as persisted on records) back to an
// absolute path, refusing anything that escapes the media root.
func (s *Storage) Resolve(relPath string) (string, error) {
	abs, ok := containedPath(s.basePath, relPath)
	if !ok {
		return "", fmt.Errorf("path %q escapes media root", relPath)
	}
	return abs, nil
}

// Remove deletes a stored file by its storage-relative path. Removing a
// missing file is not an error.
func (s *Storage) Remove(relPath string) error {
	abs, err := s.Resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
