// Package files implements permission-gated access to stored media files.
//
// The Gate decides, per request, whether a caller may read a stored cover
// image or book PDF, based on role and per-book/tag grants, and resolves
// the request to an on-disk path with the correct content headers. Path
// containment is verified before the filesystem or the catalog is touched.
package files

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/store"
)

// File categories. Each maps to one physical directory root.
const (
	CategoryCovers = "covers"
	CategoryBooks  = "books"
)

// Cache-Control policies per category. Covers are non-sensitive and stable
// once uploaded; PDFs carry restricted content and must be re-authorized on
// every fetch, never served from a shared cache.
const (
	CacheCoversPublic = "public, max-age=31536000, immutable"
	CacheBooksPrivate = "private, no-store"
)

// Identity is the caller's authorization context, decoded from the access
// token. A nil *Identity means the request carried no valid token.
type Identity struct {
	Role        domain.Role
	Permissions domain.Permissions
}

// Resolved is a successfully authorized file request.
type Resolved struct {
	AbsPath      string
	ContentType  string
	CacheControl string
}

// Gate authorizes and resolves file requests. It is stateless per request
// and safe for concurrent use; the store handle is shared and read-only
// from the Gate's perspective.
type Gate struct {
	store  *store.Store
	covers string
	books  string
	logger *slog.Logger
}

// NewGate creates a Gate serving files from the given storage roots.
func NewGate(st *store.Store, storage *Storage, logger *slog.Logger) *Gate {
	return &Gate{
		store:  st,
		covers: storage.CoversDir(),
		books:  storage.BooksDir(),
		logger: logger,
	}
}

// Authorize runs the full access decision for a requested file and returns
// the resolved path and headers, or a terminal error:
//
//   - Unauthorized: no identity, or the permission check fails.
//   - Validation: unknown category, or the path escapes its base directory.
//   - NotFound: no owning book, or the file is missing from disk. The two
//     cases are deliberately indistinguishable so probes cannot enumerate
//     the catalog.
//   - Internal: the catalog lookup itself failed.
//
// Admins skip the ownership and permission steps entirely.
func (g *Gate) Authorize(ctx context.Context, identity *Identity, category, rest string) (*Resolved, error) {
	// 1. Authentication. Nothing is revealed to anonymous callers, not
	// even whether the category or path is well-formed.
	if identity == nil {
		return nil, domainerrors.Unauthorized("Unauthorized")
	}

	// 2. Category resolution.
	var base, cacheControl string
	switch category {
	case CategoryCovers:
		base, cacheControl = g.covers, CacheCoversPublic
	case CategoryBooks:
		base, cacheControl = g.books, CacheBooksPrivate
	default:
		return nil, domainerrors.Validation("Invalid path")
	}

	// 3. Containment. Checked before any catalog or filesystem access.
	absPath, ok := containedPath(base, rest)
	if !ok {
		return nil, domainerrors.Validation("Invalid path")
	}

	// 4. Admin bypass: straight to serving, no ownership lookup.
	if identity.Role != domain.RoleAdmin {
		// 5. Ownership: the stored file identifier (filename without
		// extension) maps to exactly one book.
		book, err := g.lookupOwner(ctx, rest)
		if err != nil {
			return nil, err
		}

		// 6. Permission: explicit book grant or tag overlap suffices.
		if !domain.CanAccess(identity.Role, identity.Permissions, book) {
			return nil, domainerrors.Unauthorized("Unauthorized")
		}
	}

	// 7. Serve.
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.NotFound("File not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to stat file")
	}
	if info.IsDir() {
		return nil, domainerrors.NotFound("File not found")
	}

	return &Resolved{
		AbsPath:      absPath,
		ContentType:  ContentTypeForPath(absPath),
		CacheControl: cacheControl,
	}, nil
}

// lookupOwner finds the book owning the requested file by exact match on
// its stored file identifier. A missing owner is a NotFound; a failing
// catalog is an Internal error.
func (g *Gate) lookupOwner(ctx context.Context, rest string) (*domain.Book, error) {
	fileID := FileID(rest)
	if fileID == "" {
		return nil, domainerrors.NotFound("File not found")
	}

	book, err := g.store.Books.GetByIndex(ctx, "file", fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("File not found")
		}
		g.logger.Error("File ownership lookup failed", "file_id", fileID, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve file owner")
	}

	return book, nil
}

// FileID derives the stored file identifier from a request path: the final
// path element with its extension stripped.
func FileID(p string) string {
	name := filepath.Base(p)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// containedPath joins base with rest and verifies the result stays strictly
// inside base. Absolute paths and any traversal above base are rejected.
//
// The check is lexical and runs before any filesystem access. Media roots
// are written only through Storage with generated names, so they are
// trusted to contain no symlinks pointing outside the root.
func containedPath(base, rest string) (string, bool) {
	if rest == "" || filepath.IsAbs(rest) || strings.Contains(rest, "\x00") {
		return "", false
	}

	abs := filepath.Join(base, rest)
	if !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", false
	}

	return abs, true
}
