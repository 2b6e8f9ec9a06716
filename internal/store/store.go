// Package store persists domain entities in a Badger key-value database.
//
// The Store is constructed once at startup, injected where needed, and safe
// for concurrent use across requests. It is never recreated per request.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/schoolhub/schoolhub-server/internal/domain"
)

// bookIDBandwidth controls how many sequence values Badger leases at a time.
// Leased-but-unused values are lost on restart, which leaves gaps in BookIDs.
// Gaps are fine (IDs must be unique and monotonic, not dense), but a small
// bandwidth keeps them rare.
const bookIDBandwidth = 8

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities.
	Users     *Entity[domain.User]
	Books     *Entity[domain.Book]
	News      *Entity[domain.NewsItem]
	Staff     *Entity[domain.StaffMember]
	Galleries *Entity[domain.Gallery]
	Sessions  *Entity[domain.Session]

	// Monotonic BookID allocator. Values are never reused, even after
	// deletes or restarts.
	bookSeq *badger.Sequence
}

// New opens (or creates) the database at path and initializes the entities.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte("seq:bookid"), bookIDBandwidth)
	if err != nil {
		_ = db.Close() //nolint:errcheck // Already failing, nothing more to do with a close error
		return nil, fmt.Errorf("failed to open book id sequence: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  logger,
		bookSeq: seq,
	}

	s.initEntities()

	if logger != nil {
		logger.Info("Badger database opened", "path", path)
	}

	return s, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	if err := s.bookSeq.Release(); err != nil {
		_ = s.db.Close() //nolint:errcheck // Report the first error
		return fmt.Errorf("release book id sequence: %w", err)
	}
	return s.db.Close()
}

// NextBookID allocates the next BookID. IDs start at 1 and only grow.
func (s *Store) NextBookID() (int, error) {
	n, err := s.bookSeq.Next()
	if err != nil {
		return 0, fmt.Errorf("next book id: %w", err)
	}
	//nolint:gosec // Sequence values stay far below MaxInt for any school library
	return int(n) + 1, nil
}

// initEntities wires up the generic entities and their secondary indexes.
func (s *Store) initEntities() {
	// Users are looked up by email at login; the index is case-insensitive.
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail,
		)

	// Books are looked up by stored file identifier when the file gate
	// resolves ownership. A book owns up to two file ids (pdf + cover),
	// each mapping to exactly one book.
	s.Books = NewEntity[domain.Book](s, "book:").
		WithIndex("file", func(b *domain.Book) []string {
			return b.FileIDs()
		})

	// News articles are addressed by slug on the public site.
	s.News = NewEntity[domain.NewsItem](s, "news:").
		WithIndex("slug", func(n *domain.NewsItem) []string {
			return []string{n.Slug}
		})

	s.Staff = NewEntity[domain.StaffMember](s, "staff:")

	s.Galleries = NewEntity[domain.Gallery](s, "gallery:").
		WithIndex("slug", func(g *domain.Gallery) []string {
			return []string{g.Slug}
		})

	// Sessions are found by refresh token hash.
	s.Sessions = NewEntity[domain.Session](s, "session:").
		WithIndex("token", func(sess *domain.Session) []string {
			return []string{sess.RefreshTokenHash}
		})
}

// normalizeEmail lowercases and trims an email address for index lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
