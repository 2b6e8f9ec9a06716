package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	"github.com/schoolhub/schoolhub-server/internal/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir(), logger.Discard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func TestEntityCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	staff := &domain.StaffMember{
		Name:    "Anna Kovacs",
		Subject: "Mathematics",
	}
	staff.Record.ID = "stf_1"

	require.NoError(t, s.Staff.Create(ctx, staff.ID, staff))

	got, err := s.Staff.Get(ctx, "stf_1")
	require.NoError(t, err)
	assert.Equal(t, "Anna Kovacs", got.Name)

	got.Subject = "Physics"
	require.NoError(t, s.Staff.Update(ctx, got.ID, got))

	got, err = s.Staff.Get(ctx, "stf_1")
	require.NoError(t, err)
	assert.Equal(t, "Physics", got.Subject)

	require.NoError(t, s.Staff.Delete(ctx, "stf_1"))

	_, err = s.Staff.Get(ctx, "stf_1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, s.Staff.Delete(ctx, "stf_1"))
}

func TestEntityCreateDuplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	staff := &domain.StaffMember{Name: "Dup"}
	staff.Record.ID = "stf_dup"

	require.NoError(t, s.Staff.Create(ctx, staff.ID, staff))
	assert.ErrorIs(t, s.Staff.Create(ctx, staff.ID, staff), ErrAlreadyExists)
}

func TestEntityGetByIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := &domain.User{
		Email: "Teacher@School.org",
		Role:  domain.RoleUser,
	}
	user.Record.ID = "usr_1"

	require.NoError(t, s.Users.Create(ctx, user.ID, user))

	// Email lookups are case-insensitive.
	got, err := s.Users.GetByIndex(ctx, "email", "teacher@school.org")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", got.ID)

	got, err = s.Users.GetByIndex(ctx, "email", "  TEACHER@SCHOOL.ORG  ")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", got.ID)

	_, err = s.Users.GetByIndex(ctx, "email", "nobody@school.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityIndexConflict(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := &domain.User{Email: "shared@school.org", Role: domain.RoleUser}
	first.Record.ID = "usr_a"
	require.NoError(t, s.Users.Create(ctx, first.ID, first))

	second := &domain.User{Email: "SHARED@school.org", Role: domain.RoleUser}
	second.Record.ID = "usr_b"
	assert.ErrorIs(t, s.Users.Create(ctx, second.ID, second), ErrAlreadyExists)
}

func TestEntityUpdateReindexes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := &domain.Book{
		BookID:    7,
		Title:     "Algebra I",
		PDFFileID: "aaaa-1111",
	}
	book.Record.ID = "7"

	require.NoError(t, s.Books.Create(ctx, book.ID, book))

	got, err := s.Books.GetByIndex(ctx, "file", "aaaa-1111")
	require.NoError(t, err)
	assert.Equal(t, 7, got.BookID)

	// Replacing the file moves the index entry.
	got.PDFFileID = "bbbb-2222"
	require.NoError(t, s.Books.Update(ctx, got.ID, got))

	_, err = s.Books.GetByIndex(ctx, "file", "aaaa-1111")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.Books.GetByIndex(ctx, "file", "bbbb-2222")
	require.NoError(t, err)
	assert.Equal(t, 7, got.BookID)
}

func TestEntityDeleteCleansIndexes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := &domain.Book{BookID: 3, PDFFileID: "cccc-3333", CoverFileID: "dddd-4444"}
	book.Record.ID = "3"

	require.NoError(t, s.Books.Create(ctx, book.ID, book))
	require.NoError(t, s.Books.Delete(ctx, book.ID))

	_, err := s.Books.GetByIndex(ctx, "file", "cccc-3333")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Books.GetByIndex(ctx, "file", "dddd-4444")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		book := &domain.Book{Title: "Book " + id}
		book.Record.ID = id
		require.NoError(t, s.Books.Create(ctx, id, book))
	}

	all, err := s.Books.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Early termination.
	count := 0
	for _, err := range s.Books.List(ctx) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNextBookID(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.NextBookID()
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := s.NextBookID()
	require.NoError(t, err)
	assert.Greater(t, second, first)
}
