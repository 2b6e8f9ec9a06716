package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	"github.com/schoolhub/schoolhub-server/internal/logger"
)

func setupIndex(t *testing.T) *BookIndex {
	t.Helper()

	idx, err := NewBookIndex(t.TempDir(), logger.Discard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, idx.Close())
	})

	return idx
}

func seedBooks(t *testing.T, idx *BookIndex) {
	t.Helper()

	books := []*domain.Book{
		{BookID: 1, Title: "Introduction to Physics", Author: "Marie Laurent", Tags: []string{"science", "physics"}, Language: "en"},
		{BookID: 2, Title: "A History of Rome", Author: "Paul Verres", Tags: []string{"history"}, Language: "en"},
		{BookID: 3, Title: "Fizika alapjai", Author: "Kiss Eszter", Tags: []string{"science"}, Language: "hu"},
	}
	require.NoError(t, idx.IndexBooks(books))
}

func TestSearchByTitle(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{Query: "physics"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "1", res.Hits[0].BookID)
	assert.Equal(t, "Introduction to Physics", res.Hits[0].Title)
}

func TestSearchByAuthor(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{Query: "Verres"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "2", res.Hits[0].BookID)
}

func TestSearchFuzzyTypo(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{Query: "physcis"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "1", res.Hits[0].BookID)

	// Capitalized typos match too; the fuzzy term is lowercased before
	// hitting the index.
	res, err = idx.Search(context.Background(), Params{Query: "Physcis"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "1", res.Hits[0].BookID)
}

func TestSearchTagFilter(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{Tags: []string{"science"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestSearchLanguageFilter(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{Language: "hu"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "3", res.Hits[0].BookID)
}

func TestSearchMatchAll(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	res, err := idx.Search(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
}

func TestDeleteBook(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	require.NoError(t, idx.DeleteBook(1))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexBookUpdates(t *testing.T) {
	idx := setupIndex(t)
	seedBooks(t, idx)

	require.NoError(t, idx.IndexBook(&domain.Book{BookID: 1, Title: "Advanced Chemistry", Author: "Marie Laurent"}))

	res, err := idx.Search(context.Background(), Params{Query: "chemistry"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "1", res.Hits[0].BookID)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
