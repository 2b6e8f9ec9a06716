package service

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/ratelimit"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// testEnv bundles the shared dependencies the services are built from.
type testEnv struct {
	store   *store.Store
	storage *files.Storage
	index   *search.BookIndex
	tokens  *auth.TokenService

	auth    *AuthService
	users   *UserService
	books   *BookService
	news    *NewsService
	staff   *StaffService
	gallery *GalleryService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	log := logger.Discard().Logger

	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	storage, err := files.NewStorage(t.TempDir())
	require.NoError(t, err)

	index, err := search.NewBookIndex(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, index.Close())
	})

	key := hex.EncodeToString(make([]byte, 32))
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	v := validation.New()

	return &testEnv{
		store:   st,
		storage: storage,
		index:   index,
		tokens:  tokens,
		auth:    NewAuthService(st, tokens, v, limiter, log),
		users:   NewUserService(st, v, log),
		books:   NewBookService(st, storage, index, v, log),
		news:    NewNewsService(st, v, log),
		staff:   NewStaffService(st, storage, v, log),
		gallery: NewGalleryService(st, storage, v, log),
	}
}
