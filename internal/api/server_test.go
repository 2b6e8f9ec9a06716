package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json/v2"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/ratelimit"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// setupTestServer creates a server wired against temp-dir storage.
func setupTestServer(t *testing.T) *Server {
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

	authService := service.NewAuthService(st, tokens, v, limiter, log)
	userService := service.NewUserService(st, v, log)
	bookService := service.NewBookService(st, storage, index, v, log)
	newsService := service.NewNewsService(st, v, log)
	staffService := service.NewStaffService(st, storage, v, log)
	galleryService := service.NewGalleryService(st, storage, v, log)
	gate := files.NewGate(st, storage, log)

	return NewServer(st, authService, userService, bookService, newsService, staffService, galleryService, gate, storage, []string{"*"}, log)
}

// setupAdmin runs first-time setup and returns the admin's access token.
func setupAdmin(t *testing.T, server *Server) string {
	t.Helper()

	result, err := server.authService.Setup(context.Background(), service.SetupRequest{
		Email:       "head@school.example",
		Password:    "correct horse battery",
		DisplayName: "Head Teacher",
	})
	require.NoError(t, err)

	return result.AccessToken
}

// createUserToken creates a regular user with the given grants and logs
// them in, returning the access token.
func createUserToken(t *testing.T, server *Server, email string, books, tags []string) string {
	t.Helper()

	ctx := context.Background()

	_, err := server.userService.CreateUser(ctx, service.CreateUserRequest{
		Email:       email,
		Password:    "student password",
		DisplayName: "Student",
		Role:        "user",
		Permissions: service.PermissionsRequest{Books: books, Tags: tags},
	})
	require.NoError(t, err)

	result, err := server.authService.Login(ctx, service.LoginRequest{
		Email:     email,
		Password:  "student password",
		IPAddress: "127.0.0.1",
	})
	require.NoError(t, err)

	return result.AccessToken
}

func pdfUpload() *service.Upload {
	return &service.Upload{Reader: strings.NewReader("%PDF-1.4 test content"), Filename: "book.pdf"}
}

func coverUpload(t *testing.T) *service.Upload {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := range 10 {
		for x := range 10 {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return &service.Upload{Reader: &buf, Filename: "cover.png"}
}

// doRequest performs a request against the server, optionally with a
// bearer token.
func doRequest(server *Server, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func doJSONRequest(server *Server, method, target, token string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()

	var result response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	w := doRequest(server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	result := decodeEnvelope(t, w)
	assert.True(t, result.Success)
}

func TestFileGateRequiresAuthentication(t *testing.T) {
	server := setupTestServer(t)

	// Every unauthenticated request gets the same answer, valid path or
	// not, so probes learn nothing.
	for _, target := range []string{
		"/files/books/abc123.pdf",
		"/files/covers/abc123.jpg",
		"/files/nope/abc123.pdf",
		"/files/books/../../etc/passwd",
	} {
		w := doRequest(server, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "target %s", target)
		assert.Equal(t, "Unauthorized", strings.TrimSpace(w.Body.String()), "target %s", target)
	}

	// Garbage tokens are the same as no token.
	w := doRequest(server, http.MethodGet, "/files/books/abc123.pdf", "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFileGateRejectsBadPaths(t *testing.T) {
	server := setupTestServer(t)
	adminToken := setupAdmin(t, server)

	for _, target := range []string{
		"/files/uploads/abc123.pdf",
		"/files/books/..%2f..%2fetc%2fpasswd",
	} {
		w := doRequest(server, http.MethodGet, target, adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code, "target %s", target)
		assert.Equal(t, "Invalid path", strings.TrimSpace(w.Body.String()), "target %s", target)
	}
}

func TestFileGateScenario(t *testing.T) {
	server := setupTestServer(t)
	setupAdmin(t, server)
	ctx := context.Background()

	book, err := server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Algebra Basics",
		Tags:  []string{"math"},
	}, pdfUpload(), coverUpload(t))
	require.NoError(t, err)

	granted := createUserToken(t, server, "granted@school.example", nil, []string{"math"})
	denied := createUserToken(t, server, "denied@school.example", nil, []string{"history"})

	pdfURL := "/files/books/" + book.PDFFileID + ".pdf"
	coverURL := "/files/covers/" + book.CoverFileID + ".png"

	// Tag grant covers the book: full serve with private caching.
	w := doRequest(server, http.MethodGet, pdfURL, granted)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	// Covers are long-cacheable: the stored name changes when the image does.
	w = doRequest(server, http.MethodGet, coverURL, granted)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))

	// No matching grant: denied without revealing the book exists.
	w = doRequest(server, http.MethodGet, pdfURL, denied)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", strings.TrimSpace(w.Body.String()))

	// A file no book owns is absent even for a fully-granted caller.
	w = doRequest(server, http.MethodGet, "/files/books/zzz999.pdf", granted)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", strings.TrimSpace(w.Body.String()))
}

func TestFileGateAdminBypass(t *testing.T) {
	server := setupTestServer(t)
	adminToken := setupAdmin(t, server)
	ctx := context.Background()

	book, err := server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Restricted Reading",
	}, pdfUpload(), nil)
	require.NoError(t, err)

	// Admins skip the grant check entirely.
	w := doRequest(server, http.MethodGet, "/files/books/"+book.PDFFileID+".pdf", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// But a nonexistent file is still a 404, found at the disk stat.
	w = doRequest(server, http.MethodGet, "/files/books/ghost000.pdf", adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", strings.TrimSpace(w.Body.String()))
}

func TestAuthFlow(t *testing.T) {
	server := setupTestServer(t)

	// First-time setup creates the admin.
	w := doJSONRequest(server, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"email":        "head@school.example",
		"password":     "correct horse battery",
		"display_name": "Head Teacher",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Setup is one-shot.
	w = doJSONRequest(server, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"email":        "again@school.example",
		"password":     "correct horse battery",
		"display_name": "Impostor",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Login returns a token pair.
	w = doJSONRequest(server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "head@school.example",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var loginResult struct {
		Data service.AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResult))
	require.NotEmpty(t, loginResult.Data.AccessToken)
	require.NotEmpty(t, loginResult.Data.RefreshToken)

	// The access token works against a protected route.
	w = doRequest(server, http.MethodGet, "/api/v1/users/me", loginResult.Data.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// Refresh rotates the pair; the old refresh token dies.
	w = doJSONRequest(server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": loginResult.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSONRequest(server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": loginResult.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	server := setupTestServer(t)
	setupAdmin(t, server)
	userToken := createUserToken(t, server, "student@school.example", nil, nil)

	// No token at all.
	w := doRequest(server, http.MethodGet, "/api/v1/users/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Authenticated but not an admin.
	w = doRequest(server, http.MethodGet, "/api/v1/users/", userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSONRequest(server, http.MethodPost, "/api/v1/news/", userToken, map[string]string{
		"title": "Not allowed",
		"body":  "<p>nope</p>",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCatalogListingScopedByGrants(t *testing.T) {
	server := setupTestServer(t)
	setupAdmin(t, server)
	ctx := context.Background()

	_, err := server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Algebra", Tags: []string{"math"},
	}, pdfUpload(), nil)
	require.NoError(t, err)
	_, err = server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Latin Primer", Tags: []string{"languages"},
	}, pdfUpload(), nil)
	require.NoError(t, err)

	userToken := createUserToken(t, server, "mathonly@school.example", nil, []string{"math"})

	w := doRequest(server, http.MethodGet, "/api/v1/books/", userToken)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Algebra", result.Data[0].Title)
}

func TestSearchFiltersAreCanonicalized(t *testing.T) {
	server := setupTestServer(t)
	adminToken := setupAdmin(t, server)
	ctx := context.Background()

	_, err := server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Algebra", Tags: []string{"math"}, Language: "English",
	}, pdfUpload(), nil)
	require.NoError(t, err)
	_, err = server.bookService.CreateBook(ctx, service.BookMetadata{
		Title: "Fizika alapjai", Tags: []string{"science"}, Language: "Hungarian",
	}, pdfUpload(), nil)
	require.NoError(t, err)

	// Book tags and languages are stored canonicalized ("math", "en"), so
	// differently-cased query filters must find them.
	for _, target := range []string{
		"/api/v1/books/search?tag=Math",
		"/api/v1/books/search?language=English",
	} {
		w := doRequest(server, http.MethodGet, target, adminToken)
		require.Equal(t, http.StatusOK, w.Code, target)

		var result struct {
			Data []struct {
				Title string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Len(t, result.Data, 1, target)
		assert.Equal(t, "Algebra", result.Data[0].Title, target)
	}
}

func TestNewsPublicListingHidesDrafts(t *testing.T) {
	server := setupTestServer(t)
	adminToken := setupAdmin(t, server)
	ctx := context.Background()

	_, err := server.newsService.CreateNews(ctx, "author", service.NewsRequest{
		Title: "Sports Day", Body: "<p>Results are in.</p>", Publish: true,
	})
	require.NoError(t, err)
	draft, err := server.newsService.CreateNews(ctx, "author", service.NewsRequest{
		Title: "Unfinished", Body: "<p>Draft.</p>",
	})
	require.NoError(t, err)

	w := doRequest(server, http.MethodGet, "/api/v1/news/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Sports Day", result.Data[0].Title)

	// Drafts look absent on the public slug route.
	w = doRequest(server, http.MethodGet, "/api/v1/news/slug/"+draft.Slug, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The admin view sees both.
	w = doRequest(server, http.MethodGet, "/api/v1/news/all", adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Data, 2)
}

func TestMediaServing(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	member, err := server.staffService.CreateStaff(ctx, service.StaffRequest{
		Name: "Ms Jones",
	}, &service.Upload{Reader: coverUpload(t).Reader, Filename: "portrait.png"})
	require.NoError(t, err)
	require.NotEmpty(t, member.PhotoPath)

	// PhotoPath is storage-relative ("staff/<uuid>.png").
	w := doRequest(server, http.MethodGet, "/media/"+member.PhotoPath, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// Unknown media category.
	w = doRequest(server, http.MethodGet, "/media/books/sneaky.pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing file.
	w = doRequest(server, http.MethodGet, "/media/staff/nope.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
