// Package api provides the HTTP API server and handlers for the SchoolHub application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          *store.Store
	authService    *service.AuthService
	userService    *service.UserService
	bookService    *service.BookService
	newsService    *service.NewsService
	staffService   *service.StaffService
	galleryService *service.GalleryService
	gate           *files.Gate
	storage        *files.Storage
	corsOrigins    []string
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	authService *service.AuthService,
	userService *service.UserService,
	bookService *service.BookService,
	newsService *service.NewsService,
	staffService *service.StaffService,
	galleryService *service.GalleryService,
	gate *files.Gate,
	storage *files.Storage,
	corsOrigins []string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:          store,
		authService:    authService,
		userService:    userService,
		bookService:    bookService,
		newsService:    newsService,
		staffService:   staffService,
		galleryService: galleryService,
		gate:           gate,
		storage:        storage,
		corsOrigins:    corsOrigins,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Library file access. Authentication is resolved inside the handler so
	// the gate can answer unauthenticated requests itself.
	s.router.Get("/files/{category}/*", s.handleServeFile)

	// Public site images (gallery photos, staff portraits).
	s.router.Get("/media/{category}/*", s.handleServeMedia)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/setup", s.handleSetup)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		// Account management (admin), plus the current-user endpoint.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})

		// Library catalog (requires auth; listings are permission-scoped).
		r.Route("/books", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListBooks)
			r.Get("/search", s.handleSearchBooks)
			r.Get("/{id}", s.handleGetBook)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateBook)
				r.Patch("/{id}", s.handleUpdateBook)
				r.Delete("/{id}", s.handleDeleteBook)
				r.Post("/reindex", s.handleReindexBooks)
			})
		})

		// News articles. Reading is public, writing is admin.
		r.Route("/news", func(r chi.Router) {
			r.Get("/", s.handleListNews)
			r.Get("/slug/{slug}", s.handleGetNewsBySlug)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth, s.requireAdmin)
				r.Post("/", s.handleCreateNews)
				r.Get("/all", s.handleListAllNews)
				r.Get("/{id}", s.handleGetNews)
				r.Patch("/{id}", s.handleUpdateNews)
				r.Delete("/{id}", s.handleDeleteNews)
			})
		})

		// Staff directory. Reading is public, writing is admin.
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", s.handleListStaff)
			r.Get("/{id}", s.handleGetStaff)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth, s.requireAdmin)
				r.Post("/", s.handleCreateStaff)
				r.Patch("/{id}", s.handleUpdateStaff)
				r.Delete("/{id}", s.handleDeleteStaff)
			})
		})

		// Photo galleries. Reading is public, writing is admin.
		r.Route("/galleries", func(r chi.Router) {
			r.Get("/", s.handleListGalleries)
			r.Get("/slug/{slug}", s.handleGetGalleryBySlug)
			r.Get("/{id}", s.handleGetGallery)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth, s.requireAdmin)
				r.Post("/", s.handleCreateGallery)
				r.Patch("/{id}", s.handleUpdateGallery)
				r.Delete("/{id}", s.handleDeleteGallery)
				r.Post("/{id}/images", s.handleAddGalleryImage)
				r.Delete("/{id}/images", s.handleRemoveGalleryImage)
			})
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
