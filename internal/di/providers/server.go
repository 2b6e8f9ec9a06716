package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/api"
	"github.com/schoolhub/schoolhub-server/internal/config"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may hold up shutdown.
const shutdownTimeout = 30 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server, listening in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*files.Storage](i)
	gate := do.MustInvoke[*files.Gate](i)

	authService := do.MustInvoke[*service.AuthService](i)
	userService := do.MustInvoke[*service.UserService](i)
	bookService := do.MustInvoke[*service.BookService](i)
	newsService := do.MustInvoke[*service.NewsService](i)
	staffService := do.MustInvoke[*service.StaffService](i)
	galleryService := do.MustInvoke[*service.GalleryService](i)

	handler := api.NewServer(
		storeHandle.Store,
		authService,
		userService,
		bookService,
		newsService,
		staffService,
		galleryService,
		gate,
		storage,
		cfg.Server.CORSOrigins,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
