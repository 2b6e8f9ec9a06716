// Package di provides dependency injection configuration for the SchoolHub server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/config"
	"github.com/schoolhub/schoolhub-server/internal/di/providers"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Storage layer
	do.Provide(injector, providers.ProvideStorage)
	do.Provide(injector, providers.ProvideFileGate)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideLoginLimiter)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideNewsService)
	do.Provide(injector, providers.ProvideStaffService)
	do.Provide(injector, providers.ProvideGalleryService)

	// Workers
	do.Provide(injector, providers.ProvideMediaWatcher)
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once they are running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*files.Storage](injector)
	_ = do.MustInvoke[*files.Gate](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.LoginLimiterHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.NewsService](injector)
	_ = do.MustInvoke[*service.StaffService](injector)
	_ = do.MustInvoke[*service.GalleryService](injector)

	// Workers
	_ = do.MustInvoke[*providers.MediaWatcherHandle](injector)
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index from the store if it came up empty.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
