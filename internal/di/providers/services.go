package providers

import (
	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, validator, limiter.KeyedRateLimiter, log.Logger), nil
}

// ProvideUserService provides the account management service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideBookService provides the library catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*files.Storage](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, storage, indexHandle.BookIndex, validator, log.Logger), nil
}

// ProvideNewsService provides the news article service.
func ProvideNewsService(i do.Injector) (*service.NewsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNewsService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideStaffService provides the staff directory service.
func ProvideStaffService(i do.Injector) (*service.StaffService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*files.Storage](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStaffService(storeHandle.Store, storage, validator, log.Logger), nil
}

// ProvideGalleryService provides the photo gallery service.
func ProvideGalleryService(i do.Injector) (*service.GalleryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*files.Storage](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGalleryService(storeHandle.Store, storage, validator, log.Logger), nil
}
