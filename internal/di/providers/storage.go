package providers

import (
	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/config"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
)

// ProvideStorage provides the media file storage.
func ProvideStorage(i do.Injector) (*files.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := files.NewStorage(cfg.Media.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Media storage initialized", "path", storage.BasePath())

	return storage, nil
}

// ProvideFileGate provides the library file access gate.
func ProvideFileGate(i do.Injector) (*files.Gate, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*files.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return files.NewGate(storeHandle.Store, storage, log.Logger), nil
}
