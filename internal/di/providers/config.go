// Package providers contains dependency injection providers for the SchoolHub server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/config"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting SchoolHub Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"media_path", cfg.Media.BasePath,
	)

	return log, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
