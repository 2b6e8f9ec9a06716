package providers

import (
	"context"
	"errors"
	"time"

	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/watcher"
)

// MediaWatcherHandle wraps the media watcher with shutdown capability.
type MediaWatcherHandle struct {
	*watcher.MediaWatcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *MediaWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideMediaWatcher provides the watcher that reports stored files
// removed from disk behind the application's back.
func ProvideMediaWatcher(i do.Injector) (*MediaWatcherHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*files.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := watcher.New(storeHandle.Store, storage, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Media watcher error", "error", err)
		}
	}()

	log.Info("Media watcher started")

	return &MediaWatcherHandle{
		MediaWatcher: w,
		cancel:       cancel,
	}, nil
}

// SessionCleanupJob runs periodic expired-session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	authService := do.MustInvoke[*service.AuthService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				count, err := authService.CleanupExpiredSessions(ctx)
				if err != nil {
					log.Warn("Session cleanup failed", "error", err)
					continue
				}
				if count > 0 {
					log.Info("Expired sessions removed", "count", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &SessionCleanupJob{cancel: cancel}, nil
}
