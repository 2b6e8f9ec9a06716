package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/schoolhub/schoolhub-server/internal/config"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.BookIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve book search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewBookIndex(cfg.Data.BasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	docCount, _ := index.Count()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{BookIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index from the store when it
// came up empty, which happens after a mapping change or index corruption.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	bookService := do.MustInvoke[*service.BookService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, err := indexHandle.Count()
	if err != nil || docCount > 0 {
		return
	}

	go func() {
		count, err := bookService.ReindexAll(context.Background())
		if err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		if count > 0 {
			log.Info("Search index rebuilt", "documents", count)
		}
	}()
}
