package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/id"
	"github.com/schoolhub/schoolhub-server/internal/slug"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// NewsService manages news articles for the public site. Bodies arrive
// from the admin editor as HTML and are normalized to Markdown before
// storage, so the stored form is editor-independent.
type NewsService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewNewsService creates a new news service.
func NewNewsService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *NewsService {
	return &NewsService{store: st, validator: validator, logger: logger}
}

// NewsRequest carries the editable fields of an article.
type NewsRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Body    string `json:"body" validate:"required"`
	Publish bool   `json:"publish"`
}

// CreateNews creates an article. The slug is derived from the title and
// made unique by suffixing when taken.
func (s *NewsService) CreateNews(ctx context.Context, authorID string, req NewsRequest) (*domain.NewsItem, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	body, err := normalizeBody(req.Body)
	if err != nil {
		return nil, domainerrors.Validation("body could not be parsed")
	}

	itemID, err := id.Generate("news")
	if err != nil {
		return nil, fmt.Errorf("generate news ID: %w", err)
	}

	item := &domain.NewsItem{
		Record:   domain.Record{ID: itemID},
		Title:    req.Title,
		Body:     body,
		AuthorID: authorID,
	}
	item.InitTimestamps()
	if req.Publish {
		item.Publish()
	}

	base := slug.Make(req.Title)
	if base == "" {
		base = itemID
	}

	// Slugs index uniquely; retry with a numeric suffix on collision.
	item.Slug = base
	for attempt := 2; ; attempt++ {
		err := s.store.News.Create(ctx, item.ID, item)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create news item: %w", err)
		}
		if attempt > 50 {
			return nil, domainerrors.Conflict("could not find a free slug")
		}
		item.Slug = fmt.Sprintf("%s-%d", base, attempt)
	}

	s.logger.Info("News item created", "news_id", item.ID, "slug", item.Slug, "published", item.Published)

	return item, nil
}

// UpdateNews edits an article. The slug is stable across edits so
// published URLs keep working.
func (s *NewsService) UpdateNews(ctx context.Context, itemID string, req NewsRequest) (*domain.NewsItem, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	item, err := s.getNews(ctx, itemID)
	if err != nil {
		return nil, err
	}

	body, err := normalizeBody(req.Body)
	if err != nil {
		return nil, domainerrors.Validation("body could not be parsed")
	}

	item.Title = req.Title
	item.Body = body
	if req.Publish && !item.Published {
		item.Publish()
	} else if !req.Publish && item.Published {
		item.Unpublish()
	}
	item.Touch()

	if err := s.store.News.Update(ctx, item.ID, item); err != nil {
		return nil, fmt.Errorf("update news item: %w", err)
	}

	s.logger.Info("News item updated", "news_id", item.ID)

	return item, nil
}

// DeleteNews removes an article.
func (s *NewsService) DeleteNews(ctx context.Context, itemID string) error {
	if _, err := s.getNews(ctx, itemID); err != nil {
		return err
	}

	if err := s.store.News.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete news item: %w", err)
	}

	s.logger.Info("News item deleted", "news_id", itemID)
	return nil
}

// GetNews returns an article by ID, published or not. Admin use.
func (s *NewsService) GetNews(ctx context.Context, itemID string) (*domain.NewsItem, error) {
	return s.getNews(ctx, itemID)
}

// GetNewsBySlug returns a published article for the public site.
func (s *NewsService) GetNewsBySlug(ctx context.Context, itemSlug string) (*domain.NewsItem, error) {
	item, err := s.store.News.GetByIndex(ctx, "slug", itemSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("article not found")
		}
		return nil, fmt.Errorf("get news item: %w", err)
	}

	if !item.Published {
		// Drafts don't exist as far as the public site is concerned.
		return nil, domainerrors.NotFound("article not found")
	}

	return item, nil
}

// ListNews returns articles, newest first. With publishedOnly, drafts are
// excluded (the public listing).
func (s *NewsService) ListNews(ctx context.Context, publishedOnly bool) ([]*domain.NewsItem, error) {
	var items []*domain.NewsItem
	for item, err := range s.store.News.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list news: %w", err)
		}
		if publishedOnly && !item.Published {
			continue
		}
		items = append(items, item)
	}

	sortNewestFirst(items)

	return items, nil
}

func (s *NewsService) getNews(ctx context.Context, itemID string) (*domain.NewsItem, error) {
	item, err := s.store.News.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("article not found")
		}
		return nil, fmt.Errorf("get news item: %w", err)
	}
	return item, nil
}

// normalizeBody converts editor HTML to Markdown. Plain text passes
// through unchanged.
func normalizeBody(body string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}

func sortNewestFirst(items []*domain.NewsItem) {
	slices.SortFunc(items, func(a, b *domain.NewsItem) int {
		return newsSortKey(b).Compare(newsSortKey(a))
	})
}

func newsSortKey(item *domain.NewsItem) time.Time {
	if item.Published && !item.PublishedAt.IsZero() {
		return item.PublishedAt
	}
	return item.CreatedAt
}
