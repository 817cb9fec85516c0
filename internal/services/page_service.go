package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/pagination"
	"github.com/pagelift/api/internal/repositories"
)

var (
	// ErrPageInvalidInput indicates missing or malformed page data.
	ErrPageInvalidInput = errors.New("pages: invalid input")
	// ErrPageNotFound indicates the page does not exist.
	ErrPageNotFound = errors.New("pages: not found")
	// ErrPageSlugTaken indicates another page already owns the slug.
	ErrPageSlugTaken = errors.New("pages: slug already in use")
	// ErrPageUnavailable indicates the backing store failed.
	ErrPageUnavailable = errors.New("pages: unavailable")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageServiceDeps wires the dependencies required by the page service.
type PageServiceDeps struct {
	Pages  repositories.PageRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
	IDGen  func() string
}

type pageService struct {
	pages  repositories.PageRepository
	now    func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
	idGen  func() string
}

// NewPageService constructs a PageService validating required dependencies.
func NewPageService(deps PageServiceDeps) (PageService, error) {
	if deps.Pages == nil {
		return nil, errors.New("page service: page repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &pageService{
		pages: deps.Pages,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		idGen:  idGen,
	}, nil
}

// CreatePage validates and stores a new landing page record.
func (s *pageService) CreatePage(ctx context.Context, cmd CreatePageCommand) (Page, error) {
	slug := NormalizeSlug(cmd.Slug)
	if slug == "" || !slugPattern.MatchString(slug) {
		return Page{}, fmt.Errorf("%w: slug %q", ErrPageInvalidInput, cmd.Slug)
	}

	if _, err := s.pages.FindBySlug(ctx, slug); err == nil {
		return Page{}, ErrPageSlugTaken
	} else if !repositories.IsNotFound(err) {
		return Page{}, s.wrapStoreError(err)
	}

	now := s.now()
	page := domain.Page{
		ID:              s.idGen(),
		Slug:            slug,
		ThankYouSlug:    NormalizeSlug(cmd.ThankYouSlug),
		Content:         cmd.Content,
		ThankYouContent: cmd.ThankYouContent,
		Published:       cmd.Publish,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	saved, err := s.pages.Insert(ctx, page)
	if err != nil {
		return Page{}, s.wrapStoreError(err)
	}

	s.logger(ctx, "pages.created", map[string]any{
		"page_id":   saved.ID,
		"slug":      saved.Slug,
		"published": saved.Published,
	})
	return saved, nil
}

// GetPage fetches a page by ID.
func (s *pageService) GetPage(ctx context.Context, pageID string) (Page, error) {
	id := strings.TrimSpace(pageID)
	if id == "" {
		return Page{}, ErrPageInvalidInput
	}
	page, err := s.pages.FindByID(ctx, id)
	if err != nil {
		return Page{}, s.wrapStoreError(err)
	}
	return page, nil
}

// FindBySlug fetches a page by its primary slug.
func (s *pageService) FindBySlug(ctx context.Context, slug string) (Page, error) {
	normalized := NormalizeSlug(slug)
	if normalized == "" {
		return Page{}, ErrPageInvalidInput
	}
	page, err := s.pages.FindBySlug(ctx, normalized)
	if err != nil {
		return Page{}, s.wrapStoreError(err)
	}
	return page, nil
}

// ListPages returns one page of results matching the query.
func (s *pageService) ListPages(ctx context.Context, query PageListQuery) (PageList, error) {
	cursor, err := pagination.DecodeToken(query.PageToken)
	if err != nil {
		return PageList{}, fmt.Errorf("%w: %v", ErrPageInvalidInput, err)
	}

	listed, err := s.pages.List(ctx, repositories.PageListFilter{
		PublishedOnly: query.PublishedOnly,
		Language:      strings.TrimSpace(query.Language),
		Limit:         query.Limit,
		Cursor:        cursor.StartAfter,
	})
	if err != nil {
		return PageList{}, s.wrapStoreError(err)
	}

	nextToken, err := pagination.EncodeToken(pagination.Cursor{StartAfter: listed.NextCursor})
	if err != nil {
		return PageList{}, fmt.Errorf("%w: %v", ErrPageUnavailable, err)
	}
	return PageList{Pages: listed.Pages, NextPageToken: nextToken}, nil
}

// UpdateContent replaces the stored content payloads for a page.
func (s *pageService) UpdateContent(ctx context.Context, cmd UpdatePageContentCommand) (Page, error) {
	page, err := s.GetPage(ctx, cmd.PageID)
	if err != nil {
		return Page{}, err
	}

	page.Content = cmd.Content
	page.ThankYouContent = cmd.ThankYouContent
	page.UpdatedAt = s.now()

	saved, err := s.pages.Update(ctx, page)
	if err != nil {
		return Page{}, s.wrapStoreError(err)
	}
	s.logger(ctx, "pages.content_updated", map[string]any{"page_id": saved.ID})
	return saved, nil
}

// SetPublished flips a page's visibility.
func (s *pageService) SetPublished(ctx context.Context, pageID string, published bool) (Page, error) {
	id := strings.TrimSpace(pageID)
	if id == "" {
		return Page{}, ErrPageInvalidInput
	}
	page, err := s.pages.SetPublished(ctx, id, published)
	if err != nil {
		return Page{}, s.wrapStoreError(err)
	}
	s.logger(ctx, "pages.published_changed", map[string]any{
		"page_id":   page.ID,
		"published": published,
	})
	return page, nil
}

func (s *pageService) wrapStoreError(err error) error {
	if repositories.IsNotFound(err) {
		return ErrPageNotFound
	}
	return fmt.Errorf("%w: %v", ErrPageUnavailable, err)
}

var nonSlugRunes = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeSlug lowercases, trims, and collapses separators so operator input
// like "Buy Now!" becomes "buy-now".
func NormalizeSlug(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	slug := nonSlugRunes.ReplaceAllString(lowered, "-")
	return strings.Trim(slug, "-")
}
