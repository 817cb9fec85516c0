package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/pagelift/api/internal/domain"
	pfirestore "github.com/pagelift/api/internal/platform/firestore"
	"github.com/pagelift/api/internal/repositories"
)

const (
	pageCollection  = "pages"
	defaultPageScan = 100
)

// pageDocument is the persisted shape of a landing page. Content payloads are
// stored as nested maps so editors can patch individual fields; the Go struct
// round-trips through JSON to keep one source of truth for field names.
type pageDocument struct {
	Slug            string         `firestore:"slug"`
	ThankYouSlug    string         `firestore:"thankYouSlug,omitempty"`
	Language        string         `firestore:"language,omitempty"`
	Content         map[string]any `firestore:"content"`
	ThankYouContent map[string]any `firestore:"thankYouContent,omitempty"`
	Published       bool           `firestore:"isPublished"`
	CreatedAt       time.Time      `firestore:"createdAt"`
	UpdatedAt       time.Time      `firestore:"updatedAt"`
}

// PageRepository persists landing pages within Firestore.
type PageRepository struct {
	base     *pfirestore.BaseRepository[pageDocument]
	provider *pfirestore.Provider
}

var _ repositories.PageRepository = (*PageRepository)(nil)

// NewPageRepository constructs a Firestore-backed page repository.
func NewPageRepository(provider *pfirestore.Provider) (*PageRepository, error) {
	if provider == nil {
		return nil, errors.New("page repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[pageDocument](provider, pageCollection, nil, nil)
	return &PageRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Insert stores a new page document under its ID.
func (r *PageRepository) Insert(ctx context.Context, page domain.Page) (domain.Page, error) {
	if r == nil || r.base == nil {
		return domain.Page{}, errors.New("page repository not initialised")
	}

	pageID := strings.TrimSpace(page.ID)
	if pageID == "" {
		return domain.Page{}, errors.New("page repository: page id is required")
	}
	if strings.TrimSpace(page.Slug) == "" {
		return domain.Page{}, errors.New("page repository: slug is required")
	}

	doc, err := encodePage(page)
	if err != nil {
		return domain.Page{}, err
	}

	result, err := r.base.Set(ctx, pageID, doc)
	if err != nil {
		return domain.Page{}, err
	}

	saved := page
	saved.ID = pageID
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// Update overwrites the stored document for the page.
func (r *PageRepository) Update(ctx context.Context, page domain.Page) (domain.Page, error) {
	return r.Insert(ctx, page)
}

// FindByID fetches a page by document ID.
func (r *PageRepository) FindByID(ctx context.Context, pageID string) (domain.Page, error) {
	if r == nil || r.base == nil {
		return domain.Page{}, errors.New("page repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(pageID))
	if err != nil {
		return domain.Page{}, err
	}
	return decodePage(doc.ID, doc.Data)
}

// FindBySlug fetches the page published under the given primary slug.
func (r *PageRepository) FindBySlug(ctx context.Context, slug string) (domain.Page, error) {
	return r.findOneByField(ctx, "slug", slug)
}

// FindByThankYouSlug fetches the page owning the given confirmation slug.
func (r *PageRepository) FindByThankYouSlug(ctx context.Context, slug string) (domain.Page, error) {
	return r.findOneByField(ctx, "thankYouSlug", slug)
}

// List returns pages matching the filter, newest first. It fetches one extra
// document past the limit to decide whether another page of results exists,
// and exposes the resume position as a createdAt cursor.
func (r *PageRepository) List(ctx context.Context, filter repositories.PageListFilter) (repositories.PageList, error) {
	if r == nil || r.base == nil {
		return repositories.PageList{}, errors.New("page repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageScan
	}
	language := strings.TrimSpace(filter.Language)
	cursor, err := normalizeCursorValues(filter.Cursor)
	if err != nil {
		return repositories.PageList{}, err
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.PublishedOnly {
			query = query.Where("isPublished", "==", true)
		}
		if language != "" {
			query = query.Where("language", "==", language)
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if len(cursor) > 0 {
			query = query.StartAfter(cursor...)
		}
		return query.Limit(limit + 1)
	})
	if err != nil {
		return repositories.PageList{}, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	pages := make([]domain.Page, 0, len(docs))
	for _, doc := range docs {
		page, err := decodePage(doc.ID, doc.Data)
		if err != nil {
			return repositories.PageList{}, err
		}
		pages = append(pages, page)
	}

	result := repositories.PageList{Pages: pages}
	if hasMore && len(pages) > 0 {
		result.NextCursor = []any{pages[len(pages)-1].CreatedAt.UTC().Format(time.RFC3339Nano)}
	}
	return result, nil
}

// normalizeCursorValues converts token-decoded cursor values back into the
// types Firestore ordered on. Tokens round-trip through JSON, which turns the
// createdAt timestamp into an RFC 3339 string.
func normalizeCursorValues(values []any) ([]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			out = append(out, value)
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("page repository: invalid cursor value %q", raw)
		}
		out = append(out, ts)
	}
	return out, nil
}

// SetPublished flips the visibility flag for the page.
func (r *PageRepository) SetPublished(ctx context.Context, pageID string, published bool) (domain.Page, error) {
	if r == nil || r.base == nil {
		return domain.Page{}, errors.New("page repository not initialised")
	}

	id := strings.TrimSpace(pageID)
	if id == "" {
		return domain.Page{}, errors.New("page repository: page id is required")
	}

	now := time.Now().UTC()
	if _, err := r.base.Update(ctx, id, []firestore.Update{
		{Path: "isPublished", Value: published},
		{Path: "updatedAt", Value: now},
	}); err != nil {
		return domain.Page{}, err
	}

	return r.FindByID(ctx, id)
}

func (r *PageRepository) findOneByField(ctx context.Context, field, value string) (domain.Page, error) {
	if r == nil || r.base == nil {
		return domain.Page{}, errors.New("page repository not initialised")
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return domain.Page{}, errors.New("page repository: lookup value is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where(field, "==", trimmed).Limit(1)
	})
	if err != nil {
		return domain.Page{}, err
	}
	if len(docs) == 0 {
		return domain.Page{}, pfirestore.NotFoundError(fmt.Sprintf("%s.%s", pageCollection, field))
	}
	return decodePage(docs[0].ID, docs[0].Data)
}

func encodePage(page domain.Page) (pageDocument, error) {
	content, err := contentToMap(page.Content)
	if err != nil {
		return pageDocument{}, fmt.Errorf("page repository: encode content: %w", err)
	}

	var thankYou map[string]any
	if page.ThankYouContent != nil {
		thankYou, err = contentToMap(*page.ThankYouContent)
		if err != nil {
			return pageDocument{}, fmt.Errorf("page repository: encode thank-you content: %w", err)
		}
	}

	now := time.Now().UTC()
	createdAt := page.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := page.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return pageDocument{
		Slug:            strings.TrimSpace(page.Slug),
		ThankYouSlug:    strings.TrimSpace(page.ThankYouSlug),
		Language:        strings.TrimSpace(page.Content.Language),
		Content:         content,
		ThankYouContent: thankYou,
		Published:       page.Published,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func decodePage(id string, doc pageDocument) (domain.Page, error) {
	content, err := contentFromMap(doc.Content)
	if err != nil {
		return domain.Page{}, fmt.Errorf("page repository: decode content %s: %w", id, err)
	}

	page := domain.Page{
		ID:           id,
		Slug:         doc.Slug,
		ThankYouSlug: doc.ThankYouSlug,
		Content:      content,
		Published:    doc.Published,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}

	if len(doc.ThankYouContent) > 0 {
		thankYou, err := contentFromMap(doc.ThankYouContent)
		if err != nil {
			return domain.Page{}, fmt.Errorf("page repository: decode thank-you content %s: %w", id, err)
		}
		page.ThankYouContent = &thankYou
	}

	return page, nil
}

func contentToMap(record domain.ContentRecord) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func contentFromMap(values map[string]any) (domain.ContentRecord, error) {
	if len(values) == 0 {
		return domain.ContentRecord{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return domain.ContentRecord{}, err
	}
	var record domain.ContentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ContentRecord{}, err
	}
	return record, nil
}
