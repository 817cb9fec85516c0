package repositories

import (
	"context"

	domain "github.com/pagelift/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Pages() PageRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// PageListFilter narrows page listing for operator tooling. Cursor holds the
// resume position from a previous call's NextCursor, ordered to match the
// repository's sort fields.
type PageListFilter struct {
	PublishedOnly bool
	Language      string
	Limit         int
	Cursor        []any
}

// PageList is one page of results plus the cursor to resume from, empty when
// the listing is exhausted.
type PageList struct {
	Pages      []domain.Page
	NextCursor []any
}

// PageRepository persists landing page records keyed by id and by slug.
type PageRepository interface {
	Insert(ctx context.Context, page domain.Page) (domain.Page, error)
	Update(ctx context.Context, page domain.Page) (domain.Page, error)
	FindByID(ctx context.Context, pageID string) (domain.Page, error)
	// FindBySlug matches the primary slug only.
	FindBySlug(ctx context.Context, slug string) (domain.Page, error)
	// FindByThankYouSlug matches the stored confirmation slug.
	FindByThankYouSlug(ctx context.Context, slug string) (domain.Page, error)
	List(ctx context.Context, filter PageListFilter) (PageList, error)
	SetPublished(ctx context.Context, pageID string, published bool) (domain.Page, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// IsNotFound reports whether err carries the repository not-found category.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if err == nil {
		return false
	}
	if ok := asRepositoryError(err, &repoErr); !ok {
		return false
	}
	return repoErr.IsNotFound()
}

func asRepositoryError(err error, target *RepositoryError) bool {
	for err != nil {
		if typed, ok := err.(RepositoryError); ok {
			*target = typed
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
