package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/pagelift/api/internal/platform/firestore"
	"github.com/pagelift/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider
	pages    *PageRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the Firestore repository set. The registry owns the
// provider and closes its client when the process shuts down.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	pages, err := NewPageRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build page repository: %w", err)
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}

	return &Registry{
		provider: provider,
		pages:    pages,
		health:   health,
	}, nil
}

// Pages returns the page repository.
func (r *Registry) Pages() repositories.PageRepository {
	if r == nil {
		return nil
	}
	return r.pages
}

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository {
	if r == nil {
		return nil
	}
	return r.health
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}
