package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrGenerationInvalidInput indicates a blank brief or unusable slug.
	ErrGenerationInvalidInput = errors.New("generation: invalid input")
	// ErrGenerationFailed wraps provider errors. The raw provider message is
	// preserved for the operator; no partial page is saved.
	ErrGenerationFailed = errors.New("generation: provider failed")
)

// GenerationServiceDeps wires the dependencies required by the generation service.
type GenerationServiceDeps struct {
	Generator ContentGenerator
	Pages     PageService
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type generationService struct {
	generator ContentGenerator
	pages     PageService
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewGenerationService constructs a GenerationService validating required dependencies.
func NewGenerationService(deps GenerationServiceDeps) (GenerationService, error) {
	if deps.Generator == nil {
		return nil, errors.New("generation service: content generator is required")
	}
	if deps.Pages == nil {
		return nil, errors.New("generation service: page service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &generationService{
		generator: deps.Generator,
		pages:     deps.Pages,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GeneratePage calls the content provider and stores the result as a new
// page. Provider failures abort the whole operation; nothing is persisted.
func (s *generationService) GeneratePage(ctx context.Context, cmd GeneratePageCommand) (Page, error) {
	brief := strings.TrimSpace(cmd.Brief)
	if brief == "" {
		return Page{}, fmt.Errorf("%w: brief is required", ErrGenerationInvalidInput)
	}

	started := s.now()
	content, err := s.generator.GenerateContent(ctx, GenerationBrief{
		Brief:       brief,
		Language:    strings.TrimSpace(cmd.Language),
		ProductName: strings.TrimSpace(cmd.ProductName),
		Price:       strings.TrimSpace(cmd.Price),
	})
	if err != nil {
		s.logger(ctx, "generation.failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": s.now().Sub(started).Milliseconds(),
		})
		return Page{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if cmd.Language != "" {
		content.Language = strings.TrimSpace(cmd.Language)
	}
	if cmd.ProductName != "" {
		content.ProductName = strings.TrimSpace(cmd.ProductName)
	}
	if cmd.Price != "" {
		content.Price = strings.TrimSpace(cmd.Price)
	}

	slug := NormalizeSlug(cmd.Slug)
	if slug == "" {
		slug = NormalizeSlug(content.ProductName)
	}
	if slug == "" {
		slug = NormalizeSlug(content.Headline)
	}
	if slug == "" {
		return Page{}, fmt.Errorf("%w: cannot derive a slug", ErrGenerationInvalidInput)
	}

	page, err := s.pages.CreatePage(ctx, CreatePageCommand{
		Slug:    slug,
		Content: content,
		Publish: cmd.Publish,
	})
	if err != nil {
		return Page{}, err
	}

	s.logger(ctx, "generation.page_created", map[string]any{
		"page_id":     page.ID,
		"slug":        page.Slug,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
	return page, nil
}
