package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubGenerator struct {
	record ContentRecord
	err    error
	briefs []GenerationBrief
}

func (g *stubGenerator) GenerateContent(_ context.Context, brief GenerationBrief) (ContentRecord, error) {
	g.briefs = append(g.briefs, brief)
	if g.err != nil {
		return ContentRecord{}, g.err
	}
	return g.record, nil
}

func newGenerationFixture(t *testing.T, generator *stubGenerator) (GenerationService, *stubPageRepository) {
	t.Helper()

	repo := newStubPageRepository()
	counter := 0
	pages, err := NewPageService(PageServiceDeps{
		Pages: repo,
		Clock: func() time.Time { return time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC) },
		IDGen: func() string { counter++; return string(rune('a' + counter - 1)) },
	})
	if err != nil {
		t.Fatalf("NewPageService: %v", err)
	}

	service, err := NewGenerationService(GenerationServiceDeps{
		Generator: generator,
		Pages:     pages,
	})
	if err != nil {
		t.Fatalf("NewGenerationService: %v", err)
	}
	return service, repo
}

func TestGeneratePageStoresResult(t *testing.T) {
	generator := &stubGenerator{
		record: ContentRecord{Language: "it", ProductName: "Smart Posture Belt", Price: "€39,90"},
	}
	service, repo := newGenerationFixture(t, generator)

	page, err := service.GeneratePage(context.Background(), GeneratePageCommand{
		Brief:   "cintura posturale per chi lavora seduto",
		Publish: true,
	})
	if err != nil {
		t.Fatalf("GeneratePage: %v", err)
	}

	if page.Slug != "smart-posture-belt" {
		t.Fatalf("slug = %q, want derived from product name", page.Slug)
	}
	if !page.Published {
		t.Fatal("publish flag lost")
	}
	if len(repo.pages) != 1 {
		t.Fatalf("stored pages = %d, want 1", len(repo.pages))
	}
	if len(generator.briefs) != 1 || generator.briefs[0].Brief == "" {
		t.Fatalf("generator briefs = %+v", generator.briefs)
	}
}

func TestGeneratePageAbortsOnProviderError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("model overloaded")}
	service, repo := newGenerationFixture(t, generator)

	_, err := service.GeneratePage(context.Background(), GeneratePageCommand{Brief: "x"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v, want ErrGenerationFailed", err)
	}
	if len(repo.pages) != 0 {
		t.Fatal("no partial page may be saved after a provider failure")
	}
}

func TestGeneratePageRequiresBrief(t *testing.T) {
	service, _ := newGenerationFixture(t, &stubGenerator{})

	if _, err := service.GeneratePage(context.Background(), GeneratePageCommand{Brief: "  "}); !errors.Is(err, ErrGenerationInvalidInput) {
		t.Fatalf("error = %v, want ErrGenerationInvalidInput", err)
	}
}

func TestGeneratePageCommandOverridesWinOverGenerated(t *testing.T) {
	generator := &stubGenerator{
		record: ContentRecord{Language: "en", ProductName: "Generated Name", Price: "$10"},
	}
	service, _ := newGenerationFixture(t, generator)

	page, err := service.GeneratePage(context.Background(), GeneratePageCommand{
		Brief:       "belt",
		Language:    "it",
		ProductName: "Cintura Smart",
		Price:       "€39,90",
		Slug:        "cintura",
	})
	if err != nil {
		t.Fatalf("GeneratePage: %v", err)
	}
	if page.Content.Language != "it" || page.Content.ProductName != "Cintura Smart" || page.Content.Price != "€39,90" {
		t.Fatalf("overrides not applied: %+v", page.Content)
	}
	if page.Slug != "cintura" {
		t.Fatalf("slug = %q, want cintura", page.Slug)
	}
}
