package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newPageServiceFixture(t *testing.T) (PageService, *stubPageRepository) {
	t.Helper()

	repo := newStubPageRepository()
	counter := 0
	service, err := NewPageService(PageServiceDeps{
		Pages: repo,
		Clock: func() time.Time { return time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC) },
		IDGen: func() string { counter++; return string(rune('a' + counter - 1)) },
	})
	if err != nil {
		t.Fatalf("NewPageService: %v", err)
	}
	return service, repo
}

func TestCreatePageNormalizesSlug(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	page, err := service.CreatePage(context.Background(), CreatePageCommand{
		Slug:    "  Buy Now! ",
		Content: ContentRecord{Language: "it", ProductName: "Belt"},
		Publish: true,
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.Slug != "buy-now" {
		t.Fatalf("slug = %q, want buy-now", page.Slug)
	}
	if !page.Published {
		t.Fatal("publish flag lost")
	}
	if page.CreatedAt.IsZero() || !page.CreatedAt.Equal(page.UpdatedAt) {
		t.Fatalf("timestamps not seeded: %v / %v", page.CreatedAt, page.UpdatedAt)
	}
}

func TestCreatePageRejectsDuplicateSlug(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	if _, err := service.CreatePage(context.Background(), CreatePageCommand{Slug: "buy-now"}); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if _, err := service.CreatePage(context.Background(), CreatePageCommand{Slug: "Buy Now"}); !errors.Is(err, ErrPageSlugTaken) {
		t.Fatalf("error = %v, want ErrPageSlugTaken", err)
	}
}

func TestCreatePageRejectsEmptySlug(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	if _, err := service.CreatePage(context.Background(), CreatePageCommand{Slug: " !! "}); !errors.Is(err, ErrPageInvalidInput) {
		t.Fatalf("error = %v, want ErrPageInvalidInput", err)
	}
}

func TestUpdateContentTouchesTimestamp(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	page, err := service.CreatePage(context.Background(), CreatePageCommand{Slug: "buy-now"})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	updated, err := service.UpdateContent(context.Background(), UpdatePageContentCommand{
		PageID:  page.ID,
		Content: ContentRecord{ProductName: "New Name"},
	})
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if updated.Content.ProductName != "New Name" {
		t.Fatalf("content not replaced: %q", updated.Content.ProductName)
	}
}

func TestListPagesRoundTripsPageToken(t *testing.T) {
	service, repo := newPageServiceFixture(t)
	repo.nextCursor = []any{"2026-05-04T10:00:00Z"}

	if _, err := service.CreatePage(context.Background(), CreatePageCommand{Slug: "buy-now"}); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	first, err := service.ListPages(context.Background(), PageListQuery{Limit: 1, Language: " it "})
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if first.NextPageToken == "" {
		t.Fatal("expected a next page token")
	}
	if repo.lastListFilter.Language != "it" {
		t.Fatalf("language not trimmed: %q", repo.lastListFilter.Language)
	}

	if _, err := service.ListPages(context.Background(), PageListQuery{PageToken: first.NextPageToken}); err != nil {
		t.Fatalf("ListPages with token: %v", err)
	}
	if len(repo.lastListFilter.Cursor) != 1 {
		t.Fatalf("cursor not forwarded: %v", repo.lastListFilter.Cursor)
	}
}

func TestListPagesRejectsMalformedToken(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	if _, err := service.ListPages(context.Background(), PageListQuery{PageToken: "%%%"}); !errors.Is(err, ErrPageInvalidInput) {
		t.Fatalf("error = %v, want ErrPageInvalidInput", err)
	}
}

func TestGetPageNotFound(t *testing.T) {
	service, _ := newPageServiceFixture(t)

	if _, err := service.GetPage(context.Background(), "missing"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("error = %v, want ErrPageNotFound", err)
	}
}

func TestNormalizeSlug(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "Buy Now!", want: "buy-now"},
		{raw: "  smart--posture  belt ", want: "smart-posture-belt"},
		{raw: "già-pronto", want: "gi-pronto"},
		{raw: "---", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeSlug(tc.raw); got != tc.want {
			t.Fatalf("NormalizeSlug(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
