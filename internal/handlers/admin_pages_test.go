package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/pagination"
	"github.com/pagelift/api/internal/services"
)

type stubPageService struct {
	page       domain.Page
	pages      []domain.Page
	nextToken  string
	err        error
	lastCreate services.CreatePageCommand
	lastList   services.PageListQuery
}

func (s *stubPageService) CreatePage(_ context.Context, cmd services.CreatePageCommand) (domain.Page, error) {
	s.lastCreate = cmd
	if s.err != nil {
		return domain.Page{}, s.err
	}
	return s.page, nil
}

func (s *stubPageService) GetPage(context.Context, string) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	return s.page, nil
}

func (s *stubPageService) FindBySlug(context.Context, string) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	return s.page, nil
}

func (s *stubPageService) ListPages(_ context.Context, query services.PageListQuery) (services.PageList, error) {
	s.lastList = query
	if s.err != nil {
		return services.PageList{}, s.err
	}
	return services.PageList{Pages: s.pages, NextPageToken: s.nextToken}, nil
}

func (s *stubPageService) UpdateContent(context.Context, services.UpdatePageContentCommand) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	return s.page, nil
}

func (s *stubPageService) SetPublished(_ context.Context, _ string, published bool) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	page := s.page
	page.Published = published
	return page, nil
}

type stubGenerationService struct {
	page    domain.Page
	err     error
	lastCmd services.GeneratePageCommand
}

func (s *stubGenerationService) GeneratePage(_ context.Context, cmd services.GeneratePageCommand) (domain.Page, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return domain.Page{}, s.err
	}
	return s.page, nil
}

func adminTestPage() domain.Page {
	return domain.Page{
		ID:           "page_1",
		Slug:         "buy-now",
		ThankYouSlug: "buy-now-grazie",
		Published:    true,
		Content: domain.ContentRecord{
			Language:    "it",
			ProductName: "Smart Posture Belt",
			Price:       "€39,90",
		},
		CreatedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
}

func newAdminTestRouter(t *testing.T, pages *stubPageService, generation services.GenerationService) chi.Router {
	t.Helper()

	handlers, err := NewAdminPageHandlers(AdminPageHandlersDeps{Pages: pages, Generation: generation})
	if err != nil {
		t.Fatalf("NewAdminPageHandlers: %v", err)
	}
	router := chi.NewRouter()
	router.Route("/admin", handlers.Routes)
	return router
}

func TestCreatePageReturnsDetail(t *testing.T) {
	pages := &stubPageService{page: adminTestPage()}
	router := newAdminTestRouter(t, pages, nil)

	body := strings.NewReader(`{"slug":"Buy Now","publish":true,"content":{"product_name":"Smart Posture Belt","price":"€39,90"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if pages.lastCreate.Slug != "Buy Now" || !pages.lastCreate.Publish {
		t.Fatalf("create command = %+v", pages.lastCreate)
	}

	payload := decodeJSONBody(t, rec)
	if payload["slug"] != "buy-now" {
		t.Fatalf("slug = %v", payload["slug"])
	}
	if payload["thank_you_slug"] != "buy-now-grazie" {
		t.Fatalf("thank_you_slug = %v", payload["thank_you_slug"])
	}
}

func TestCreatePageSlugConflict(t *testing.T) {
	pages := &stubPageService{err: services.ErrPageSlugTaken}
	router := newAdminTestRouter(t, pages, nil)

	body := strings.NewReader(`{"slug":"buy-now","content":{}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages", body))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if code := errorCode(t, rec); code != "slug_taken" {
		t.Fatalf("error code = %q, want slug_taken", code)
	}
}

func TestListPagesParsesQuery(t *testing.T) {
	pages := &stubPageService{pages: []domain.Page{adminTestPage()}}
	router := newAdminTestRouter(t, pages, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/pages?published=true&language=it&limit=25", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	want := services.PageListQuery{PublishedOnly: true, Language: "it", Limit: 25}
	if pages.lastList != want {
		t.Fatalf("list query = %+v, want %+v", pages.lastList, want)
	}
}

func TestListPagesRejectsBadLimit(t *testing.T) {
	router := newAdminTestRouter(t, &stubPageService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/pages?limit=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListPagesForwardsPageToken(t *testing.T) {
	pages := &stubPageService{pages: []domain.Page{adminTestPage()}, nextToken: "tok_next"}
	router := newAdminTestRouter(t, pages, nil)

	token, err := pagination.EncodeToken(pagination.Cursor{StartAfter: []any{"2026-05-04T10:00:00Z"}})
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/pages?page_token="+token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if pages.lastList.PageToken != token {
		t.Fatalf("page token = %q, want %q", pages.lastList.PageToken, token)
	}
	payload := decodeJSONBody(t, rec)
	if payload["next_page_token"] != "tok_next" {
		t.Fatalf("next_page_token = %v", payload["next_page_token"])
	}
}

func TestListPagesRejectsMalformedPageToken(t *testing.T) {
	router := newAdminTestRouter(t, &stubPageService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/pages?page_token=%25%25%25", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetPublishedTogglesFlag(t *testing.T) {
	page := adminTestPage()
	page.Published = false
	pages := &stubPageService{page: page}
	router := newAdminTestRouter(t, pages, nil)

	body := strings.NewReader(`{"published":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages/page_1/publish", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	payload := decodeJSONBody(t, rec)
	if payload["published"] != true {
		t.Fatalf("published = %v", payload["published"])
	}
}

func TestGeneratePageWithoutServiceReportsNotImplemented(t *testing.T) {
	router := newAdminTestRouter(t, &stubPageService{}, nil)

	body := strings.NewReader(`{"brief":"posture belt"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages/generate", body))

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestGeneratePageForwardsCommand(t *testing.T) {
	generation := &stubGenerationService{page: adminTestPage()}
	router := newAdminTestRouter(t, &stubPageService{}, generation)

	body := strings.NewReader(`{"brief":"posture belt for office workers","language":"it","price":"€39,90","publish":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages/generate", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if generation.lastCmd.Brief != "posture belt for office workers" || !generation.lastCmd.Publish {
		t.Fatalf("command = %+v", generation.lastCmd)
	}
}

func TestGeneratePageProviderFailure(t *testing.T) {
	generation := &stubGenerationService{err: services.ErrGenerationFailed}
	router := newAdminTestRouter(t, &stubPageService{}, generation)

	body := strings.NewReader(`{"brief":"posture belt"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/pages/generate", body))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if code := errorCode(t, rec); code != "generation_failed" {
		t.Fatalf("error code = %q, want generation_failed", code)
	}
}
