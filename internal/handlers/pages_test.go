package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/services"
)

type stubContentService struct {
	view        services.PageView
	thankYou    services.ThankYouView
	err         error
	lastSlug    string
	lastVisitor services.ThankYouVisitor
}

func (s *stubContentService) BuildPageView(_ context.Context, slug string) (services.PageView, error) {
	s.lastSlug = slug
	if s.err != nil {
		return services.PageView{}, s.err
	}
	return s.view, nil
}

func (s *stubContentService) BuildThankYouView(_ context.Context, slug string, visitor services.ThankYouVisitor) (services.ThankYouView, error) {
	s.lastSlug = slug
	s.lastVisitor = visitor
	if s.err != nil {
		return services.ThankYouView{}, s.err
	}
	return s.thankYou, nil
}

func newPageTestRouter(t *testing.T, content *stubContentService, limiter rateLimiter) chi.Router {
	t.Helper()

	handlers, err := NewPageHandlers(PageHandlersDeps{Content: content, Limiter: limiter})
	if err != nil {
		t.Fatalf("NewPageHandlers: %v", err)
	}
	router := chi.NewRouter()
	router.Route("/pages", handlers.Routes)
	return router
}

func TestGetPageReturnsViewWithETag(t *testing.T) {
	content := &stubContentService{
		view: services.PageView{
			Slug:        "posture-belt",
			ProductName: "Smart Posture Belt",
			SocialProof: services.SocialProofSchedule{Enabled: true, IntervalSeconds: 10},
		},
	}
	router := newPageTestRouter(t, content, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/posture-belt", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if content.lastSlug != "posture-belt" {
		t.Fatalf("slug = %q, want posture-belt", content.lastSlug)
	}
	if got := rec.Header().Get("Cache-Control"); got != pageCacheControl {
		t.Fatalf("Cache-Control = %q, want %q", got, pageCacheControl)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("ETag header missing")
	}

	payload := decodeJSONBody(t, rec)
	if payload["product_name"] != "Smart Posture Belt" {
		t.Fatalf("product_name = %v", payload["product_name"])
	}

	req := httptest.NewRequest(http.MethodGet, "/pages/posture-belt", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want %d", rec.Code, http.StatusNotModified)
	}
}

func TestPageETagIgnoresSocialProofRandomness(t *testing.T) {
	base := services.PageView{Slug: "posture-belt", ProductName: "Smart Posture Belt"}

	first := base
	first.SocialProof = services.SocialProofSchedule{Enabled: true, Events: []services.SocialProofEvent{{Name: "Giulia"}}}
	second := base
	second.SocialProof = services.SocialProofSchedule{Enabled: true, Events: []services.SocialProofEvent{{Name: "Marco"}}}

	if computePageETag(first) != computePageETag(second) {
		t.Fatalf("etag must not depend on the social proof schedule")
	}
}

func TestGetPageNotFound(t *testing.T) {
	content := &stubContentService{err: services.ErrContentPageNotFound}
	router := newPageTestRouter(t, content, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if code := errorCode(t, rec); code != "page_not_found" {
		t.Fatalf("error code = %q, want page_not_found", code)
	}
}

func TestGetThankYouForwardsVisitorAndDisablesCaching(t *testing.T) {
	content := &stubContentService{
		thankYou: services.ThankYouView{Slug: "posture-belt-grazie", Name: "Leo"},
	}
	router := newPageTestRouter(t, content, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/posture-belt-grazie/thank-you?name=Leo&phone=777&total=44.80+%E2%82%AC&order_id=ord_1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if content.lastSlug != "posture-belt-grazie" {
		t.Fatalf("slug = %q", content.lastSlug)
	}
	want := services.ThankYouVisitor{Name: "Leo", Phone: "777", Total: "44.80 €", OrderID: "ord_1"}
	if content.lastVisitor != want {
		t.Fatalf("visitor = %+v, want %+v", content.lastVisitor, want)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
}

func TestGetPageRateLimited(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	limiter := newFixedWindowLimiter(1, time.Minute, func() time.Time { return now })
	content := &stubContentService{view: services.PageView{Slug: "posture-belt"}}
	router := newPageTestRouter(t, content, limiter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/posture-belt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/posture-belt", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header missing")
	}
}
