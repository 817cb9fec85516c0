package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRouterServesHealthProbes(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRouterUnknownRouteReturnsJSONError(t *testing.T) {
	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if code := errorCode(t, rec); code != errorNotFoundCode {
		t.Fatalf("error code = %q, want %q", code, errorNotFoundCode)
	}
}

func TestRouterUnconfiguredGroupReportsNotImplemented(t *testing.T) {
	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/some-slug", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestRouterMountsRegistrars(t *testing.T) {
	router := NewRouter(
		WithPageRoutes(func(r chi.Router) {
			r.Get("/{slug}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
		WithCheckoutRoutes(func(r chi.Router) {
			r.Post("/sessions", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
		}),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/buy-now", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pages status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want %d", rec.Code, http.StatusCreated)
	}
}
