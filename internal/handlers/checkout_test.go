package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/services"
)

type stubCheckoutService struct {
	session    services.CheckoutSession
	outcome    services.CheckoutOutcome
	startErr   error
	getErr     error
	submitErr  error
	lastStart  services.StartCheckoutCommand
	lastSubmit services.SubmitOrderCommand
	abandoned  []string
}

func (s *stubCheckoutService) StartSession(_ context.Context, cmd services.StartCheckoutCommand) (services.CheckoutSession, error) {
	s.lastStart = cmd
	if s.startErr != nil {
		return services.CheckoutSession{}, s.startErr
	}
	return s.session, nil
}

func (s *stubCheckoutService) GetSession(context.Context, string) (services.CheckoutSession, error) {
	if s.getErr != nil {
		return services.CheckoutSession{}, s.getErr
	}
	return s.session, nil
}

func (s *stubCheckoutService) Submit(_ context.Context, cmd services.SubmitOrderCommand) (services.CheckoutOutcome, error) {
	s.lastSubmit = cmd
	if s.submitErr != nil {
		return services.CheckoutOutcome{}, s.submitErr
	}
	return s.outcome, nil
}

func (s *stubCheckoutService) AcceptFallback(context.Context, string) (services.CheckoutOutcome, error) {
	if s.submitErr != nil {
		return services.CheckoutOutcome{}, s.submitErr
	}
	return s.outcome, nil
}

func (s *stubCheckoutService) Abandon(_ context.Context, sessionID string) error {
	s.abandoned = append(s.abandoned, sessionID)
	return nil
}

func newCheckoutTestRouter(t *testing.T, checkout *stubCheckoutService, limiter rateLimiter) chi.Router {
	t.Helper()

	handlers, err := NewCheckoutHandlers(CheckoutHandlersDeps{Checkout: checkout, Limiter: limiter})
	if err != nil {
		t.Fatalf("NewCheckoutHandlers: %v", err)
	}
	router := chi.NewRouter()
	router.Route("/checkout", handlers.Routes)
	return router
}

func TestStartSessionCreatesSession(t *testing.T) {
	checkout := &stubCheckoutService{
		session: services.CheckoutSession{
			ID:       "sess_1",
			PageSlug: "buy-now",
			State:    services.StateFormFilling,
		},
	}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"page_slug":"buy-now","has_redirect_callback":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if checkout.lastStart.PageSlug != "buy-now" || !checkout.lastStart.HasRedirectCallback {
		t.Fatalf("start command = %+v", checkout.lastStart)
	}

	payload := decodeJSONBody(t, rec)
	if payload["id"] != "sess_1" {
		t.Fatalf("session id = %v", payload["id"])
	}
	if payload["state"] != string(services.StateFormFilling) {
		t.Fatalf("state = %v", payload["state"])
	}
}

func TestStartSessionRejectsEmptyBody(t *testing.T) {
	router := newCheckoutTestRouter(t, &stubCheckoutService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions", strings.NewReader("  ")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStartSessionUnknownPage(t *testing.T) {
	checkout := &stubCheckoutService{startErr: services.ErrCheckoutPageNotFound}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"page_slug":"missing"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if code := errorCode(t, rec); code != "page_not_found" {
		t.Fatalf("error code = %q, want page_not_found", code)
	}
}

func TestSubmitKeepsSeededAddOnDefaults(t *testing.T) {
	checkout := &stubCheckoutService{
		session: services.CheckoutSession{
			ID:        "sess_1",
			State:     services.StateFormFilling,
			Method:    domain.PaymentCard,
			Insurance: true,
		},
		outcome: services.CheckoutOutcome{State: services.StateCardDeclined},
	}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"values":{"nome":"Leo","telefono":"777"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/sess_1/submit", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if checkout.lastSubmit.Method != domain.PaymentCard {
		t.Fatalf("method = %q, want card from session", checkout.lastSubmit.Method)
	}
	if !checkout.lastSubmit.Insurance {
		t.Fatalf("insurance default from session was dropped")
	}
	if checkout.lastSubmit.Gadget {
		t.Fatalf("gadget should default to session value false")
	}

	payload := decodeJSONBody(t, rec)
	if payload["state"] != string(services.StateCardDeclined) {
		t.Fatalf("state = %v", payload["state"])
	}
}

func TestSubmitOverridesFromBody(t *testing.T) {
	checkout := &stubCheckoutService{
		session: services.CheckoutSession{
			ID:        "sess_1",
			State:     services.StateFormFilling,
			Method:    domain.PaymentCard,
			Insurance: true,
		},
		outcome: services.CheckoutOutcome{
			State:    services.StateRedirecting,
			Redirect: services.Redirect{Type: services.RedirectThankYou, URL: "/buy-now-grazie"},
		},
	}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"values":{"nome":"Leo"},"payment_method":"cod","insurance":false,"gadget":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/sess_1/submit", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if checkout.lastSubmit.Method != domain.PaymentCOD {
		t.Fatalf("method = %q, want cod", checkout.lastSubmit.Method)
	}
	if checkout.lastSubmit.Insurance || !checkout.lastSubmit.Gadget {
		t.Fatalf("add-on overrides = insurance %v gadget %v", checkout.lastSubmit.Insurance, checkout.lastSubmit.Gadget)
	}
}

func TestSubmitExpiredSession(t *testing.T) {
	checkout := &stubCheckoutService{getErr: services.ErrCheckoutSessionNotFound}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"values":{}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/gone/submit", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if code := errorCode(t, rec); code != "session_not_found" {
		t.Fatalf("error code = %q, want session_not_found", code)
	}
}

func TestSubmitDisabledMethod(t *testing.T) {
	checkout := &stubCheckoutService{
		session:   services.CheckoutSession{ID: "sess_1", State: services.StateFormFilling},
		submitErr: services.ErrCheckoutMethodDisabled,
	}
	router := newCheckoutTestRouter(t, checkout, nil)

	body := strings.NewReader(`{"values":{},"payment_method":"card"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/sess_1/submit", body))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestAcceptFallbackReturnsOutcome(t *testing.T) {
	checkout := &stubCheckoutService{
		outcome: services.CheckoutOutcome{
			State:    services.StateRedirecting,
			Order:    &domain.OrderPayload{ID: "ord_1"},
			Redirect: services.Redirect{Type: services.RedirectThankYou, URL: "/buy-now-grazie"},
		},
	}
	router := newCheckoutTestRouter(t, checkout, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/sess_1/fallback", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	payload := decodeJSONBody(t, rec)
	redirect, _ := payload["redirect"].(map[string]any)
	if redirect["type"] != string(services.RedirectThankYou) {
		t.Fatalf("redirect = %v", payload["redirect"])
	}
}

func TestAbandonReturnsNoContent(t *testing.T) {
	checkout := &stubCheckoutService{}
	router := newCheckoutTestRouter(t, checkout, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/checkout/sessions/sess_1", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(checkout.abandoned) != 1 || checkout.abandoned[0] != "sess_1" {
		t.Fatalf("abandoned = %v", checkout.abandoned)
	}
}

func TestSubmitRejectsOversizedBody(t *testing.T) {
	router := newCheckoutTestRouter(t, &stubCheckoutService{}, nil)

	body := strings.NewReader(`{"values":{"nome":"` + strings.Repeat("a", maxCheckoutBodySize) + `"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions/sess_1/submit", body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}
