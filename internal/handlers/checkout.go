package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/httpx"
	"github.com/pagelift/api/internal/services"
)

const maxCheckoutBodySize = 64 * 1024

// CheckoutHandlersDeps wires the dependencies for the buyer funnel endpoints.
// RequestsPerMinute of zero disables throttling; Limiter overrides it when set.
type CheckoutHandlersDeps struct {
	Checkout          services.CheckoutService
	RequestsPerMinute int
	Limiter           rateLimiter
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

// CheckoutHandlers exposes the order funnel: open a session, submit the form,
// accept the cash-on-delivery fallback, or abandon.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	limiter  rateLimiter
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutHandlers validates dependencies and constructs the handler set.
func NewCheckoutHandlers(deps CheckoutHandlersDeps) (*CheckoutHandlers, error) {
	if deps.Checkout == nil {
		return nil, errors.New("checkout handlers: checkout service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = newFixedWindowLimiter(deps.RequestsPerMinute, time.Minute, nil)
	}
	return &CheckoutHandlers{
		checkout: deps.Checkout,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Routes registers the checkout endpoints on the given router group.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	r.Post("/sessions", h.startSession)
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Post("/sessions/{sessionID}/submit", h.submit)
	r.Post("/sessions/{sessionID}/fallback", h.acceptFallback)
	r.Delete("/sessions/{sessionID}", h.abandon)
}

type startSessionRequest struct {
	PageSlug            string `json:"page_slug"`
	HasRedirectCallback bool   `json:"has_redirect_callback"`
}

type submitOrderRequest struct {
	Values        map[string]string `json:"values"`
	PaymentMethod string            `json:"payment_method"`
	Insurance     *bool             `json:"insurance"`
	Gadget        *bool             `json:"gadget"`
}

func (h *CheckoutHandlers) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(w, r) {
		return
	}

	var req startSessionRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	session, err := h.checkout.StartSession(ctx, services.StartCheckoutCommand{
		PageSlug:            req.PageSlug,
		HasRedirectCallback: req.HasRedirectCallback,
		ClientIP:            clientKey(r),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, session)
}

func (h *CheckoutHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.checkout.GetSession(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, session)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(w, r) {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	var req submitOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	// Omitted add-on flags keep the defaults seeded when the session opened.
	session, err := h.checkout.GetSession(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	insurance := session.Insurance
	if req.Insurance != nil {
		insurance = *req.Insurance
	}
	gadget := session.Gadget
	if req.Gadget != nil {
		gadget = *req.Gadget
	}
	method := session.Method
	if req.PaymentMethod != "" {
		method = domain.PaymentMethod(req.PaymentMethod)
	}

	outcome, err := h.checkout.Submit(ctx, services.SubmitOrderCommand{
		SessionID: sessionID,
		Values:    req.Values,
		Method:    method,
		Insurance: insurance,
		Gadget:    gadget,
		ClientIP:  clientKey(r),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, outcome)
}

func (h *CheckoutHandlers) acceptFallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outcome, err := h.checkout.AcceptFallback(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, outcome)
}

func (h *CheckoutHandlers) abandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.checkout.Abandon(ctx, chi.URLParam(r, "sessionID")); err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandlers) decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	data, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds limit", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func (h *CheckoutHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	ok, retryAfter := h.limiter.Allow(clientKey(r))
	if ok {
		return true
	}
	if seconds := int(retryAfter.Seconds()); seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
	return false
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "checkout session not found or expired", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", "session is not in a state that allows this action", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutMethodDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("method_disabled", "payment method is not enabled for this page", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		h.logger(ctx, "checkout.handler_error", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
