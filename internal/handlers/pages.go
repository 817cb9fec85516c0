package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/platform/httpx"
	"github.com/pagelift/api/internal/services"
)

const pageCacheControl = "public, max-age=60"

// PageHandlersDeps wires the dependencies for the public page endpoints.
// RequestsPerMinute of zero disables throttling; Limiter overrides it when set.
type PageHandlersDeps struct {
	Content           services.ContentService
	RequestsPerMinute int
	Limiter           rateLimiter
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

// PageHandlers serves the render models for landing and confirmation pages.
type PageHandlers struct {
	content services.ContentService
	limiter rateLimiter
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewPageHandlers validates dependencies and constructs the handler set.
func NewPageHandlers(deps PageHandlersDeps) (*PageHandlers, error) {
	if deps.Content == nil {
		return nil, errors.New("page handlers: content service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = newFixedWindowLimiter(deps.RequestsPerMinute, time.Minute, nil)
	}
	return &PageHandlers{
		content: deps.Content,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Routes registers the public page endpoints on the given router group.
func (h *PageHandlers) Routes(r chi.Router) {
	r.Get("/{slug}", h.getPage)
	r.Get("/{slug}/thank-you", h.getThankYou)
}

func (h *PageHandlers) getPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(w, r) {
		return
	}

	slug := chi.URLParam(r, "slug")
	view, err := h.content.BuildPageView(ctx, slug)
	if err != nil {
		h.writePageError(ctx, w, err)
		return
	}

	w.Header().Set("Cache-Control", pageCacheControl)
	if etag := computePageETag(view); etag != "" {
		w.Header().Set("ETag", etag)
		if matchesETag(r, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, view)
}

func (h *PageHandlers) getThankYou(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(w, r) {
		return
	}

	slug := chi.URLParam(r, "slug")
	query := r.URL.Query()
	visitor := services.ThankYouVisitor{
		Name:    query.Get("name"),
		Phone:   query.Get("phone"),
		Total:   query.Get("total"),
		OrderID: query.Get("order_id"),
	}

	view, err := h.content.BuildThankYouView(ctx, slug, visitor)
	if err != nil {
		h.writePageError(ctx, w, err)
		return
	}

	// Confirmation pages echo visitor details and must never be cached.
	w.Header().Set("Cache-Control", "no-store")
	writeJSONResponse(w, http.StatusOK, view)
}

func (h *PageHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
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

func (h *PageHandlers) writePageError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContentPageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
	case errors.Is(err, services.ErrContentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "page store unavailable", http.StatusServiceUnavailable))
	default:
		h.logger(ctx, "pages.handler_error", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError("page_error", "failed to load page", http.StatusInternalServerError))
	}
}

// computePageETag hashes the deterministic part of the view. The social proof
// schedule is randomised per request and is excluded so conditional requests
// still hit.
func computePageETag(view services.PageView) string {
	view.SocialProof = services.SocialProofSchedule{}
	data, err := json.Marshal(view)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("W/\"%x\"", sum)
}
