package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/httpx"
	"github.com/pagelift/api/internal/platform/pagination"
	"github.com/pagelift/api/internal/services"
)

const maxAdminBodySize = 1 << 20

// AdminPageHandlersDeps wires the dependencies for operator endpoints.
type AdminPageHandlersDeps struct {
	Pages      services.PageService
	Generation services.GenerationService
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// AdminPageHandlers exposes page management and generation to operators.
// Generation is optional; without it the generate endpoint reports 501.
type AdminPageHandlers struct {
	pages      services.PageService
	generation services.GenerationService
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewAdminPageHandlers validates dependencies and constructs the handler set.
func NewAdminPageHandlers(deps AdminPageHandlersDeps) (*AdminPageHandlers, error) {
	if deps.Pages == nil {
		return nil, errors.New("admin page handlers: page service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &AdminPageHandlers{
		pages:      deps.Pages,
		generation: deps.Generation,
		logger:     logger,
	}, nil
}

// Routes registers the operator endpoints on the given router group.
func (h *AdminPageHandlers) Routes(r chi.Router) {
	r.Get("/pages", h.listPages)
	r.Post("/pages", h.createPage)
	r.Post("/pages/generate", h.generatePage)
	r.Get("/pages/{pageID}", h.getPage)
	r.Put("/pages/{pageID}/content", h.updateContent)
	r.Post("/pages/{pageID}/publish", h.setPublished)
}

type pageSummary struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	ThankYouSlug string `json:"thank_you_slug"`
	Language     string `json:"language,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	Published    bool   `json:"published"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type pageDetail struct {
	pageSummary
	Content         domain.ContentRecord  `json:"content"`
	ThankYouContent *domain.ContentRecord `json:"thank_you_content,omitempty"`
}

type createPageRequest struct {
	Slug            string                `json:"slug"`
	ThankYouSlug    string                `json:"thank_you_slug"`
	Content         domain.ContentRecord  `json:"content"`
	ThankYouContent *domain.ContentRecord `json:"thank_you_content"`
	Publish         bool                  `json:"publish"`
}

type updateContentRequest struct {
	Content         domain.ContentRecord  `json:"content"`
	ThankYouContent *domain.ContentRecord `json:"thank_you_content"`
}

type setPublishedRequest struct {
	Published bool `json:"published"`
}

type generatePageRequest struct {
	Brief       string `json:"brief"`
	Language    string `json:"language"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Slug        string `json:"slug"`
	Publish     bool   `json:"publish"`
}

func (h *AdminPageHandlers) listPages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		switch {
		case errors.Is(err, pagination.ErrInvalidLimit):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
		case errors.Is(err, pagination.ErrInvalidPageToken):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_token is malformed", http.StatusBadRequest))
		default:
			h.writeAdminError(ctx, w, err)
		}
		return
	}

	listQuery := services.PageListQuery{
		PublishedOnly: query.Get("published") == "true",
		Language:      query.Get("language"),
		Limit:         params.Limit,
		PageToken:     params.PageToken,
	}

	listed, err := h.pages.ListPages(ctx, listQuery)
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	summaries := make([]pageSummary, 0, len(listed.Pages))
	for _, page := range listed.Pages {
		summaries = append(summaries, newPageSummary(page))
	}
	payload := map[string]any{"pages": summaries}
	if listed.NextPageToken != "" {
		payload["next_page_token"] = listed.NextPageToken
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminPageHandlers) createPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPageRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	page, err := h.pages.CreatePage(ctx, services.CreatePageCommand{
		Slug:            req.Slug,
		ThankYouSlug:    req.ThankYouSlug,
		Content:         req.Content,
		ThankYouContent: req.ThankYouContent,
		Publish:         req.Publish,
	})
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, newPageDetail(page))
}

func (h *AdminPageHandlers) generatePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.generation == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_implemented", "page generation is not enabled", http.StatusNotImplemented))
		return
	}

	var req generatePageRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	page, err := h.generation.GeneratePage(ctx, services.GeneratePageCommand{
		Brief:       req.Brief,
		Language:    req.Language,
		ProductName: req.ProductName,
		Price:       req.Price,
		Slug:        req.Slug,
		Publish:     req.Publish,
	})
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, newPageDetail(page))
}

func (h *AdminPageHandlers) getPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.pages.GetPage(ctx, chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, newPageDetail(page))
}

func (h *AdminPageHandlers) updateContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateContentRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	page, err := h.pages.UpdateContent(ctx, services.UpdatePageContentCommand{
		PageID:          chi.URLParam(r, "pageID"),
		Content:         req.Content,
		ThankYouContent: req.ThankYouContent,
	})
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, newPageDetail(page))
}

func (h *AdminPageHandlers) setPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setPublishedRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	page, err := h.pages.SetPublished(ctx, chi.URLParam(r, "pageID"), req.Published)
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, newPageDetail(page))
}

func (h *AdminPageHandlers) decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	data, err := readLimitedBody(r, maxAdminBodySize)
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

func (h *AdminPageHandlers) writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPageInvalidInput), errors.Is(err, services.ErrGenerationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("page_not_found", "page not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPageSlugTaken):
		httpx.WriteError(ctx, w, httpx.NewError("slug_taken", "a page with this slug already exists", http.StatusConflict))
	case errors.Is(err, services.ErrGenerationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("generation_failed", "content generator did not produce a page", http.StatusBadGateway))
	case errors.Is(err, services.ErrPageUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("pages_unavailable", "page store unavailable", http.StatusServiceUnavailable))
	default:
		h.logger(ctx, "admin_pages.handler_error", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError("admin_error", "failed to process request", http.StatusInternalServerError))
	}
}

func newPageSummary(page domain.Page) pageSummary {
	return pageSummary{
		ID:           page.ID,
		Slug:         page.Slug,
		ThankYouSlug: page.ResolvedThankYouSlug(),
		Language:     page.Content.Language,
		ProductName:  page.Content.ProductName,
		Published:    page.Published,
		CreatedAt:    formatTimestamp(page.CreatedAt),
		UpdatedAt:    formatTimestamp(page.UpdatedAt),
	}
}

func newPageDetail(page domain.Page) pageDetail {
	return pageDetail{
		pageSummary:     newPageSummary(page),
		Content:         page.Content,
		ThankYouContent: page.ThankYouContent,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
