package services

import (
	"context"
	"time"

	domain "github.com/pagelift/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	ContentRecord      = domain.ContentRecord
	Page               = domain.Page
	OrderPayload       = domain.OrderPayload
	PaymentMethod      = domain.PaymentMethod
	FormField          = domain.FormField
	FormType           = domain.FormType
	Announcement       = domain.Announcement
	Testimonial        = domain.Testimonial
	FeatureBlock       = domain.FeatureBlock
	Labels             = domain.Labels
	CulturalData       = domain.CulturalData
	AddOnConfig        = domain.AddOnConfig
	AddOnSelection     = domain.AddOnSelection
	Fragments          = domain.Fragments
	SystemHealthReport = domain.SystemHealthReport
)

// PageService manages landing page records and their publication state.
type PageService interface {
	CreatePage(ctx context.Context, cmd CreatePageCommand) (Page, error)
	GetPage(ctx context.Context, pageID string) (Page, error)
	FindBySlug(ctx context.Context, slug string) (Page, error)
	ListPages(ctx context.Context, query PageListQuery) (PageList, error)
	UpdateContent(ctx context.Context, cmd UpdatePageContentCommand) (Page, error)
	SetPublished(ctx context.Context, pageID string, published bool) (Page, error)
}

// CreatePageCommand packages inputs for a new landing page record.
type CreatePageCommand struct {
	Slug            string
	ThankYouSlug    string
	Content         ContentRecord
	ThankYouContent *ContentRecord
	Publish         bool
}

// UpdatePageContentCommand replaces the stored content payloads for a page.
type UpdatePageContentCommand struct {
	PageID          string
	Content         ContentRecord
	ThankYouContent *ContentRecord
}

// PageListQuery narrows page listings for operator tooling. PageToken resumes
// a listing from where a previous call stopped.
type PageListQuery struct {
	PublishedOnly bool
	Language      string
	Limit         int
	PageToken     string
}

// PageList is one page of listing results. NextPageToken is empty when no
// further results exist.
type PageList struct {
	Pages         []Page
	NextPageToken string
}

// ContentService assembles render-ready page views from stored content records.
type ContentService interface {
	BuildPageView(ctx context.Context, slug string) (PageView, error)
	BuildThankYouView(ctx context.Context, slug string, visitor ThankYouVisitor) (ThankYouView, error)
}

// ThankYouVisitor carries the order details a confirmation page echoes back.
type ThankYouVisitor struct {
	Name    string
	Phone   string
	Total   string
	OrderID string
}

// CheckoutState tracks where a buyer session sits in the order funnel.
type CheckoutState string

const (
	StateFormFilling  CheckoutState = "form_filling"
	StateSubmitting   CheckoutState = "submitting"
	StateCardDeclined CheckoutState = "card_declined"
	StateRedirecting  CheckoutState = "redirecting"
	StateClosed       CheckoutState = "closed"
)

// RedirectType names the destination class chosen after a completed order.
type RedirectType string

const (
	RedirectNative   RedirectType = "native"
	RedirectCustom   RedirectType = "custom_url"
	RedirectCallback RedirectType = "callback"
	RedirectThankYou RedirectType = "thank_you"
	RedirectNone     RedirectType = "none"
)

// Redirect describes the post-order destination the client should follow.
type Redirect struct {
	Type RedirectType `json:"type"`
	URL  string       `json:"url,omitempty"`
}

// CheckoutSession is the in-flight state for one buyer working through the order form.
type CheckoutSession struct {
	ID                  string            `json:"id"`
	PageID              string            `json:"page_id"`
	PageSlug            string            `json:"page_slug"`
	State               CheckoutState     `json:"state"`
	Values              map[string]string `json:"values,omitempty"`
	Method              PaymentMethod     `json:"method"`
	Insurance           bool              `json:"insurance"`
	Gadget              bool              `json:"gadget"`
	HasRedirectCallback bool              `json:"-"`
	ClientIP            string            `json:"-"`
	CreatedAt           time.Time         `json:"created_at"`
	ExpiresAt           time.Time         `json:"expires_at"`
}

// CheckoutService drives the buyer order funnel from session start to redirect.
type CheckoutService interface {
	StartSession(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (CheckoutSession, error)
	Submit(ctx context.Context, cmd SubmitOrderCommand) (CheckoutOutcome, error)
	AcceptFallback(ctx context.Context, sessionID string) (CheckoutOutcome, error)
	Abandon(ctx context.Context, sessionID string) error
}

// StartCheckoutCommand opens a buyer session against a published page.
type StartCheckoutCommand struct {
	PageSlug            string
	HasRedirectCallback bool
	ClientIP            string
}

// SubmitOrderCommand carries the completed order form for one session.
type SubmitOrderCommand struct {
	SessionID string
	Values    map[string]string
	Method    PaymentMethod
	Insurance bool
	Gadget    bool
	ClientIP  string
}

// CheckoutOutcome reports where the session landed after a submit or fallback.
type CheckoutOutcome struct {
	State    CheckoutState `json:"state"`
	Order    *OrderPayload `json:"order,omitempty"`
	Redirect Redirect      `json:"redirect"`
}

// FragmentService prepares raw HTML fragments for delivery to the rendered page.
type FragmentService interface {
	Prepare(fragments Fragments) (Fragments, error)
}

// GenerationService turns an operator brief into a stored landing page.
type GenerationService interface {
	GeneratePage(ctx context.Context, cmd GeneratePageCommand) (Page, error)
}

// GeneratePageCommand describes the page an operator wants produced.
type GeneratePageCommand struct {
	Brief       string
	Language    string
	ProductName string
	Price       string
	Slug        string
	Publish     bool
}

// GenerationBrief is the request forwarded to the external content generator.
type GenerationBrief struct {
	Brief       string `json:"brief"`
	Language    string `json:"language"`
	ProductName string `json:"product_name,omitempty"`
	Price       string `json:"price,omitempty"`
}

// ContentGenerator produces a complete content record from an operator brief.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, brief GenerationBrief) (ContentRecord, error)
}

// WebhookDispatcher delivers order notifications to merchant-configured URLs.
// Send blocks until the endpoint responds; Dispatch fires asynchronously and
// never blocks the caller.
type WebhookDispatcher interface {
	Send(ctx context.Context, url string, body map[string]any) error
	Dispatch(ctx context.Context, url string, body map[string]any)
}

// OrderEvent is the analytics record emitted after every accepted order.
type OrderEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	PageSlug      string    `json:"page_slug"`
	PaymentMethod string    `json:"payment_method"`
	Total         string    `json:"total"`
	Currency      string    `json:"currency"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// OrderEventPublisher pushes order events onto the analytics stream.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// SystemService surfaces process health for liveness and readiness probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}
