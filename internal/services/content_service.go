package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	domain "github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/repositories"
)

const (
	maxVisibleBenefits          = 4
	defaultAnnouncementInterval = 5
	defaultInitialReviewCount   = 3
)

var (
	// ErrContentInvalidInput indicates a blank or malformed slug.
	ErrContentInvalidInput = errors.New("content: invalid input")
	// ErrContentPageNotFound indicates no published page matches the slug.
	ErrContentPageNotFound = errors.New("content: page not found")
	// ErrContentUnavailable indicates the backing store failed.
	ErrContentUnavailable = errors.New("content: unavailable")
)

// AnnouncementTicker drives the rotating bar above the hero. Single-item
// tickers render statically.
type AnnouncementTicker struct {
	Items           []Announcement `json:"items,omitempty"`
	IntervalSeconds int            `json:"interval_seconds,omitempty"`
	Static          bool           `json:"static"`
}

// PriceView is the render-ready price block.
type PriceView struct {
	Current         string `json:"current"`
	Original        string `json:"original,omitempty"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	ShippingCost    string `json:"shipping_cost,omitempty"`
}

// AddOnView is the checkout checkbox for one optional extra.
type AddOnView struct {
	Enabled        bool   `json:"enabled"`
	Label          string `json:"label,omitempty"`
	CostDisplay    string `json:"cost_display,omitempty"`
	DefaultChecked bool   `json:"default_checked,omitempty"`
}

// StockView is the scarcity banner state at page load.
type StockView struct {
	Enabled  bool   `json:"enabled"`
	Quantity int    `json:"quantity,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ReviewsView is the testimonial grid with its initial visibility cap.
type ReviewsView struct {
	Title          string        `json:"title,omitempty"`
	Items          []Testimonial `json:"items,omitempty"`
	InitialVisible int           `json:"initial_visible,omitempty"`
}

// PaymentView exposes the methods the order popup offers.
type PaymentView struct {
	CODEnabled    bool          `json:"cod_enabled"`
	CardEnabled   bool          `json:"card_enabled"`
	DefaultMethod PaymentMethod `json:"default_method"`
}

// BottomOfferView is the promotional block above the footer with prices
// rendered for display.
type BottomOfferView struct {
	Title           string `json:"title,omitempty"`
	Text            string `json:"text,omitempty"`
	PriceDisplay    string `json:"price_display,omitempty"`
	OriginalDisplay string `json:"original_display,omitempty"`
	CTAText         string `json:"cta_text,omitempty"`
	Image           string `json:"image,omitempty"`
}

// PageView is everything a client needs to paint one landing page.
type PageView struct {
	Slug         string `json:"slug"`
	ThankYouSlug string `json:"thank_you_slug,omitempty"`
	Language     string `json:"language,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	Headline     string `json:"headline,omitempty"`
	Subheadline  string `json:"subheadline,omitempty"`
	CTAText      string `json:"cta_text,omitempty"`

	Gallery       []string           `json:"gallery,omitempty"`
	Announcements AnnouncementTicker `json:"announcements"`
	Price         PriceView          `json:"price"`
	Benefits      []string           `json:"benefits,omitempty"`
	Features      []FeatureBlock     `json:"features,omitempty"`
	Reviews       ReviewsView        `json:"reviews"`
	Box           *domain.BoxContent `json:"box,omitempty"`
	BottomOffer   *BottomOfferView   `json:"bottom_offer,omitempty"`
	Stock         StockView          `json:"stock"`

	Payment   PaymentView `json:"payment"`
	Insurance AddOnView   `json:"insurance"`
	Gadget    AddOnView   `json:"gadget"`

	FormType       FormType    `json:"form_type"`
	FormFields     []FormField `json:"form_fields,omitempty"`
	CustomFormHTML string      `json:"custom_form_html,omitempty"`

	Labels      map[string]string   `json:"labels"`
	Typography  *domain.Typography  `json:"typography,omitempty"`
	Fragments   Fragments           `json:"fragments"`
	SocialProof SocialProofSchedule `json:"social_proof"`
}

// ThankYouView is the order confirmation page payload.
type ThankYouView struct {
	Slug      string            `json:"slug"`
	PageSlug  string            `json:"page_slug"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Name      string            `json:"name,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Total     string            `json:"total,omitempty"`
	OrderID   string            `json:"order_id,omitempty"`
	Labels    map[string]string `json:"labels"`
	Fragments Fragments         `json:"fragments"`
}

// ContentServiceDeps wires the dependencies for page view assembly.
type ContentServiceDeps struct {
	Pages     repositories.PageRepository
	Pricing   *PricingEngine
	Fragments FragmentService
	// Proof is optional; when nil the page view ships a disabled schedule.
	Proof  *SocialProofSimulator
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type contentService struct {
	pages     repositories.PageRepository
	pricing   *PricingEngine
	fragments FragmentService
	proof     *SocialProofSimulator
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewContentService constructs a ContentService validating required dependencies.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Pages == nil {
		return nil, errors.New("content service: page repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("content service: pricing engine is required")
	}
	if deps.Fragments == nil {
		return nil, errors.New("content service: fragment service is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &contentService{
		pages:     deps.Pages,
		pricing:   deps.Pricing,
		fragments: deps.Fragments,
		proof:     deps.Proof,
		logger:    logger,
	}, nil
}

// BuildPageView loads a published page and maps its content record into the
// render model. Every label resolves through the layered defaults so a page
// generated with missing translations still renders.
func (s *contentService) BuildPageView(ctx context.Context, slug string) (PageView, error) {
	page, err := s.loadPublished(ctx, slug, s.pages.FindBySlug)
	if err != nil {
		return PageView{}, err
	}
	content := page.Content
	labels := domain.ResolveLabels(content.Language, content.UITranslation)

	fragments, err := s.fragments.Prepare(Fragments{
		HeadHTML:    content.Fragments.HeadHTML,
		LandingHTML: content.Fragments.LandingHTML,
	})
	if err != nil {
		s.logger(ctx, "content.fragments_failed", map[string]any{
			"page_slug": page.Slug,
			"error":     err.Error(),
		})
		fragments = Fragments{}
	}

	view := PageView{
		Slug:          page.Slug,
		ThankYouSlug:  page.ResolvedThankYouSlug(),
		Language:      content.Language,
		ProductName:   content.ProductName,
		Headline:      content.Headline,
		Subheadline:   content.Subheadline,
		CTAText:       fallbackLabel(content.CTAText, labels, "order_now"),
		Gallery:       dedupeGallery(content.HeroImage, content.GalleryImages),
		Announcements: buildTicker(content.Announcements),
		Price:         s.buildPriceView(content),
		Benefits:      capBenefits(content.Benefits),
		Features:      content.Features,
		Reviews:       buildReviews(content, labels),
		Box:           content.Box,
		BottomOffer:   s.buildBottomOffer(content),
		Stock:         buildStock(content.Stock, labels),
		Payment:       buildPayment(content),
		Insurance:     s.buildAddOn(content, content.Insurance, labels, "insurance_label"),
		Gadget:        s.buildAddOn(content, content.Gadget, labels, "gadget_label"),
		FormType:      formTypeOrDefault(content.FormType),
		FormFields:    content.EnabledFormFields(),
		Labels:        labels.All(),
		Typography:    content.Typography,
		Fragments:     fragments,
	}
	if view.FormType == domain.FormTypeHTML {
		view.CustomFormHTML = content.CustomFormHTML
	}
	if s.proof != nil {
		view.SocialProof = s.proof.Schedule(content)
	}
	return view, nil
}

// BuildThankYouView resolves a confirmation page by its thank-you slug. The
// visitor details come from the query string and are optional.
func (s *contentService) BuildThankYouView(ctx context.Context, slug string, visitor ThankYouVisitor) (ThankYouView, error) {
	page, err := s.loadPublished(ctx, slug, s.pages.FindByThankYouSlug)
	if err != nil {
		return ThankYouView{}, err
	}

	content := page.Content
	if page.ThankYouContent != nil {
		content = *page.ThankYouContent
	}
	labels := domain.ResolveLabels(content.Language, content.UITranslation)

	fragments, err := s.fragments.Prepare(Fragments{ThankYouHTML: content.Fragments.ThankYouHTML})
	if err != nil {
		s.logger(ctx, "content.fragments_failed", map[string]any{
			"page_slug": page.Slug,
			"error":     err.Error(),
		})
		fragments = Fragments{}
	}

	name := strings.TrimSpace(visitor.Name)
	if name == "" {
		name = labels.Get("thank_you_customer")
	}

	return ThankYouView{
		Slug:      slug,
		PageSlug:  page.Slug,
		Title:     labels.Get("thank_you_title"),
		Message:   labels.Get("thank_you_message"),
		Name:      name,
		Phone:     strings.TrimSpace(visitor.Phone),
		Total:     strings.TrimSpace(visitor.Total),
		OrderID:   strings.TrimSpace(visitor.OrderID),
		Labels:    labels.All(),
		Fragments: fragments,
	}, nil
}

func (s *contentService) loadPublished(ctx context.Context, slug string, find func(context.Context, string) (domain.Page, error)) (domain.Page, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return domain.Page{}, ErrContentInvalidInput
	}
	page, err := find(ctx, trimmed)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Page{}, ErrContentPageNotFound
		}
		return domain.Page{}, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	if !page.Published {
		return domain.Page{}, ErrContentPageNotFound
	}
	return page, nil
}

func (s *contentService) buildPriceView(content ContentRecord) PriceView {
	view := PriceView{
		Current:  s.pricing.DisplayPrice(content, content.Price),
		Original: s.pricing.DisplayPrice(content, content.OriginalPrice),
	}
	if content.EnableShippingCost {
		view.ShippingCost = s.pricing.DisplayPrice(content, content.ShippingCost)
	}

	current := s.pricing.ParseAmount(content.Price)
	original := s.pricing.ParseAmount(content.OriginalPrice)
	if original > current && original > 0 {
		view.DiscountPercent = int(math.Round((original - current) / original * 100))
	}
	return view
}

func (s *contentService) buildBottomOffer(content ContentRecord) *BottomOfferView {
	offer := content.BottomOffer
	if offer == nil || !offer.Enabled {
		return nil
	}
	return &BottomOfferView{
		Title:           offer.Title,
		Text:            offer.Text,
		PriceDisplay:    s.pricing.DisplayPrice(content, offer.Price),
		OriginalDisplay: s.pricing.DisplayPrice(content, offer.OriginalPrice),
		CTAText:         offer.CTAText,
		Image:           offer.Image,
	}
}

func (s *contentService) buildAddOn(content ContentRecord, cfg *domain.AddOnConfig, labels Labels, labelKey string) AddOnView {
	if cfg == nil || !cfg.Enabled {
		return AddOnView{}
	}
	return AddOnView{
		Enabled:        true,
		Label:          fallbackLabel(cfg.Label, labels, labelKey),
		CostDisplay:    s.pricing.DisplayPrice(content, cfg.Cost),
		DefaultChecked: cfg.DefaultChecked,
	}
}

func buildTicker(items []Announcement) AnnouncementTicker {
	ticker := AnnouncementTicker{Items: items}
	switch {
	case len(items) <= 1:
		ticker.Static = true
	default:
		ticker.IntervalSeconds = defaultAnnouncementInterval
	}
	return ticker
}

func buildReviews(content ContentRecord, labels Labels) ReviewsView {
	view := ReviewsView{
		Title: fallbackLabel(content.ReviewsTitle, labels, "reviews_title"),
		Items: content.Testimonials,
	}
	if len(view.Items) == 0 {
		return view
	}
	initial := content.InitialReviewCount
	if initial <= 0 {
		initial = defaultInitialReviewCount
	}
	if initial > len(view.Items) {
		initial = len(view.Items)
	}
	view.InitialVisible = initial
	return view
}

func buildStock(cfg *domain.StockConfig, labels Labels) StockView {
	if cfg == nil || !cfg.Enabled {
		return StockView{}
	}
	quantity := cfg.Quantity
	if quantity <= 0 {
		quantity = domain.DefaultStockQuantity
	}
	if quantity < domain.StockFloor {
		quantity = domain.StockFloor
	}
	message := strings.TrimSpace(cfg.TextOverride)
	if message == "" {
		message = fmt.Sprintf(labels.Get("stock_warning"), quantity)
	}
	return StockView{Enabled: true, Quantity: quantity, Message: message}
}

func buildPayment(content ContentRecord) PaymentView {
	view := PaymentView{
		CODEnabled:    true,
		DefaultMethod: content.DefaultPaymentMethod(),
	}
	if cfg := content.Payment; cfg != nil {
		view.CODEnabled = cfg.CODEnabled
		view.CardEnabled = cfg.CardEnabled
	}
	return view
}

func capBenefits(benefits []string) []string {
	if len(benefits) <= maxVisibleBenefits {
		return benefits
	}
	return benefits[:maxVisibleBenefits]
}

// dedupeGallery unions the hero image with the gallery, preserving order and
// dropping repeats.
func dedupeGallery(hero string, gallery []string) []string {
	seen := make(map[string]struct{}, len(gallery)+1)
	out := make([]string, 0, len(gallery)+1)
	appendImage := func(img string) {
		trimmed := strings.TrimSpace(img)
		if trimmed == "" {
			return
		}
		if _, dup := seen[trimmed]; dup {
			return
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	appendImage(hero)
	for _, img := range gallery {
		appendImage(img)
	}
	return out
}

func formTypeOrDefault(ft FormType) FormType {
	if ft == domain.FormTypeHTML {
		return domain.FormTypeHTML
	}
	return domain.FormTypeClassic
}

func fallbackLabel(value string, labels Labels, key string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return labels.Get(key)
}
