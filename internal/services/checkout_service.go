package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"

	domain "github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/textutil"
	"github.com/pagelift/api/internal/repositories"
)

const (
	defaultSessionTTL       = 30 * time.Minute
	defaultCardDeclineDelay = 2 * time.Second
	maxProvinceLength       = 2
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid form data.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutPageNotFound indicates no published page matches the slug.
	ErrCheckoutPageNotFound = errors.New("checkout: page not found")
	// ErrCheckoutSessionNotFound indicates the session is unknown or expired.
	ErrCheckoutSessionNotFound = errors.New("checkout: session not found")
	// ErrCheckoutInvalidState indicates the operation does not apply to the session's current state.
	ErrCheckoutInvalidState = errors.New("checkout: invalid state")
	// ErrCheckoutMethodDisabled indicates the chosen payment method is not offered by the page.
	ErrCheckoutMethodDisabled = errors.New("checkout: payment method disabled")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Pages    repositories.PageRepository
	Pricing  *PricingEngine
	Sessions SessionStore
	Webhooks WebhookDispatcher
	Events   OrderEventPublisher
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
	IDGen    func() string

	SessionTTL       time.Duration
	CardDeclineDelay time.Duration
}

type checkoutService struct {
	pages    repositories.PageRepository
	pricing  *PricingEngine
	sessions SessionStore
	webhooks WebhookDispatcher
	events   OrderEventPublisher
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
	idGen    func() string

	sessionTTL       time.Duration
	cardDeclineDelay time.Duration
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Pages == nil {
		return nil, errors.New("checkout service: page repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("checkout service: pricing engine is required")
	}
	if deps.Webhooks == nil {
		return nil, errors.New("checkout service: webhook dispatcher is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore(clock)
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	// A negative delay disables the simulated processing pause.
	declineDelay := deps.CardDeclineDelay
	if declineDelay == 0 {
		declineDelay = defaultCardDeclineDelay
	}
	if declineDelay < 0 {
		declineDelay = 0
	}

	return &checkoutService{
		pages:    deps.Pages,
		pricing:  deps.Pricing,
		sessions: sessions,
		webhooks: deps.Webhooks,
		events:   deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		logger:           logger,
		idGen:            idGen,
		sessionTTL:       ttl,
		cardDeclineDelay: declineDelay,
	}, nil
}

// StartSession opens a buyer session for a published page, seeding the payment
// method and add-on checkboxes from the page configuration.
func (s *checkoutService) StartSession(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSession, error) {
	if s == nil || s.pages == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	slug := strings.TrimSpace(cmd.PageSlug)
	if slug == "" {
		return CheckoutSession{}, ErrCheckoutInvalidInput
	}

	page, err := s.pages.FindBySlug(ctx, slug)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutSession{}, ErrCheckoutPageNotFound
		}
		return CheckoutSession{}, fmt.Errorf("checkout: load page: %w", err)
	}
	if !page.Published {
		return CheckoutSession{}, ErrCheckoutPageNotFound
	}

	now := s.now()
	session := CheckoutSession{
		ID:                  s.idGen(),
		PageID:              page.ID,
		PageSlug:            page.Slug,
		State:               StateFormFilling,
		Values:              map[string]string{},
		Method:              page.Content.DefaultPaymentMethod(),
		Insurance:           domain.InitialAddOnSelection(page.Content.Insurance),
		Gadget:              domain.InitialAddOnSelection(page.Content.Gadget),
		HasRedirectCallback: cmd.HasRedirectCallback,
		ClientIP:            strings.TrimSpace(cmd.ClientIP),
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.sessionTTL),
	}
	s.sessions.Put(session)

	s.logger(ctx, "checkout.session_started", map[string]any{
		"session_id": session.ID,
		"page_slug":  page.Slug,
	})
	return session, nil
}

// GetSession returns the live session or ErrCheckoutSessionNotFound.
func (s *checkoutService) GetSession(_ context.Context, sessionID string) (CheckoutSession, error) {
	session, ok := s.sessions.Get(strings.TrimSpace(sessionID))
	if !ok {
		return CheckoutSession{}, ErrCheckoutSessionNotFound
	}
	return session, nil
}

// Submit sanitizes and validates the form, then either declines the card or
// finalizes the order. Card payments always decline; the buyer is offered
// cash on delivery as a fallback.
func (s *checkoutService) Submit(ctx context.Context, cmd SubmitOrderCommand) (CheckoutOutcome, error) {
	session, err := s.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return CheckoutOutcome{}, err
	}
	if session.State != StateFormFilling {
		return CheckoutOutcome{}, ErrCheckoutInvalidState
	}

	page, err := s.pages.FindByID(ctx, session.PageID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutOutcome{}, ErrCheckoutPageNotFound
		}
		return CheckoutOutcome{}, fmt.Errorf("checkout: load page: %w", err)
	}
	content := page.Content

	method := cmd.Method
	if method == "" {
		method = session.Method
	}
	if err := validatePaymentMethod(content, method); err != nil {
		return CheckoutOutcome{}, err
	}

	sanitized, err := sanitizeSubmission(content, cmd.Values)
	if err != nil {
		return CheckoutOutcome{}, err
	}

	session.State = StateSubmitting
	session.Values = sanitized
	session.Method = method
	session.Insurance = cmd.Insurance
	session.Gadget = cmd.Gadget
	if ip := strings.TrimSpace(cmd.ClientIP); ip != "" {
		session.ClientIP = ip
	}
	s.sessions.Put(session)

	if method == domain.PaymentCard {
		if err := s.simulateCardProcessing(ctx); err != nil {
			return CheckoutOutcome{}, err
		}
		session.State = StateCardDeclined
		s.sessions.Put(session)
		s.logger(ctx, "checkout.card_declined", map[string]any{
			"session_id": session.ID,
			"page_slug":  session.PageSlug,
		})
		return CheckoutOutcome{State: StateCardDeclined, Redirect: Redirect{Type: RedirectNone}}, nil
	}

	return s.finalize(ctx, session, page)
}

// AcceptFallback converts a declined card session to cash on delivery and
// finalizes the order.
func (s *checkoutService) AcceptFallback(ctx context.Context, sessionID string) (CheckoutOutcome, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return CheckoutOutcome{}, err
	}
	if session.State != StateCardDeclined {
		return CheckoutOutcome{}, ErrCheckoutInvalidState
	}

	page, err := s.pages.FindByID(ctx, session.PageID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutOutcome{}, ErrCheckoutPageNotFound
		}
		return CheckoutOutcome{}, fmt.Errorf("checkout: load page: %w", err)
	}

	session.Method = domain.PaymentCOD
	s.sessions.Put(session)

	return s.finalize(ctx, session, page)
}

// Abandon discards the session without creating an order. Abandoning an
// unknown session is a no-op.
func (s *checkoutService) Abandon(ctx context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrCheckoutInvalidInput
	}
	s.sessions.Delete(id)
	s.logger(ctx, "checkout.session_abandoned", map[string]any{"session_id": id})
	return nil
}

func (s *checkoutService) simulateCardProcessing(ctx context.Context) error {
	if s.cardDeclineDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.cardDeclineDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *checkoutService) finalize(ctx context.Context, session CheckoutSession, page Page) (CheckoutOutcome, error) {
	content := page.Content
	selections := AddOnSelections{Insurance: session.Insurance, Gadget: session.Gadget}

	order := domain.NewOrderPayload(session.Values)
	order.ID = s.idGen()
	order.PageID = page.ID
	order.PageSlug = page.Slug
	order.ProductName = content.ProductName
	order.Method = session.Method
	order.Total = s.pricing.ComputeTotal(content, selections)
	order.Insurance = domain.AddOnSelection{Selected: domain.AddOnActive(content.Insurance, session.Insurance), Cost: addOnCost(content.Insurance)}
	order.Gadget = domain.AddOnSelection{Selected: domain.AddOnActive(content.Gadget, session.Gadget), Cost: addOnCost(content.Gadget)}
	order.CustomerIP = session.ClientIP
	order.SubmittedAt = s.now()

	if webhookURL := strings.TrimSpace(content.WebhookURL); webhookURL != "" {
		s.webhooks.Dispatch(ctx, webhookURL, s.webhookBody(content, order))
	}
	s.publishOrderEvent(ctx, content, order)

	redirect := resolveRedirect(page, session, order)

	session.State = StateRedirecting
	if redirect.Type == RedirectNone {
		session.State = StateClosed
	}
	s.sessions.Delete(session.ID)

	s.logger(ctx, "checkout.order_finalized", map[string]any{
		"order_id":  order.ID,
		"page_slug": page.Slug,
		"method":    string(order.Method),
		"redirect":  string(redirect.Type),
	})

	return CheckoutOutcome{State: session.State, Order: &order, Redirect: redirect}, nil
}

// webhookBody builds the merchant notification payload. Price fields are
// rendered as "<amount> <symbol>" strings and add-on flags as yes/no.
func (s *checkoutService) webhookBody(content ContentRecord, order OrderPayload) map[string]any {
	symbol := strings.TrimSpace(content.CurrencySymbol)
	amount := func(raw string) string {
		formatted := s.pricing.FormatAmount(s.pricing.ParseAmount(raw))
		if symbol == "" {
			return formatted
		}
		return formatted + " " + symbol
	}
	total := s.pricing.FormatAmount(order.Total)
	if symbol != "" {
		total = total + " " + symbol
	}

	body := map[string]any{
		"event_type":     "new_order",
		"order_id":       order.ID,
		"product_name":   order.ProductName,
		"page_slug":      order.PageSlug,
		"price":          amount(content.Price),
		"shipping_cost":  amount(content.ShippingCost),
		"total":          total,
		"payment_method": string(order.Method),
		"customer_ip":    order.CustomerIP,
		"timestamp":      order.SubmittedAt.Format(time.RFC3339),
		"name":           order.Name,
		"phone":          order.Phone,
		"email":          order.Email,
		"address":        order.Address,
		"city":           order.City,
		"cap":            order.Cap,
		"province":       order.Province,
		"insurance":      yesNo(order.Insurance.Selected),
		"gadget":         yesNo(order.Gadget.Selected),
	}
	if order.Insurance.Selected {
		body["insurance_cost"] = amount(order.Insurance.Cost)
	}
	if order.Gadget.Selected {
		body["gadget_cost"] = amount(order.Gadget.Cost)
	}
	for key, value := range order.Extras {
		if _, exists := body[key]; !exists {
			body[key] = value
		}
	}
	return body
}

func (s *checkoutService) publishOrderEvent(ctx context.Context, content ContentRecord, order OrderPayload) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		EventType:     "order.recorded",
		OrderID:       order.ID,
		PageSlug:      order.PageSlug,
		PaymentMethod: string(order.Method),
		Total:         s.pricing.FormatAmount(order.Total),
		Currency:      strings.TrimSpace(content.CurrencySymbol),
		RecordedAt:    order.SubmittedAt,
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "checkout.order_event_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

// resolveRedirect picks the single post-order destination, in priority order:
// native form navigation, custom thank-you URL, caller callback, internal
// thank-you slug, or none.
func resolveRedirect(page Page, session CheckoutSession, order OrderPayload) Redirect {
	content := page.Content

	nativeAction := ""
	intercept := false
	if content.FormType == domain.FormTypeHTML && content.HTMLForm != nil {
		nativeAction = strings.TrimSpace(content.HTMLForm.NativeAction)
		intercept = content.HTMLForm.InterceptSubmit
	}
	if nativeAction != "" && !intercept && !page.ThankYouEnabled() {
		return Redirect{Type: RedirectNative}
	}

	if custom := strings.TrimSpace(content.CustomThankYouURL); custom != "" {
		return Redirect{Type: RedirectCustom, URL: buildCustomThankYouURL(custom, order.Name, order.Phone)}
	}

	if session.HasRedirectCallback {
		return Redirect{Type: RedirectCallback}
	}

	if page.ThankYouEnabled() {
		slug := page.ResolvedThankYouSlug()
		if slug != "" {
			query := url.Values{}
			query.Set("name", order.Name)
			query.Set("phone", order.Phone)
			return Redirect{Type: RedirectThankYou, URL: "/" + slug + "?" + query.Encode()}
		}
	}

	return Redirect{Type: RedirectNone}
}

// buildCustomThankYouURL interpolates {name}/{phone} and [name]/[phone]
// placeholders and appends name/phone query parameters. Unparseable URLs fall
// back to plain string concatenation.
func buildCustomThankYouURL(raw, name, phone string) string {
	interpolated := raw
	for placeholder, value := range map[string]string{
		"{name}":  name,
		"{phone}": phone,
		"[name]":  name,
		"[phone]": phone,
	} {
		interpolated = strings.ReplaceAll(interpolated, placeholder, value)
	}

	parsed, err := url.Parse(interpolated)
	if err != nil {
		separator := "?"
		if strings.Contains(interpolated, "?") {
			separator = "&"
		}
		return interpolated + separator + "name=" + url.QueryEscape(name) + "&phone=" + url.QueryEscape(phone)
	}

	query := parsed.Query()
	query.Set("name", name)
	query.Set("phone", phone)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func validatePaymentMethod(content ContentRecord, method PaymentMethod) error {
	switch method {
	case domain.PaymentCOD:
		if content.Payment != nil && !content.Payment.CODEnabled {
			return ErrCheckoutMethodDisabled
		}
	case domain.PaymentCard:
		if content.Payment == nil || !content.Payment.CardEnabled {
			return ErrCheckoutMethodDisabled
		}
	default:
		return ErrCheckoutInvalidInput
	}
	return nil
}

// sanitizeSubmission cleans every submitted value against the page's field
// configuration and enforces required fields. Values without a configured
// field pass through untouched; they come from raw HTML form mode.
func sanitizeSubmission(content ContentRecord, values map[string]string) (map[string]string, error) {
	values = textutil.NormalizeStringMap(values)

	fields := make(map[string]FormField)
	for _, field := range content.EnabledFormFields() {
		fields[strings.ToLower(strings.TrimSpace(field.ID))] = field
	}

	sanitized := make(map[string]string, len(values))
	satisfied := make(map[string]string, len(fields))
	for key, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if field, ok := fields[normalized]; ok {
			clean := SanitizeFieldValue(field, value)
			sanitized[key] = clean
			satisfied[normalized] = clean
			continue
		}
		sanitized[key] = sanitizeProvinceIfApplicable(normalized, value)
	}

	for _, field := range content.EnabledFormFields() {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(satisfied[strings.ToLower(strings.TrimSpace(field.ID))]) == "" {
			return nil, fmt.Errorf("%w: field %q is required", ErrCheckoutInvalidInput, field.ID)
		}
	}
	return sanitized, nil
}

// SanitizeFieldValue applies the field's validation type. Province-style
// fields are additionally uppercased, stripped to letters, and clamped to two
// characters regardless of configured type.
func SanitizeFieldValue(field FormField, value string) string {
	switch field.ValidationType {
	case domain.ValidationNumeric:
		value = keepRunes(value, func(r rune) bool { return r >= '0' && r <= '9' })
	case domain.ValidationAlpha:
		value = keepRunes(value, func(r rune) bool { return unicode.IsLetter(r) || r == ' ' })
	case domain.ValidationAlphanumeric:
		value = keepRunes(value, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' '
		})
	}
	return sanitizeProvinceIfApplicable(strings.ToLower(strings.TrimSpace(field.ID)), value)
}

func sanitizeProvinceIfApplicable(fieldID, value string) string {
	if !isProvinceField(fieldID) {
		return value
	}
	letters := keepRunes(value, unicode.IsLetter)
	upper := strings.ToUpper(letters)
	runes := []rune(upper)
	if len(runes) > maxProvinceLength {
		runes = runes[:maxProvinceLength]
	}
	return string(runes)
}

func isProvinceField(fieldID string) bool {
	for _, alias := range domain.FieldAliases(domain.FieldProvince) {
		if fieldID == alias {
			return true
		}
	}
	return false
}

func keepRunes(value string, keep func(rune) bool) string {
	var out strings.Builder
	for _, r := range value {
		if keep(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func addOnCost(cfg *AddOnConfig) string {
	if cfg == nil {
		return ""
	}
	return cfg.Cost
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
