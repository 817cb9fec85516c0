package domain

import "strings"

// CurrencyPosition controls where the currency symbol renders relative to the amount.
type CurrencyPosition string

const (
	// CurrencyBefore renders the symbol ahead of the amount (e.g. "€39,90").
	CurrencyBefore CurrencyPosition = "before"
	// CurrencyAfter renders the symbol after the amount (e.g. "39,90 lei").
	CurrencyAfter CurrencyPosition = "after"
)

// PaymentMethod identifies how the visitor intends to pay.
type PaymentMethod string

const (
	// PaymentCOD is cash on delivery.
	PaymentCOD PaymentMethod = "cod"
	// PaymentCard is the simulated card path. Card attempts always decline.
	PaymentCard PaymentMethod = "card"
)

// FormType selects between the generated structured form and an operator-supplied HTML fragment.
type FormType string

const (
	FormTypeClassic FormType = "classic"
	FormTypeHTML    FormType = "html"
)

// ValidationType names the client-side sanitization rule applied to a form field.
type ValidationType string

const (
	ValidationNone         ValidationType = "none"
	ValidationNumeric      ValidationType = "numeric"
	ValidationAlpha        ValidationType = "alpha"
	ValidationAlphanumeric ValidationType = "alphanumeric"
)

// Announcement is a single ticker entry cycled in the sticky announcement bar.
type Announcement struct {
	Text     string `json:"text"`
	Icon     string `json:"icon,omitempty"`
	IconSize int    `json:"icon_size,omitempty"`
}

// FeatureBlock describes one alternating image/text section of the landing page.
type FeatureBlock struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	ShowCTA     bool   `json:"show_cta,omitempty"`
}

// Testimonial is a visitor review; images are optional and open a lightbox when present.
type Testimonial struct {
	Name   string   `json:"name"`
	Text   string   `json:"text"`
	Rating int      `json:"rating,omitempty"`
	Images []string `json:"images,omitempty"`
}

// FormField configures one input of the generated checkout form.
type FormField struct {
	ID             string         `json:"id"`
	Label          string         `json:"label"`
	Type           string         `json:"type"`
	Enabled        bool           `json:"enabled"`
	Required       bool           `json:"required"`
	Width          string         `json:"width,omitempty"`
	ValidationType ValidationType `json:"validation_type,omitempty"`
}

// StockConfig drives the simulated scarcity counter. Quantity only ever
// decreases during a session and is clamped at StockFloor.
type StockConfig struct {
	Enabled      bool   `json:"enabled"`
	Quantity     int    `json:"quantity"`
	TextOverride string `json:"text_override,omitempty"`
}

// StockFloor is the minimum value the scarcity counter may display.
const StockFloor = 2

// DefaultStockQuantity seeds the counter when the config omits a quantity.
const DefaultStockQuantity = 13

// SocialProofConfig tunes the synthetic "recent purchase" notifications.
type SocialProofConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds,omitempty"`
	MaxShows        int  `json:"max_shows,omitempty"`
}

// AddOnConfig describes an optional paid extra (insurance, gadget). The cost
// is a free-form price string and contributes to the total only when the
// module is enabled and the visitor keeps the checkbox selected.
type AddOnConfig struct {
	Enabled        bool   `json:"enabled"`
	Label          string `json:"label,omitempty"`
	Cost           string `json:"cost,omitempty"`
	DefaultChecked bool   `json:"default_checked,omitempty"`
}

// PaymentConfig enables payment methods and picks the preselected one.
type PaymentConfig struct {
	CODEnabled    bool          `json:"cod_enabled"`
	CardEnabled   bool          `json:"card_enabled"`
	DefaultMethod PaymentMethod `json:"default_method,omitempty"`
}

// BoxContent is the optional "what's in the box" section.
type BoxContent struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

// BottomOffer is the optional promotional block above the footer with its own price and CTA.
type BottomOffer struct {
	Enabled       bool   `json:"enabled"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text,omitempty"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`
	CTAText       string `json:"cta_text,omitempty"`
	Image         string `json:"image,omitempty"`
}

// Typography carries the data-driven font overrides. Explicit pixel sizes win
// over named size tiers; a class name and a raw CSS value are mutually
// exclusive per color field.
type Typography struct {
	TitleFont   string `json:"title_font,omitempty"`
	BodyFont    string `json:"body_font,omitempty"`
	TitleSize   string `json:"title_size,omitempty"`
	BodySize    string `json:"body_size,omitempty"`
	TitleSizePx int    `json:"title_size_px,omitempty"`
	BodySizePx  int    `json:"body_size_px,omitempty"`
	TitleColor  string `json:"title_color,omitempty"`
}

// ThankYouConfig controls generation of the internal confirmation page.
type ThankYouConfig struct {
	Enabled    bool   `json:"enabled"`
	SlugSuffix string `json:"slug_suffix,omitempty"`
}

// HTMLFormConfig tunes the raw-HTML form mode. When the fragment declares a
// native action and InterceptSubmit is false, the browser's own navigation is
// allowed to proceed after finalization.
type HTMLFormConfig struct {
	InterceptSubmit bool   `json:"intercept_submit"`
	NativeAction    string `json:"native_action,omitempty"`
}

// Fragments holds the operator-supplied HTML/script strings per mount point.
type Fragments struct {
	HeadHTML     string `json:"head_html,omitempty"`
	LandingHTML  string `json:"landing_html,omitempty"`
	ThankYouHTML string `json:"thank_you_html,omitempty"`
}

// ContentRecord is the full renderable payload of one landing page. The core
// fields are always present after generation; feature modules are pointers so
// absence is distinguishable from a present-but-misconfigured section.
//
// Price-like fields (Price, OriginalPrice, ShippingCost, AddOnConfig.Cost) are
// free-form strings that may embed currency symbols. They are never normalized
// in the record itself; arithmetic goes through the pricing engine.
type ContentRecord struct {
	Language         string           `json:"language,omitempty"`
	CurrencySymbol   string           `json:"currency_symbol,omitempty"`
	CurrencyPosition CurrencyPosition `json:"currency_position,omitempty"`

	ProductName string `json:"product_name,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Subheadline string `json:"subheadline,omitempty"`
	CTAText     string `json:"cta_text,omitempty"`

	Price              string `json:"price,omitempty"`
	OriginalPrice      string `json:"original_price,omitempty"`
	ShippingCost       string `json:"shipping_cost,omitempty"`
	EnableShippingCost bool   `json:"enable_shipping_cost,omitempty"`

	HeroImage     string   `json:"hero_image,omitempty"`
	GalleryImages []string `json:"gallery_images,omitempty"`

	Benefits      []string       `json:"benefits,omitempty"`
	Features      []FeatureBlock `json:"features,omitempty"`
	Announcements []Announcement `json:"announcements,omitempty"`

	Testimonials       []Testimonial `json:"testimonials,omitempty"`
	ReviewsTitle       string        `json:"reviews_title,omitempty"`
	InitialReviewCount int           `json:"initial_review_count,omitempty"`

	Stock       *StockConfig       `json:"stock_config,omitempty"`
	SocialProof *SocialProofConfig `json:"social_proof_config,omitempty"`
	Insurance   *AddOnConfig       `json:"insurance_config,omitempty"`
	Gadget      *AddOnConfig       `json:"gadget_config,omitempty"`
	Payment     *PaymentConfig     `json:"payment_config,omitempty"`
	Box         *BoxContent        `json:"box_content,omitempty"`
	BottomOffer *BottomOffer       `json:"bottom_offer,omitempty"`
	Typography  *Typography        `json:"typography,omitempty"`
	ThankYou    *ThankYouConfig    `json:"thank_you_config,omitempty"`

	FormType       FormType        `json:"form_type,omitempty"`
	FormFields     []FormField     `json:"form_configuration,omitempty"`
	CustomFormHTML string          `json:"custom_form_html,omitempty"`
	HTMLForm       *HTMLFormConfig `json:"html_form_config,omitempty"`

	UITranslation map[string]string `json:"ui_translation,omitempty"`
	Fragments     Fragments         `json:"fragments,omitempty"`

	WebhookURL        string `json:"webhook_url,omitempty"`
	CustomThankYouURL string `json:"custom_thank_you_url,omitempty"`
}

// EnabledFormFields returns the fields that should render, preserving order.
// Required and ValidationType are meaningful only on the returned entries.
func (c ContentRecord) EnabledFormFields() []FormField {
	if len(c.FormFields) == 0 {
		return nil
	}
	fields := make([]FormField, 0, len(c.FormFields))
	for _, field := range c.FormFields {
		if !field.Enabled {
			continue
		}
		if strings.TrimSpace(field.ID) == "" {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

// DefaultPaymentMethod resolves the preselected method, falling back to cash
// on delivery when the configured default is absent or disabled.
func (c ContentRecord) DefaultPaymentMethod() PaymentMethod {
	cfg := c.Payment
	if cfg == nil {
		return PaymentCOD
	}
	switch cfg.DefaultMethod {
	case PaymentCard:
		if cfg.CardEnabled {
			return PaymentCard
		}
	case PaymentCOD:
		if cfg.CODEnabled {
			return PaymentCOD
		}
	}
	if cfg.CODEnabled || !cfg.CardEnabled {
		return PaymentCOD
	}
	return PaymentCard
}

// AddOnActive reports whether the add-on contributes to totals given the
// visitor's checkbox state. Disabled modules never contribute.
func AddOnActive(cfg *AddOnConfig, selected bool) bool {
	return cfg != nil && cfg.Enabled && selected
}

// InitialAddOnSelection seeds the checkout checkbox from the module config.
func InitialAddOnSelection(cfg *AddOnConfig) bool {
	return cfg != nil && cfg.Enabled && cfg.DefaultChecked
}
