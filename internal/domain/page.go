package domain

import (
	"strings"
	"time"
)

// DefaultThankYouSuffix is appended to a page slug when the operator enables
// internal thank-you generation without picking a suffix.
const DefaultThankYouSuffix = "-grazie"

// Page is one persisted landing page record. Content becomes immutable input
// once loaded for visitor display; renderer and checkout never write back.
type Page struct {
	ID              string
	Slug            string
	ThankYouSlug    string
	Content         ContentRecord
	ThankYouContent *ContentRecord
	Published       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResolvedThankYouSlug returns the internal confirmation slug, deriving it
// from the page slug and the configured suffix when not explicitly stored.
func (p Page) ResolvedThankYouSlug() string {
	if slug := strings.TrimSpace(p.ThankYouSlug); slug != "" {
		return slug
	}
	cfg := p.Content.ThankYou
	if cfg == nil || !cfg.Enabled {
		return ""
	}
	suffix := strings.TrimSpace(cfg.SlugSuffix)
	if suffix == "" {
		suffix = DefaultThankYouSuffix
	}
	base := strings.TrimSpace(p.Slug)
	if base == "" {
		return ""
	}
	return base + suffix
}

// ThankYouEnabled reports whether the internal confirmation page may be used
// as a redirect target.
func (p Page) ThankYouEnabled() bool {
	if p.Content.ThankYou != nil && !p.Content.ThankYou.Enabled {
		return false
	}
	return p.ResolvedThankYouSlug() != ""
}
