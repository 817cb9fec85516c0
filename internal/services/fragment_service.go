package services

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InjectionStrategy decides how operator-supplied HTML fragments reach the
// rendered page. Pixels and widgets need their script tags intact, which is
// why the trusted strategy exists; the sanitizing one is for pages whose
// fragments come from untrusted editors.
type InjectionStrategy interface {
	Name() string
	Prepare(fragment string) string
}

type passthroughStrategy struct{}

// NewPassthroughStrategy returns fragments unchanged so embedded scripts run.
func NewPassthroughStrategy() InjectionStrategy {
	return passthroughStrategy{}
}

func (passthroughStrategy) Name() string { return "passthrough" }

func (passthroughStrategy) Prepare(fragment string) string { return fragment }

type sanitizingStrategy struct {
	policy *bluemonday.Policy
}

// NewSanitizingStrategy strips scripts and event handlers from fragments while
// keeping common markup, iframes included for embedded video widgets.
func NewSanitizingStrategy() InjectionStrategy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption", "video", "source")
	policy.AllowAttrs("class", "style").OnElements("div", "span", "p", "figure", "figcaption")
	policy.AllowAttrs("src", "controls", "autoplay", "muted", "loop", "playsinline").OnElements("video", "source")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return &sanitizingStrategy{policy: policy}
}

func (*sanitizingStrategy) Name() string { return "sanitizing" }

func (s *sanitizingStrategy) Prepare(fragment string) string {
	return s.policy.Sanitize(fragment)
}

// FragmentServiceDeps wires the fragment preparation service.
type FragmentServiceDeps struct {
	Strategy InjectionStrategy
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type fragmentService struct {
	strategy InjectionStrategy
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewFragmentService constructs a FragmentService using the given strategy.
// The passthrough strategy is the default; operator fragments are trusted
// input in the normal deployment.
func NewFragmentService(deps FragmentServiceDeps) (FragmentService, error) {
	strategy := deps.Strategy
	if strategy == nil {
		strategy = NewPassthroughStrategy()
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &fragmentService{strategy: strategy, logger: logger}, nil
}

// Prepare runs every mount point's fragment through the strategy. Blank
// fragments stay blank, and preparation never fails the page render.
func (s *fragmentService) Prepare(fragments Fragments) (Fragments, error) {
	return Fragments{
		HeadHTML:     s.prepareOne(fragments.HeadHTML),
		LandingHTML:  s.prepareOne(fragments.LandingHTML),
		ThankYouHTML: s.prepareOne(fragments.ThankYouHTML),
	}, nil
}

func (s *fragmentService) prepareOne(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	return s.strategy.Prepare(fragment)
}
