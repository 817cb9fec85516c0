package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagelift/api/internal/platform/config"
	"github.com/pagelift/api/internal/platform/generator"
	"github.com/pagelift/api/internal/platform/webhooks"
	"github.com/pagelift/api/internal/repositories"
	"github.com/pagelift/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Generation is nil when the feature flag is off.
type Services struct {
	Pages      services.PageService
	Content    services.ContentService
	Checkout   services.CheckoutService
	Generation services.GenerationService
	System     services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

type containerConfig struct {
	logger    *zap.Logger
	clock     func() time.Time
	webhooks  services.WebhookDispatcher
	events    services.OrderEventPublisher
	generator services.ContentGenerator
	build     services.BuildInfo
}

// ContainerOption customises container construction.
type ContainerOption func(*containerConfig)

// WithLogger installs the structured logger services emit events through.
func WithLogger(logger *zap.Logger) ContainerOption {
	return func(c *containerConfig) {
		c.logger = logger
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) ContainerOption {
	return func(c *containerConfig) {
		c.clock = clock
	}
}

// WithWebhookDispatcher overrides the outbound order-notification transport.
func WithWebhookDispatcher(dispatcher services.WebhookDispatcher) ContainerOption {
	return func(c *containerConfig) {
		c.webhooks = dispatcher
	}
}

// WithOrderEventPublisher installs the analytics event stream.
func WithOrderEventPublisher(publisher services.OrderEventPublisher) ContainerOption {
	return func(c *containerConfig) {
		c.events = publisher
	}
}

// WithContentGenerator overrides the external content generation client.
func WithContentGenerator(gen services.ContentGenerator) ContainerOption {
	return func(c *containerConfig) {
		c.generator = gen
	}
}

// WithBuildInfo records version metadata surfaced by the health report.
func WithBuildInfo(build services.BuildInfo) ContainerOption {
	return func(c *containerConfig) {
		c.build = build
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// a Firestore-backed registry; tests can supply in-memory implementations.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	cc := containerConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.logger == nil {
		cc.logger = zap.NewNop()
	}
	if cc.clock == nil {
		cc.clock = time.Now
	}

	svc, err := buildServices(ctx, reg, cfg, cc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, cc containerConfig) (Services, error) {
	var svc Services

	pagesRepo := reg.Pages()
	if pagesRepo == nil {
		return Services{}, errors.New("page repository is required")
	}

	pricing := services.NewPricingEngine()

	strategy := services.NewPassthroughStrategy()
	if cfg.Features.SanitizeFragments {
		strategy = services.NewSanitizingStrategy()
	}
	fragments, err := services.NewFragmentService(services.FragmentServiceDeps{
		Strategy: strategy,
		Logger:   eventLogger(cc.logger.Named("fragments")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fragment service: %w", err)
	}

	var proof *services.SocialProofSimulator
	if cfg.Features.EnableSocialProof {
		proof = services.NewSocialProofSimulator(services.SocialProofSimulatorDeps{})
	}

	contentSvc, err := services.NewContentService(services.ContentServiceDeps{
		Pages:     pagesRepo,
		Pricing:   pricing,
		Fragments: fragments,
		Proof:     proof,
		Logger:    eventLogger(cc.logger.Named("content")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build content service: %w", err)
	}
	svc.Content = contentSvc

	pageSvc, err := services.NewPageService(services.PageServiceDeps{
		Pages:  pagesRepo,
		Clock:  cc.clock,
		Logger: eventLogger(cc.logger.Named("pages")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build page service: %w", err)
	}
	svc.Pages = pageSvc

	dispatcher := cc.webhooks
	if dispatcher == nil {
		dispatcher, err = webhooks.NewHTTPDispatcher(cfg.Webhooks,
			webhooks.WithLogger(eventLogger(cc.logger.Named("webhooks"))),
		)
		if err != nil {
			return Services{}, fmt.Errorf("build webhook dispatcher: %w", err)
		}
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Pages:      pagesRepo,
		Pricing:    pricing,
		Sessions:   services.NewMemorySessionStore(cc.clock),
		Webhooks:   dispatcher,
		Events:     cc.events,
		Clock:      cc.clock,
		Logger:     eventLogger(cc.logger.Named("checkout")),
		SessionTTL: cfg.Checkout.SessionTTL,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	if cfg.Features.EnableGeneration {
		gen := cc.generator
		if gen == nil {
			client, err := generator.NewClient(cfg.Generator)
			if err != nil {
				return Services{}, fmt.Errorf("build generator client: %w", err)
			}
			gen = client
		}
		generationSvc, err := services.NewGenerationService(services.GenerationServiceDeps{
			Generator: gen,
			Pages:     pageSvc,
			Clock:     cc.clock,
			Logger:    eventLogger(cc.logger.Named("generation")),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build generation service: %w", err)
		}
		svc.Generation = generationSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            cc.clock,
			Build:            cc.build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info(event, zFields...)
	}
}
