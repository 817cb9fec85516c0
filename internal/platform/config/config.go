package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultWebhookTimeout      = 10 * time.Second
	defaultWebhookSignHeader   = "X-Pagelift-Signature"
	defaultGeneratorTimeout    = 90 * time.Second
	defaultGeneratorModel      = "gemini-2.0-flash"
	defaultPageCacheTTL        = 5 * time.Minute
	defaultSessionTTL          = 30 * time.Minute
	defaultCheckoutPerMinute   = 30
	defaultPagesPerMinute      = 300
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultIdempotencySweep    = 10 * time.Minute
	defaultIdempotencyBatch    = 100
	defaultSecurityEnvironment = "local"
	defaultLanguage            = "it"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	Generator   GeneratorConfig
	Webhooks    WebhookConfig
	Pages       PagesConfig
	Checkout    CheckoutConfig
	Events      EventsConfig
	RateLimits  RateLimitConfig
	Idempotency IdempotencyConfig
	Features    FeatureFlags
	Security    SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// GeneratorConfig defines the endpoint and credentials of the content
// generation provider. The API key is injected here once at startup and
// passed to the client explicitly; nothing reads it from ambient globals.
type GeneratorConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// WebhookConfig tunes outbound order-notification delivery.
type WebhookConfig struct {
	Timeout         time.Duration
	SigningSecret   string
	SignatureHeader string
	AllowedHosts    []string
}

// PagesConfig controls public page serving.
type PagesConfig struct {
	CacheTTL        time.Duration
	DefaultLanguage string
}

// CheckoutConfig controls checkout session lifecycle.
type CheckoutConfig struct {
	SessionTTL time.Duration
}

// EventsConfig names the Pub/Sub destination for order analytics events.
type EventsConfig struct {
	ProjectID  string
	OrderTopic string
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	CheckoutPerMinute int
	PagesPerMinute    int
}

// IdempotencyConfig tunes duplicate-submit protection on checkout endpoints.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableGeneration  bool
	EnableOrderEvents bool
	SanitizeFragments bool
	EnableSocialProof bool
}

// SecurityConfig groups cross-origin and environment settings.
type SecurityConfig struct {
	Environment    string
	AllowedOrigins []string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	names := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		names = append(names, secret.redacted)
	}
	sort.Strings(names)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(names, ", "))
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.name)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers match the config field names recorded by the loader
// (e.g. "Generator.APIKey" or "Webhooks.SigningSecret").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PAGELIFT_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "PAGELIFT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "PAGELIFT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "PAGELIFT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "PAGELIFT_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "PAGELIFT_FIRESTORE_EMULATOR_HOST", ""),
		},
		Generator: GeneratorConfig{
			Endpoint: stringWithDefault(lookup, "PAGELIFT_GENERATOR_ENDPOINT", ""),
			Model:    stringWithDefault(lookup, "PAGELIFT_GENERATOR_MODEL", defaultGeneratorModel),
			APIKey:   stringWithDefault(lookup, "PAGELIFT_GENERATOR_API_KEY", ""),
			Timeout:  durationWithDefault(lookup, "PAGELIFT_GENERATOR_TIMEOUT", defaultGeneratorTimeout),
		},
		Webhooks: WebhookConfig{
			Timeout:         durationWithDefault(lookup, "PAGELIFT_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
			SigningSecret:   stringWithDefault(lookup, "PAGELIFT_WEBHOOK_SIGNING_SECRET", ""),
			SignatureHeader: stringWithDefault(lookup, "PAGELIFT_WEBHOOK_SIGNATURE_HEADER", defaultWebhookSignHeader),
			AllowedHosts:    csvWithDefault(lookup, "PAGELIFT_WEBHOOK_ALLOWED_HOSTS"),
		},
		Pages: PagesConfig{
			CacheTTL:        durationWithDefault(lookup, "PAGELIFT_PAGES_CACHE_TTL", defaultPageCacheTTL),
			DefaultLanguage: stringWithDefault(lookup, "PAGELIFT_PAGES_DEFAULT_LANGUAGE", defaultLanguage),
		},
		Checkout: CheckoutConfig{
			SessionTTL: durationWithDefault(lookup, "PAGELIFT_CHECKOUT_SESSION_TTL", defaultSessionTTL),
		},
		Events: EventsConfig{
			ProjectID:  stringWithDefault(lookup, "PAGELIFT_EVENTS_PROJECT_ID", ""),
			OrderTopic: stringWithDefault(lookup, "PAGELIFT_EVENTS_ORDER_TOPIC", ""),
		},
		RateLimits: RateLimitConfig{
			CheckoutPerMinute: intWithDefault(lookup, "PAGELIFT_RATELIMIT_CHECKOUT_PER_MIN", defaultCheckoutPerMinute),
			PagesPerMinute:    intWithDefault(lookup, "PAGELIFT_RATELIMIT_PAGES_PER_MIN", defaultPagesPerMinute),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "PAGELIFT_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "PAGELIFT_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "PAGELIFT_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencySweep),
			CleanupBatchSize: intWithDefault(lookup, "PAGELIFT_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatch),
		},
		Features: FeatureFlags{
			EnableGeneration:  boolWithDefault(lookup, "PAGELIFT_FEATURE_GENERATION", true),
			EnableOrderEvents: boolWithDefault(lookup, "PAGELIFT_FEATURE_ORDER_EVENTS", false),
			SanitizeFragments: boolWithDefault(lookup, "PAGELIFT_FEATURE_SANITIZE_FRAGMENTS", false),
			EnableSocialProof: boolWithDefault(lookup, "PAGELIFT_FEATURE_SOCIAL_PROOF", true),
		},
		Security: SecurityConfig{
			Environment:    strings.ToLower(stringWithDefault(lookup, "PAGELIFT_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
			AllowedOrigins: csvWithDefault(lookup, "PAGELIFT_SECURITY_ALLOWED_ORIGINS"),
		},
	}

	// Events default to the Firestore project when unspecified.
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Firestore.ProjectID
	}

	resolvedSecrets := make(map[string]string)
	resolveField := func(name string, field *string) error {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return err
		}
		*field = resolved
		resolvedSecrets[name] = strings.TrimSpace(resolved)
		return nil
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Generator.APIKey", &cfg.Generator.APIKey},
		{"Webhooks.SigningSecret", &cfg.Webhooks.SigningSecret},
	}
	for _, target := range secretFields {
		if err := resolveField(target.name, target.field); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		normalized := normalizeSecretReference(value)
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	normalized := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Webhooks.Timeout <= 0 {
		missing = append(missing, "Webhooks.Timeout")
	}
	if cfg.Checkout.SessionTTL <= 0 {
		missing = append(missing, "Checkout.SessionTTL")
	}
	if cfg.Features.EnableGeneration && cfg.Generator.Endpoint == "" {
		missing = append(missing, "Generator.Endpoint")
	}
	if cfg.Features.EnableOrderEvents && cfg.Events.OrderTopic == "" {
		missing = append(missing, "Events.OrderTopic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	if len(required) == 0 {
		return nil
	}
	missing := make([]missingSecret, 0, len(required))
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if value := strings.TrimSpace(resolved[trimmed]); value != "" {
			continue
		}
		missing = append(missing, missingSecret{
			name:     trimmed,
			redacted: redactSecretName(trimmed),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
