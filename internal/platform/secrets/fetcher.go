package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	refPrefix      = "secret://"
	defaultVersion = "latest"
)

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references against Secret Manager with a
// process-local cache. It satisfies config.SecretResolver.
type Fetcher struct {
	client         secretManagerClient
	defaultProject string
	logger         *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// Option customises the Fetcher.
type Option func(*fetcherConfig)

type fetcherConfig struct {
	logger         *zap.Logger
	defaultProject string
	client         secretManagerClient
	clientOpts     []option.ClientOption
}

// WithLogger attaches a logger used for resolution failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *fetcherConfig) {
		c.logger = logger
	}
}

// WithDefaultProject sets the project used for short references
// (secret://NAME) that omit the full resource path.
func WithDefaultProject(projectID string) Option {
	return func(c *fetcherConfig) {
		c.defaultProject = strings.TrimSpace(projectID)
	}
}

// WithSecretManagerClient injects a client, primarily for tests.
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(c *fetcherConfig) {
		c.client = client
	}
}

// WithClientOptions appends options used when dialing the real client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *fetcherConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// NewFetcher constructs a Fetcher, dialing Secret Manager unless a client was
// injected.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	client := cfg.client
	if client == nil {
		created, err := secretManagerClientFactory(ctx, cfg.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		client = created
	}

	return &Fetcher{
		client:         client,
		defaultProject: cfg.defaultProject,
		logger:         cfg.logger,
		cache:          make(map[string]string),
	}, nil
}

// Close releases the underlying client.
func (f *Fetcher) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// ResolveSecret fetches the referenced secret version, caching successful
// lookups for the process lifetime.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	if f == nil || f.client == nil {
		return "", errors.New("secrets: fetcher not initialised")
	}

	name, err := f.resourceName(ref)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	cached, ok := f.cache[name]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		f.logger.Warn("secret resolution failed", zap.String("secret", maskReference(ref)), zap.Error(err))
		return "", fmt.Errorf("secrets: access %s: %w", maskReference(ref), err)
	}
	payload := ""
	if resp.GetPayload() != nil {
		payload = string(resp.GetPayload().GetData())
	}

	f.mu.Lock()
	f.cache[name] = payload
	f.mu.Unlock()

	return payload, nil
}

// resourceName expands a secret:// reference into the full Secret Manager
// version resource. Accepted forms:
//
//	secret://NAME
//	secret://NAME/versions/V
//	secret://projects/P/secrets/NAME[/versions/V]
func (f *Fetcher) resourceName(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, refPrefix) {
		return "", fmt.Errorf("secrets: unsupported reference %q", maskReference(ref))
	}
	path := strings.Trim(strings.TrimPrefix(trimmed, refPrefix), "/")
	if path == "" {
		return "", errors.New("secrets: empty reference")
	}

	if strings.HasPrefix(path, "projects/") {
		if !strings.Contains(path, "/versions/") {
			path += "/versions/" + defaultVersion
		}
		return path, nil
	}

	if f.defaultProject == "" {
		return "", fmt.Errorf("secrets: short reference %q requires a default project", maskReference(ref))
	}

	name := path
	version := defaultVersion
	if idx := strings.Index(path, "/versions/"); idx >= 0 {
		name = path[:idx]
		version = strings.Trim(path[idx+len("/versions/"):], "/")
	}
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("secrets: malformed reference %q", maskReference(ref))
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.defaultProject, name, version), nil
}

func maskReference(ref string) string {
	trimmed := strings.TrimSpace(ref)
	if len(trimmed) <= len(refPrefix)+4 {
		return "secret://***"
	}
	return trimmed[:len(refPrefix)+4] + "***"
}
