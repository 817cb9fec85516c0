package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/platform/config"
	"github.com/pagelift/api/internal/services"
)

const (
	defaultTimeout   = 60 * time.Second
	apiKeyHeader     = "x-goog-api-key"
	maxErrorBodySize = 2048
)

// Client calls the external content generation endpoint. A failed call yields
// the provider's error verbatim; no partial content record is ever produced.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

var _ services.ContentGenerator = (*Client)(nil)

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient builds a generator client from configuration.
func NewClient(cfg config.GeneratorConfig, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("generator: endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		endpoint: endpoint,
		model:    strings.TrimSpace(cfg.Model),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type generateRequest struct {
	Model       string `json:"model,omitempty"`
	Brief       string `json:"brief"`
	Language    string `json:"language,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Price       string `json:"price,omitempty"`
}

type generateResponse struct {
	Content *domain.ContentRecord `json:"content"`
	Error   string                `json:"error,omitempty"`
}

// GenerateContent posts the brief and decodes the returned content record.
func (c *Client) GenerateContent(ctx context.Context, brief services.GenerationBrief) (domain.ContentRecord, error) {
	if c == nil || c.client == nil {
		return domain.ContentRecord{}, errors.New("generator: client not initialised")
	}

	payload, err := json.Marshal(generateRequest{
		Model:       c.model,
		Brief:       brief.Brief,
		Language:    brief.Language,
		ProductName: brief.ProductName,
		Price:       brief.Price,
	})
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("generator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("generator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("generator: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return domain.ContentRecord{}, fmt.Errorf("generator: endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.ContentRecord{}, fmt.Errorf("generator: decode response: %w", err)
	}
	if decoded.Error != "" {
		return domain.ContentRecord{}, fmt.Errorf("generator: %s", decoded.Error)
	}
	if decoded.Content == nil {
		return domain.ContentRecord{}, errors.New("generator: response carried no content")
	}
	return *decoded.Content, nil
}
