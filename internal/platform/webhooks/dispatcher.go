package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pagelift/api/internal/platform/config"
)

const defaultTimeout = 10 * time.Second

// ErrHostNotAllowed is returned when a webhook URL targets a host outside the
// configured allowlist.
var ErrHostNotAllowed = errors.New("webhooks: host not allowed")

// HTTPDispatcher delivers order notifications as JSON POSTs. Deliveries are
// fire-once; failed sends are logged and never retried.
type HTTPDispatcher struct {
	client          *http.Client
	timeout         time.Duration
	signingSecret   string
	signatureHeader string
	allowedHosts    map[string]struct{}
	logger          func(ctx context.Context, event string, fields map[string]any)
}

// Option customises the dispatcher.
type Option func(*HTTPDispatcher)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *HTTPDispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger installs a structured log sink for delivery outcomes.
func WithLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(d *HTTPDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewHTTPDispatcher builds a dispatcher from webhook configuration.
func NewHTTPDispatcher(cfg config.WebhookConfig, opts ...Option) (*HTTPDispatcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	header := strings.TrimSpace(cfg.SignatureHeader)
	if header == "" && cfg.SigningSecret != "" {
		return nil, errors.New("webhooks: signature header is required when a signing secret is set")
	}

	dispatcher := &HTTPDispatcher{
		client:          &http.Client{Timeout: timeout},
		timeout:         timeout,
		signingSecret:   cfg.SigningSecret,
		signatureHeader: header,
		logger:          func(context.Context, string, map[string]any) {},
	}
	if len(cfg.AllowedHosts) > 0 {
		dispatcher.allowedHosts = make(map[string]struct{}, len(cfg.AllowedHosts))
		for _, host := range cfg.AllowedHosts {
			trimmed := strings.ToLower(strings.TrimSpace(host))
			if trimmed != "" {
				dispatcher.allowedHosts[trimmed] = struct{}{}
			}
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}
	return dispatcher, nil
}

// Send posts the body to the target URL and waits for the response.
func (d *HTTPDispatcher) Send(ctx context.Context, target string, body map[string]any) error {
	if d == nil || d.client == nil {
		return errors.New("webhooks: dispatcher not initialised")
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("webhooks: target url is required")
	}
	if err := d.checkHost(target); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhooks: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.signingSecret != "" {
		req.Header.Set(d.signatureHeader, signPayload(d.signingSecret, payload))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: deliver: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhooks: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatch delivers asynchronously. The delivery detaches from the caller's
// context so it survives the originating request completing, mirroring the
// buyer navigating away right after ordering. Failures are logged and
// swallowed.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, target string, body map[string]any) {
	if d == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := d.Send(sendCtx, target, body); err != nil {
			d.logger(sendCtx, "webhooks.delivery_failed", map[string]any{
				"url":   target,
				"error": err.Error(),
			})
			return
		}
		d.logger(sendCtx, "webhooks.delivered", map[string]any{"url": target})
	}()
}

func (d *HTTPDispatcher) checkHost(target string) error {
	if len(d.allowedHosts) == 0 {
		return nil
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("webhooks: parse target url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := d.allowedHosts[host]; !ok {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
	}
	return nil
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
