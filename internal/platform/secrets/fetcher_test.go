package secrets

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

type stubSecretClient struct {
	accessFn func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	calls    int
}

func (s *stubSecretClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	return s.accessFn(ctx, req)
}

func (s *stubSecretClient) Close() error { return nil }

func payloadResponse(value string) *secretmanagerpb.AccessSecretVersionResponse {
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}
}

func TestResolveSecretExpandsShortReference(t *testing.T) {
	var gotName string
	stub := &stubSecretClient{
		accessFn: func(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			gotName = req.GetName()
			return payloadResponse("value"), nil
		},
	}

	fetcher, err := NewFetcher(context.Background(), WithSecretManagerClient(stub), WithDefaultProject("pl-dev"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	value, err := fetcher.ResolveSecret(context.Background(), "secret://generator-key")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "value" {
		t.Fatalf("unexpected value %q", value)
	}
	if gotName != "projects/pl-dev/secrets/generator-key/versions/latest" {
		t.Fatalf("unexpected resource name %q", gotName)
	}
}

func TestResolveSecretFullReferenceAndCache(t *testing.T) {
	stub := &stubSecretClient{
		accessFn: func(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			if req.GetName() != "projects/pl/secrets/webhook-key/versions/3" {
				return nil, errors.New("unexpected name " + req.GetName())
			}
			return payloadResponse("hook"), nil
		},
	}

	fetcher, err := NewFetcher(context.Background(), WithSecretManagerClient(stub))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	ref := "secret://projects/pl/secrets/webhook-key/versions/3"
	for i := 0; i < 2; i++ {
		value, err := fetcher.ResolveSecret(context.Background(), ref)
		if err != nil {
			t.Fatalf("ResolveSecret attempt %d: %v", i, err)
		}
		if value != "hook" {
			t.Fatalf("unexpected value %q", value)
		}
	}
	if stub.calls != 1 {
		t.Fatalf("expected single backend call, got %d", stub.calls)
	}
}

func TestResolveSecretRejectsMalformedReferences(t *testing.T) {
	stub := &stubSecretClient{
		accessFn: func(context.Context, *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return payloadResponse(""), nil
		},
	}

	fetcher, err := NewFetcher(context.Background(), WithSecretManagerClient(stub))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	cases := []string{"vault://x", "secret://", "secret://a/b"}
	for _, ref := range cases {
		if _, err := fetcher.ResolveSecret(context.Background(), ref); err == nil {
			t.Fatalf("expected error for ref %q", ref)
		}
	}
}
