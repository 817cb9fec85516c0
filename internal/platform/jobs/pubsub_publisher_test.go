package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pagelift/api/internal/services"
)

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}

	event := services.OrderEvent{
		EventType:     "order.recorded",
		OrderID:       "01J8ZX4N8S8N4V2C9GJ2Q5TPLD",
		PageSlug:      "smart-posture-corrector",
		PaymentMethod: "cod",
		Total:         "44.80",
		Currency:      "€",
		RecordedAt:    time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != event.OrderID || payload.PageSlug != event.PageSlug {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["paymentMethod"]; attr != "cod" {
		t.Fatalf("expected payment method attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["customerIp"]; ok {
		t.Fatalf("customer ip must not be exposed as attribute")
	}
}

func TestNewPubSubOrderEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
