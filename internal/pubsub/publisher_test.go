package pubsub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/model"

	ps "cloud.google.com/go/pubsub"
	"github.com/shopspring/decimal"
)

func TestNewPublisherRequiresProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	if _, err := NewPublisher(context.Background(), cfg); err == nil {
		t.Fatal("expected error when project ID is empty")
	}
}

// The emulator test pushes a reward settlement through a real topic and
// checks the entry survives the round trip intact.
func TestLedgerEventRoundTrip(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	cfg := &config.Config{GCPProjectID: "test-project"}
	pub, err := NewPublisher(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	topic, err := pub.client.CreateTopic(ctx, "ledger-events")
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	sub, err := pub.client.CreateSubscription(ctx, "ledger-events-sub", ps.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	entry := model.LedgerEntry{
		ID:        "entry-1",
		AccountID: "acc-1",
		Kind:      model.KindVideoReward,
		Amount:    decimal.RequireFromString("7.5"),
		Status:    model.EntryCompleted,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	msgID, err := pub.Publish(ctx, "ledger-events", payload)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if msgID == "" {
		t.Fatal("expected non-empty message ID")
	}

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c := make(chan []byte, 1)
	go func() {
		sub.Receive(recvCtx, func(ctx context.Context, m *ps.Message) {
			c <- m.Data
			m.Ack()
			cancel()
		})
	}()

	select {
	case data := <-c:
		var got model.LedgerEntry
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal received entry: %v", err)
		}
		if got.ID != entry.ID || got.Kind != entry.Kind {
			t.Fatalf("expected entry %s/%s, got %s/%s", entry.ID, entry.Kind, got.ID, got.Kind)
		}
		if !got.Amount.Equal(entry.Amount) {
			t.Fatalf("expected amount %s, got %s", entry.Amount, got.Amount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message from emulator subscription")
	}
}
