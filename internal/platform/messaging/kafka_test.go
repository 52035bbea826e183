package messaging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"meridian/contexts/field-operations/notification-engine/ports"
	"meridian/internal/shared/events"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus, err := NewKafka(nil, slog.Default())
	if err != nil {
		t.Fatalf("bus setup failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 2)
	for i := 0; i < 2; i++ {
		err := bus.Subscribe(ctx, "notifications.test", "group-a", func(_ context.Context, event ports.EventEnvelope) error {
			received <- event
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}

	if err := bus.Publish(ctx, "notifications.test", ports.EventEnvelope{EventID: "evt_1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case event := <-received:
			if event.EventID != "evt_1" {
				t.Fatalf("unexpected event %q", event.EventID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
}

func TestPublishSharedTranslatesTheCanonicalEnvelope(t *testing.T) {
	bus, err := NewKafka(nil, slog.Default())
	if err != nil {
		t.Fatalf("bus setup failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	err = bus.Subscribe(ctx, "tasks.assigned", "group-b", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	occurredAt := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	err = bus.PublishShared(ctx, "tasks.assigned", events.Envelope{
		EventID:        "evt_2",
		EventType:      "TASK_ASSIGNED",
		SourceService:  "task-service",
		OccurredAtUTC:  occurredAt,
		CorrelationID:  "corr_1",
		EntityType:     "task",
		EntityID:       "task_001",
		ActorID:        "usr_clara",
		PayloadVersion: 1,
		Payload:        map[string]string{"assignee_id": "usr_alex"},
	})
	if err != nil {
		t.Fatalf("publish shared failed: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt_2" || event.EntityID != "task_001" || event.ActorID != "usr_clara" {
			t.Fatalf("unexpected translation: %+v", event)
		}
		if !event.OccurredAt.Equal(occurredAt) {
			t.Fatalf("expected occurred_at to carry over, got %v", event.OccurredAt)
		}
		if event.Payload["assignee_id"] != "usr_alex" {
			t.Fatalf("expected payload to carry over, got %v", event.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestSubscriberIsRemovedWhenContextEnds(t *testing.T) {
	bus, err := NewKafka(nil, slog.Default())
	if err != nil {
		t.Fatalf("bus setup failed: %v", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	err = bus.Subscribe(subCtx, "notifications.test", "group-c", func(_ context.Context, _ ports.EventEnvelope) error {
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.mu.RLock()
		remaining := len(bus.subscribers["notifications.test"])
		bus.mu.RUnlock()
		if remaining == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the subscriber to be removed, %d remaining", remaining)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
