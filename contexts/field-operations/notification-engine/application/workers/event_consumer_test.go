package workers

import (
	"context"
	"testing"
	"time"

	"meridian/contexts/field-operations/notification-engine/adapters/memory"
	"meridian/contexts/field-operations/notification-engine/application"
	"meridian/contexts/field-operations/notification-engine/ports"
)

// capturingSubscriber records handlers so tests can drive them synchronously.
type capturingSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *capturingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.handlers[topic] = handler
	return nil
}

func newTestConsumer() (EventConsumer, *memory.Store, *capturingSubscriber) {
	store := memory.NewStore()
	memory.SeedSampleData(store)
	service := application.Service{
		Repo:      store,
		Rules:     store,
		Directory: store,
		Resolvers: application.Resolvers{
			Directory:     store,
			Tasks:         store,
			Leads:         store,
			WorkOrders:    store,
			Conversations: store,
		},
		Clock: store,
		IDs:   store,
	}
	subscriber := &capturingSubscriber{handlers: map[string]func(context.Context, ports.EventEnvelope) error{}}
	return EventConsumer{Service: service, Subscriber: subscriber}, store, subscriber
}

func TestStartSubscribesEveryCollaboratorTopic(t *testing.T) {
	consumer, _, subscriber := newTestConsumer()
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	topics := []string{
		TopicTaskCommentCreated,
		TopicTaskAssigned,
		TopicTaskStatusChanged,
		TopicTaskChecklistCompleted,
		TopicLeadCreated,
		TopicLeadStatusChanged,
		TopicWorkOrderCreated,
		TopicWorkOrderStageCompleted,
		TopicWorkOrderCommentCreated,
		TopicChatMessageSent,
	}
	for _, topic := range topics {
		if _, ok := subscriber.handlers[topic]; !ok {
			t.Fatalf("expected a subscription for %s", topic)
		}
	}
	if len(subscriber.handlers) != len(topics) {
		t.Fatalf("expected %d subscriptions, got %d", len(topics), len(subscriber.handlers))
	}
}

func TestTaskAssignedEventCreatesARecord(t *testing.T) {
	consumer, store, subscriber := newTestConsumer()
	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := subscriber.handlers[TopicTaskAssigned](ctx, ports.EventEnvelope{
		EventID:    "evt_1",
		EventType:  "TASK_ASSIGNED",
		EntityType: "task",
		EntityID:   "task_001",
		ActorID:    "usr_clara",
		OccurredAt: time.Now().UTC(),
		Payload:    map[string]string{"assignee_id": "usr_alex"},
	})
	if err != nil {
		t.Fatalf("handler returned an error to the bus: %v", err)
	}

	count, err := store.CountUnread(ctx, "usr_alex", nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread for the assignee, got %d", count)
	}
}

func TestRedeliveredEventIsANoOp(t *testing.T) {
	consumer, store, subscriber := newTestConsumer()
	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	event := ports.EventEnvelope{
		EventID:    "evt_2",
		EventType:  "TASK_COMMENT_CREATED",
		EntityType: "task_comment",
		EntityID:   "comment_1",
		ActorID:    "usr_clara",
		OccurredAt: time.Now().UTC(),
		Payload: map[string]string{
			"task_id": "task_001",
			"body":    "redelivery check",
		},
	}
	handler := subscriber.handlers[TopicTaskCommentCreated]
	if err := handler(ctx, event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	before, _ := store.CountUnread(ctx, "usr_alex", nil)

	if err := handler(ctx, event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	after, _ := store.CountUnread(ctx, "usr_alex", nil)
	if before != after {
		t.Fatalf("expected redelivery to change nothing, got %d then %d", before, after)
	}
}

func TestMalformedEventNeverFailsTheBus(t *testing.T) {
	consumer, _, subscriber := newTestConsumer()
	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Empty payload fails dispatch validation; the handler must still return
	// nil so the bus does not redeliver forever.
	err := subscriber.handlers[TopicChatMessageSent](ctx, ports.EventEnvelope{
		EventID:   "evt_3",
		EventType: "CHAT_MESSAGE_SENT",
	})
	if err != nil {
		t.Fatalf("expected rejection to be absorbed, got %v", err)
	}
}

func TestMentionIDsPayloadIsCommaSplit(t *testing.T) {
	consumer, store, subscriber := newTestConsumer()
	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := subscriber.handlers[TopicTaskCommentCreated](ctx, ports.EventEnvelope{
		EventID:    "evt_4",
		EventType:  "TASK_COMMENT_CREATED",
		EntityType: "task_comment",
		EntityID:   "comment_2",
		ActorID:    "usr_clara",
		Payload: map[string]string{
			"task_id":     "task_001",
			"body":        "explicit mentions only",
			"mention_ids": "usr_bruno, usr_ana_lima",
		},
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	for _, userID := range []string{"usr_bruno", "usr_ana_lima"} {
		count, _ := store.CountUnread(ctx, userID, nil)
		if count != 1 {
			t.Fatalf("expected a mention record for %s, got %d", userID, count)
		}
	}
}
