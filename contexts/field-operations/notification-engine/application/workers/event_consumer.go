package workers

import (
	"context"
	"log/slog"
	"strings"

	"meridian/contexts/field-operations/notification-engine/application"
	"meridian/contexts/field-operations/notification-engine/ports"
)

// Domain collaborator topics the engine listens on.
const (
	TopicTaskCommentCreated      = "tasks.comment.created"
	TopicTaskAssigned            = "tasks.assigned"
	TopicTaskStatusChanged       = "tasks.status.changed"
	TopicTaskChecklistCompleted  = "tasks.checklist.completed"
	TopicLeadCreated             = "leads.created"
	TopicLeadStatusChanged       = "leads.status.changed"
	TopicWorkOrderCreated        = "work_orders.created"
	TopicWorkOrderStageCompleted = "work_orders.stage.completed"
	TopicWorkOrderCommentCreated = "work_orders.comment.created"
	TopicChatMessageSent         = "chat.message.sent"
)

const consumerGroup = "field-operations.notification-engine"

// EventConsumer translates collaborator bus events into dispatch calls.
// Handlers never return errors back to the bus: redelivery safety comes from
// the dispatch dedupe key, so a redelivered event is simply a no-op insert.
type EventConsumer struct {
	Service    application.Service
	Subscriber ports.EventSubscriber
	Logger     *slog.Logger
}

// Start registers every topic handler. Subscriptions live until ctx ends.
func (c EventConsumer) Start(ctx context.Context) error {
	subscriptions := map[string]func(context.Context, ports.EventEnvelope){
		TopicTaskCommentCreated:      c.onTaskComment,
		TopicTaskAssigned:            c.onTaskAssigned,
		TopicTaskStatusChanged:       c.onTaskStatusChanged,
		TopicTaskChecklistCompleted:  c.onChecklistCompleted,
		TopicLeadCreated:             c.onLeadCreated,
		TopicLeadStatusChanged:       c.onLeadStatusChanged,
		TopicWorkOrderCreated:        c.onWorkOrderCreated,
		TopicWorkOrderStageCompleted: c.onWorkOrderStageCompleted,
		TopicWorkOrderCommentCreated: c.onWorkOrderComment,
		TopicChatMessageSent:         c.onChatMessage,
	}
	for topic, handle := range subscriptions {
		handle := handle
		err := c.Subscriber.Subscribe(ctx, topic, consumerGroup, func(ctx context.Context, event ports.EventEnvelope) error {
			handle(ctx, event)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c EventConsumer) onTaskComment(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyTaskComment(ctx, application.TaskCommentInput{
		TaskID:     payloadValue(event, "task_id"),
		CommentID:  firstNonEmpty(payloadValue(event, "comment_id"), event.EntityID),
		AuthorID:   firstNonEmpty(payloadValue(event, "author_id"), event.ActorID),
		Body:       payloadValue(event, "body"),
		MentionIDs: payloadList(event, "mention_ids"),
	})
	c.logOutcome("task_comment", event, err)
}

func (c EventConsumer) onTaskAssigned(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyTaskAssigned(ctx, application.TaskAssignmentInput{
		TaskID:     firstNonEmpty(payloadValue(event, "task_id"), event.EntityID),
		AssigneeID: payloadValue(event, "assignee_id"),
		ActorID:    event.ActorID,
		TaskTitle:  payloadValue(event, "title"),
	})
	c.logOutcome("task_assigned", event, err)
}

func (c EventConsumer) onTaskStatusChanged(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyTaskStatusChanged(ctx, application.TaskStatusChangeInput{
		TaskID:    firstNonEmpty(payloadValue(event, "task_id"), event.EntityID),
		ActorID:   event.ActorID,
		NewStatus: payloadValue(event, "new_status"),
	})
	c.logOutcome("task_status_changed", event, err)
}

func (c EventConsumer) onChecklistCompleted(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyChecklistCompleted(ctx, application.ChecklistCompletionInput{
		TaskID:    payloadValue(event, "task_id"),
		ItemID:    firstNonEmpty(payloadValue(event, "item_id"), event.EntityID),
		ActorID:   event.ActorID,
		ItemLabel: payloadValue(event, "item_label"),
	})
	c.logOutcome("task_checklist_completed", event, err)
}

func (c EventConsumer) onLeadCreated(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyLeadCreated(ctx, application.LeadInput{
		LeadID:   firstNonEmpty(payloadValue(event, "lead_id"), event.EntityID),
		ActorID:  event.ActorID,
		LeadName: payloadValue(event, "lead_name"),
	})
	c.logOutcome("lead_created", event, err)
}

func (c EventConsumer) onLeadStatusChanged(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyLeadStatusChanged(ctx, application.LeadInput{
		LeadID:    firstNonEmpty(payloadValue(event, "lead_id"), event.EntityID),
		ActorID:   event.ActorID,
		NewStatus: payloadValue(event, "new_status"),
	})
	c.logOutcome("lead_status_changed", event, err)
}

func (c EventConsumer) onWorkOrderCreated(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyWorkOrderCreated(ctx, application.WorkOrderInput{
		WorkOrderID: firstNonEmpty(payloadValue(event, "work_order_id"), event.EntityID),
		ActorID:     event.ActorID,
	})
	c.logOutcome("work_order_created", event, err)
}

func (c EventConsumer) onWorkOrderStageCompleted(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyWorkOrderStageCompleted(ctx, application.WorkOrderInput{
		WorkOrderID: payloadValue(event, "work_order_id"),
		ActorID:     event.ActorID,
		StageID:     firstNonEmpty(payloadValue(event, "stage_id"), event.EntityID),
		StageName:   payloadValue(event, "stage_name"),
	})
	c.logOutcome("work_order_stage_completed", event, err)
}

func (c EventConsumer) onWorkOrderComment(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyWorkOrderComment(ctx, application.WorkOrderCommentInput{
		WorkOrderID: payloadValue(event, "work_order_id"),
		CommentID:   firstNonEmpty(payloadValue(event, "comment_id"), event.EntityID),
		AuthorID:    firstNonEmpty(payloadValue(event, "author_id"), event.ActorID),
		Body:        payloadValue(event, "body"),
		MentionIDs:  payloadList(event, "mention_ids"),
	})
	c.logOutcome("work_order_comment", event, err)
}

func (c EventConsumer) onChatMessage(ctx context.Context, event ports.EventEnvelope) {
	_, err := c.Service.NotifyDirectMessage(ctx, application.DirectMessageInput{
		ConversationID: payloadValue(event, "conversation_id"),
		MessageID:      firstNonEmpty(payloadValue(event, "message_id"), event.EntityID),
		SenderID:       firstNonEmpty(payloadValue(event, "sender_id"), event.ActorID),
		Preview:        payloadValue(event, "preview"),
	})
	c.logOutcome("chat_message", event, err)
}

func (c EventConsumer) logOutcome(operation string, event ports.EventEnvelope, err error) {
	logger := application.ResolveLogger(c.Logger)
	if err != nil {
		logger.Warn("collaborator event rejected",
			"event", "notification_event_rejected",
			"module", "field-operations/notification-engine",
			"layer", "worker",
			"operation", operation,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return
	}
	logger.Debug("collaborator event handled",
		"event", "notification_event_handled",
		"module", "field-operations/notification-engine",
		"layer", "worker",
		"operation", operation,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
}

func payloadValue(event ports.EventEnvelope, key string) string {
	if event.Payload == nil {
		return ""
	}
	return strings.TrimSpace(event.Payload[key])
}

func payloadList(event ports.EventEnvelope, key string) []string {
	raw := payloadValue(event, key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
