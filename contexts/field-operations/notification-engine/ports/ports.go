package ports

import (
	"context"
	"time"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// ListFilter narrows inbox reads. Limit defaults and caps are applied by the
// application layer.
type ListFilter struct {
	IncludeRead bool
	Limit       int
	Domains     []entities.Domain
}

// NotificationRepository persists notification records. InsertIgnoringConflicts
// is the idempotent write: rows whose (recipient_id, dedupe_key) already exist
// are silently skipped, never overwritten, and the returned count covers only
// the rows actually inserted.
type NotificationRepository interface {
	InsertIgnoringConflicts(ctx context.Context, records []entities.NotificationRecord) (int, error)
	ListByRecipient(ctx context.Context, recipientID string, filter ListFilter) ([]entities.NotificationRecord, error)
	CountUnread(ctx context.Context, recipientID string, domains []entities.Domain) (int, error)
	MarkRead(ctx context.Context, recipientID string, notificationID string, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int, error)
	MarkConversationRead(ctx context.Context, recipientID string, conversationID string, now time.Time) (int, error)
}

// RuleStore holds sector defaults and per-user overrides.
type RuleStore interface {
	SectorDefaults(ctx context.Context, sector string, eventKey string) ([]entities.SectorDefaultRule, error)
	UserOverrides(ctx context.Context, userIDs []string, eventKey string) ([]entities.UserRuleOverride, error)
	ListSectorDefaults(ctx context.Context, sector string) ([]entities.SectorDefaultRule, error)
	ListUserOverrides(ctx context.Context, userID string) ([]entities.UserRuleOverride, error)
	UpsertSectorDefault(ctx context.Context, rule entities.SectorDefaultRule) error
	UpsertUserOverride(ctx context.Context, rule entities.UserRuleOverride) error
}

type UserProfile struct {
	UserID   string
	FullName string
	Email    string
	Sector   string
	Role     string
	Active   bool
}

const RoleAdministrator = "administrator"

// UserDirectory reads the platform's user registry. The engine only needs
// identity, sector membership and the top privilege role.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (UserProfile, error)
	ActiveUsers(ctx context.Context) ([]UserProfile, error)
	ActiveSectorMembers(ctx context.Context, sector string) ([]UserProfile, error)
	Administrators(ctx context.Context) ([]UserProfile, error)
}

type TaskSnapshot struct {
	TaskID      string
	AssigneeID  string
	CreatorID   string
	Sector      string
	ObserverIDs []string
}

// TaskReader exposes the slice of the task collaborator the resolvers need.
// ChecklistResponsibles reads an optional table and returns
// domainerrors.ErrSchemaDegraded while that table is not provisioned.
type TaskReader interface {
	GetTask(ctx context.Context, taskID string) (TaskSnapshot, error)
	ChecklistResponsibles(ctx context.Context, taskID string) ([]string, error)
}

type LeadSnapshot struct {
	LeadID       string
	OwnerID      string
	SupervisorID string
	Sector       string
}

type LeadReader interface {
	GetLead(ctx context.Context, leadID string) (LeadSnapshot, error)
}

type WorkOrderSnapshot struct {
	WorkOrderID string
	CreatorID   string
}

// WorkOrderReader exposes work orders and the participants of tasks linked to
// their process steps. LinkedTaskParticipants reads an optional linking table
// and returns domainerrors.ErrSchemaDegraded while it is not provisioned.
type WorkOrderReader interface {
	GetWorkOrder(ctx context.Context, workOrderID string) (WorkOrderSnapshot, error)
	LinkedTaskParticipants(ctx context.Context, workOrderID string) ([]string, error)
}

type ConversationSnapshot struct {
	ConversationID string
	UserA          string
	UserB          string
}

type ConversationReader interface {
	GetConversation(ctx context.Context, conversationID string) (ConversationSnapshot, error)
}

// EventEnvelope is the engine-local view of a domain event on the bus.
type EventEnvelope struct {
	EventID    string
	EventType  string
	EntityType string
	EntityID   string
	ActorID    string
	OccurredAt time.Time
	Payload    map[string]string
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
