package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
)

const moduleName = "field-operations/notification-engine"

// TopicInboxInvalidated carries the per-recipient cache invalidation signal
// published after every successful insert.
const TopicInboxInvalidated = "notifications.inbox.invalidated"

const previewLimit = 140

type Service struct {
	Repo      ports.NotificationRepository
	Rules     ports.RuleStore
	Directory ports.UserDirectory
	Resolvers Resolvers
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDs       ports.IDGenerator
	Logger    *slog.Logger
}

// DispatchCommand describes one logical occurrence to fan out. DedupeKey is
// optional; when empty it is derived from (EventKey, EntityType, EntityID,
// ActorID). Mandatory forces delivery for this occurrence regardless of rules.
type DispatchCommand struct {
	Domain     entities.Domain
	EventKey   string
	Sector     string
	ActorID    string
	EntityType string
	EntityID   string
	Title      string
	Message    string
	Metadata   entities.Metadata
	Recipients []entities.RecipientCandidate
	DedupeKey  string
	Mandatory  bool
}

// DispatchResult reports how many records the attempt actually created.
// Conflicting rows (already delivered) are not counted.
type DispatchResult struct {
	Inserted   int
	Recipients []string
}

// Dispatch validates, evaluates rules, and persists one record per surviving
// recipient behind the (recipient_id, dedupe_key) uniqueness guarantee.
// Validation failures return ErrInvalidDispatch; every downstream failure is
// logged and absorbed so callers on domain write paths are never broken by
// notification trouble.
func (s Service) Dispatch(ctx context.Context, cmd DispatchCommand) (DispatchResult, error) {
	cmd.EventKey = strings.TrimSpace(cmd.EventKey)
	cmd.Title = strings.TrimSpace(cmd.Title)
	cmd.Message = strings.TrimSpace(cmd.Message)
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if cmd.EventKey == "" || cmd.Title == "" || cmd.Message == "" || !entities.KnownDomain(cmd.Domain) {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}

	dedupeKey := strings.TrimSpace(cmd.DedupeKey)
	if dedupeKey == "" {
		dedupeKey = entities.DedupeKey(cmd.EventKey, cmd.EntityType, cmd.EntityID, cmd.ActorID)
	}
	if !entities.ValidDedupeKey(dedupeKey) {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}

	candidates := excludeActor(cmd.Recipients, cmd.ActorID)
	if len(candidates) == 0 {
		return DispatchResult{}, nil
	}

	definition, ok := entities.CatalogLookup(cmd.EventKey)
	if !ok {
		definition = entities.CatalogFallback(cmd.EventKey, cmd.Domain)
	}
	sector := strings.TrimSpace(cmd.Sector)
	if sector == "" {
		sector = definition.Sector
	}

	snapshot := s.loadRuleSnapshot(ctx, definition, sector, cmd.Mandatory, candidates)
	evaluated := EvaluateRecipients(snapshot, candidates)
	if len(evaluated) == 0 {
		return DispatchResult{}, nil
	}

	now := s.now()
	records := make([]entities.NotificationRecord, 0, len(evaluated))
	recipients := make([]string, 0, len(evaluated))
	for _, recipient := range evaluated {
		notificationID, err := s.newID(ctx)
		if err != nil {
			s.logAbsorbed("notification_id_generation_failed", cmd.EventKey, dedupeKey, err)
			return DispatchResult{}, nil
		}
		records = append(records, entities.NotificationRecord{
			NotificationID: notificationID,
			RecipientID:    recipient.UserID,
			ActorID:        cmd.ActorID,
			Domain:         cmd.Domain,
			EventKey:       cmd.EventKey,
			Sector:         sector,
			Responsibility: recipient.Primary,
			EntityType:     strings.TrimSpace(cmd.EntityType),
			EntityID:       strings.TrimSpace(cmd.EntityID),
			DedupeKey:      dedupeKey,
			Mandatory:      recipient.Mandatory,
			Title:          cmd.Title,
			Message:        cmd.Message,
			Metadata:       cmd.Metadata.Clone().WithSector(sector).WithResponsibilities(recipient.Kinds),
			CreatedAt:      now,
		})
		recipients = append(recipients, recipient.UserID)
	}

	inserted, err := s.Repo.InsertIgnoringConflicts(ctx, records)
	if err != nil {
		s.logAbsorbed("notification_insert_failed", cmd.EventKey, dedupeKey, err)
		return DispatchResult{}, nil
	}
	if inserted > 0 {
		s.publishInboxInvalidation(ctx, cmd, recipients, now)
	}

	ResolveLogger(s.Logger).Info("notifications dispatched",
		"event", "notifications_dispatched",
		"module", moduleName,
		"layer", "application",
		"event_key", cmd.EventKey,
		"dedupe_key", dedupeKey,
		"evaluated", len(evaluated),
		"inserted", inserted,
	)
	return DispatchResult{Inserted: inserted, Recipients: recipients}, nil
}

// loadRuleSnapshot reads sector defaults and user overrides concurrently.
// A failing read falls back to catalog defaults for that side, logged.
func (s Service) loadRuleSnapshot(
	ctx context.Context,
	definition entities.EventDefinition,
	sector string,
	occurrenceMandatory bool,
	candidates []entities.RecipientCandidate,
) RuleSnapshot {
	snapshot := RuleSnapshot{
		Event:               definition,
		Sector:              sector,
		OccurrenceMandatory: occurrenceMandatory,
		SectorDefaults:      map[entities.ResponsibilityKind]bool{},
		UserOverrides:       map[string]map[entities.ResponsibilityKind]bool{},
	}
	if s.Rules == nil {
		return snapshot
	}

	userIDs := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		userIDs = append(userIDs, candidate.UserID)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if sector != "" {
		group.Go(func() error {
			rules, err := s.Rules.SectorDefaults(groupCtx, sector, definition.Key)
			if err != nil {
				s.logAbsorbed("sector_rule_load_failed", definition.Key, sector, err)
				return nil
			}
			snapshot.SectorDefaults = BuildSectorDefaultIndex(rules)
			return nil
		})
	}
	if definition.AllowUserDisable && len(userIDs) > 0 {
		group.Go(func() error {
			rules, err := s.Rules.UserOverrides(groupCtx, userIDs, definition.Key)
			if err != nil {
				s.logAbsorbed("user_rule_load_failed", definition.Key, sector, err)
				return nil
			}
			snapshot.UserOverrides = BuildUserOverrideIndex(rules)
			return nil
		})
	}
	_ = group.Wait()
	return snapshot
}

func (s Service) publishInboxInvalidation(ctx context.Context, cmd DispatchCommand, recipients []string, now time.Time) {
	if s.Publisher == nil {
		return
	}
	for _, recipientID := range recipients {
		err := s.Publisher.Publish(ctx, TopicInboxInvalidated, ports.EventEnvelope{
			EventType:  "NOTIFICATION_INBOX_INVALIDATED",
			EntityType: "notification_inbox",
			EntityID:   recipientID,
			ActorID:    cmd.ActorID,
			OccurredAt: now,
			Payload:    map[string]string{"recipient_id": recipientID, "event_key": cmd.EventKey},
		})
		if err != nil {
			s.logAbsorbed("inbox_invalidation_publish_failed", cmd.EventKey, recipientID, err)
		}
	}
}

// TaskCommentInput is the collaborator payload for a new task comment.
// MentionIDs are explicit ids collected by the editor UI; they union with
// the ids extracted from Body.
type TaskCommentInput struct {
	TaskID     string
	CommentID  string
	AuthorID   string
	Body       string
	MentionIDs []string
}

// NotifyTaskComment fans a task comment out to the task's involved users and
// dispatches a separate mention-keyed event for every resolved mention.
func (s Service) NotifyTaskComment(ctx context.Context, input TaskCommentInput) (DispatchResult, error) {
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.CommentID) == "" || strings.TrimSpace(input.AuthorID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}

	// Mentions come from the body and the directory alone, so a failed task
	// read drops only the involvement fan-out, not the mention event.
	audience, resolveErr := s.Resolvers.ResolveTask(ctx, input.TaskID, false)
	if resolveErr != nil {
		s.logAbsorbed("task_comment_resolution_failed", entities.EventTaskCommentCreated, input.TaskID, resolveErr)
		audience = ResolvedAudience{}
	}

	mentionIDs := s.resolveMentions(ctx, input.Body, input.MentionIDs)
	metadata := entities.Metadata{}.
		WithTargetPath("/tasks/" + strings.TrimSpace(input.TaskID)).
		WithPreview(preview(input.Body))

	var result DispatchResult
	if resolveErr == nil {
		fanout, err := s.Dispatch(ctx, DispatchCommand{
			Domain:     entities.DomainTasks,
			EventKey:   entities.EventTaskCommentCreated,
			Sector:     audience.Sector,
			ActorID:    input.AuthorID,
			EntityType: "task_comment",
			EntityID:   input.CommentID,
			Title:      "New comment on a task",
			Message:    preview(input.Body),
			Metadata:   metadata,
			Recipients: audience.Candidates,
			DedupeKey:  entities.DedupeKey(entities.EventTaskCommentCreated, "", input.CommentID, ""),
		})
		if err != nil {
			return DispatchResult{}, err
		}
		result = fanout
	}

	if len(mentionIDs) > 0 {
		mentionResult, err := s.Dispatch(ctx, DispatchCommand{
			Domain:     entities.DomainTasks,
			EventKey:   entities.EventTaskCommentMention,
			Sector:     audience.Sector,
			ActorID:    input.AuthorID,
			EntityType: "task_comment",
			EntityID:   input.CommentID,
			Title:      "You were mentioned in a comment",
			Message:    preview(input.Body),
			Metadata:   metadata,
			Recipients: mentionCandidates(mentionIDs),
			DedupeKey:  entities.DedupeKey(entities.EventTaskCommentMention, "", input.CommentID, ""),
		})
		if err == nil {
			result.Inserted += mentionResult.Inserted
			result.Recipients = append(result.Recipients, mentionResult.Recipients...)
		}
	}
	return result, nil
}

type TaskAssignmentInput struct {
	TaskID     string
	AssigneeID string
	ActorID    string
	TaskTitle  string
}

// NotifyTaskAssigned notifies the new assignee. The event is mandatory, so
// rules never suppress it.
func (s Service) NotifyTaskAssigned(ctx context.Context, input TaskAssignmentInput) (DispatchResult, error) {
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.AssigneeID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainTasks,
		EventKey:   entities.EventTaskAssigned,
		ActorID:    input.ActorID,
		EntityType: "task",
		EntityID:   input.TaskID,
		Title:      "Task assigned to you",
		Message:    messageOr(input.TaskTitle, "A task was assigned to you."),
		Metadata:   entities.Metadata{}.WithTargetPath("/tasks/" + strings.TrimSpace(input.TaskID)),
		Recipients: []entities.RecipientCandidate{{
			UserID: input.AssigneeID,
			Kinds:  []entities.ResponsibilityKind{entities.KindAssignee},
		}},
	})
}

type TaskStatusChangeInput struct {
	TaskID    string
	ActorID   string
	NewStatus string
}

func (s Service) NotifyTaskStatusChanged(ctx context.Context, input TaskStatusChangeInput) (DispatchResult, error) {
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.NewStatus) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveTask(ctx, input.TaskID, false)
	if err != nil {
		s.logAbsorbed("task_status_resolution_failed", entities.EventTaskStatusChanged, input.TaskID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainTasks,
		EventKey:   entities.EventTaskStatusChanged,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "task",
		EntityID:   input.TaskID,
		Title:      "Task status changed",
		Message:    "Task moved to " + strings.TrimSpace(input.NewStatus) + ".",
		Metadata:   entities.Metadata{}.WithTargetPath("/tasks/" + strings.TrimSpace(input.TaskID)),
		Recipients: audience.Candidates,
		DedupeKey:  entities.DedupeKey(entities.EventTaskStatusChanged, input.TaskID, input.NewStatus, input.ActorID),
	})
}

type ChecklistCompletionInput struct {
	TaskID    string
	ItemID    string
	ActorID   string
	ItemLabel string
}

func (s Service) NotifyChecklistCompleted(ctx context.Context, input ChecklistCompletionInput) (DispatchResult, error) {
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.ItemID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveTask(ctx, input.TaskID, false)
	if err != nil {
		s.logAbsorbed("checklist_resolution_failed", entities.EventTaskChecklistCompleted, input.TaskID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainTasks,
		EventKey:   entities.EventTaskChecklistCompleted,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "checklist_item",
		EntityID:   input.ItemID,
		Title:      "Checklist item completed",
		Message:    messageOr(input.ItemLabel, "A checklist item was completed."),
		Metadata:   entities.Metadata{}.WithTargetPath("/tasks/" + strings.TrimSpace(input.TaskID)),
		Recipients: audience.Candidates,
	})
}

type LeadInput struct {
	LeadID    string
	ActorID   string
	LeadName  string
	NewStatus string
}

func (s Service) NotifyLeadCreated(ctx context.Context, input LeadInput) (DispatchResult, error) {
	if strings.TrimSpace(input.LeadID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveLead(ctx, input.LeadID)
	if err != nil {
		s.logAbsorbed("lead_resolution_failed", entities.EventLeadCreated, input.LeadID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainLeads,
		EventKey:   entities.EventLeadCreated,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "lead",
		EntityID:   input.LeadID,
		Title:      "New indication received",
		Message:    messageOr(input.LeadName, "A new indication arrived."),
		Metadata:   entities.Metadata{}.WithTargetPath("/leads/" + strings.TrimSpace(input.LeadID)),
		Recipients: audience.Candidates,
	})
}

func (s Service) NotifyLeadStatusChanged(ctx context.Context, input LeadInput) (DispatchResult, error) {
	if strings.TrimSpace(input.LeadID) == "" || strings.TrimSpace(input.NewStatus) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveLead(ctx, input.LeadID)
	if err != nil {
		s.logAbsorbed("lead_resolution_failed", entities.EventLeadStatusChanged, input.LeadID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainLeads,
		EventKey:   entities.EventLeadStatusChanged,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "lead",
		EntityID:   input.LeadID,
		Title:      "Indication status changed",
		Message:    "Indication moved to " + strings.TrimSpace(input.NewStatus) + ".",
		Metadata:   entities.Metadata{}.WithTargetPath("/leads/" + strings.TrimSpace(input.LeadID)),
		Recipients: audience.Candidates,
		DedupeKey:  entities.DedupeKey(entities.EventLeadStatusChanged, input.LeadID, input.NewStatus, input.ActorID),
	})
}

type WorkOrderInput struct {
	WorkOrderID string
	ActorID     string
	StageID     string
	StageName   string
}

func (s Service) NotifyWorkOrderCreated(ctx context.Context, input WorkOrderInput) (DispatchResult, error) {
	if strings.TrimSpace(input.WorkOrderID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveWorkOrder(ctx, input.WorkOrderID)
	if err != nil {
		s.logAbsorbed("work_order_resolution_failed", entities.EventWorkOrderCreated, input.WorkOrderID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainWorkOrders,
		EventKey:   entities.EventWorkOrderCreated,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "work_order",
		EntityID:   input.WorkOrderID,
		Title:      "Work order opened",
		Message:    "A work order was opened.",
		Metadata:   entities.Metadata{}.WithTargetPath("/work-orders/" + strings.TrimSpace(input.WorkOrderID)),
		Recipients: audience.Candidates,
	})
}

func (s Service) NotifyWorkOrderStageCompleted(ctx context.Context, input WorkOrderInput) (DispatchResult, error) {
	if strings.TrimSpace(input.WorkOrderID) == "" || strings.TrimSpace(input.StageID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveWorkOrder(ctx, input.WorkOrderID)
	if err != nil {
		s.logAbsorbed("work_order_resolution_failed", entities.EventWorkOrderStageDone, input.WorkOrderID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainWorkOrders,
		EventKey:   entities.EventWorkOrderStageDone,
		Sector:     audience.Sector,
		ActorID:    input.ActorID,
		EntityType: "work_order_stage",
		EntityID:   input.StageID,
		Title:      "Work order stage completed",
		Message:    messageOr(input.StageName, "A work order stage was completed."),
		Metadata:   entities.Metadata{}.WithTargetPath("/work-orders/" + strings.TrimSpace(input.WorkOrderID)),
		Recipients: audience.Candidates,
	})
}

type WorkOrderCommentInput struct {
	WorkOrderID string
	CommentID   string
	AuthorID    string
	Body        string
	MentionIDs  []string
}

func (s Service) NotifyWorkOrderComment(ctx context.Context, input WorkOrderCommentInput) (DispatchResult, error) {
	if strings.TrimSpace(input.WorkOrderID) == "" || strings.TrimSpace(input.CommentID) == "" || strings.TrimSpace(input.AuthorID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}

	// Same isolation as task comments: a failed work-order read must not
	// drop mentions resolved from the body.
	audience, resolveErr := s.Resolvers.ResolveWorkOrder(ctx, input.WorkOrderID)
	if resolveErr != nil {
		s.logAbsorbed("work_order_resolution_failed", entities.EventWorkOrderComment, input.WorkOrderID, resolveErr)
		audience = ResolvedAudience{}
	}

	mentionIDs := s.resolveMentions(ctx, input.Body, input.MentionIDs)
	metadata := entities.Metadata{}.
		WithTargetPath("/work-orders/" + strings.TrimSpace(input.WorkOrderID)).
		WithPreview(preview(input.Body))

	var result DispatchResult
	if resolveErr == nil {
		fanout, err := s.Dispatch(ctx, DispatchCommand{
			Domain:     entities.DomainWorkOrders,
			EventKey:   entities.EventWorkOrderComment,
			Sector:     audience.Sector,
			ActorID:    input.AuthorID,
			EntityType: "work_order_comment",
			EntityID:   input.CommentID,
			Title:      "New comment on a work order",
			Message:    preview(input.Body),
			Metadata:   metadata,
			Recipients: audience.Candidates,
			DedupeKey:  entities.DedupeKey(entities.EventWorkOrderComment, "", input.CommentID, ""),
		})
		if err != nil {
			return DispatchResult{}, err
		}
		result = fanout
	}

	if len(mentionIDs) > 0 {
		mentionResult, err := s.Dispatch(ctx, DispatchCommand{
			Domain:     entities.DomainWorkOrders,
			EventKey:   entities.EventWorkOrderMention,
			Sector:     audience.Sector,
			ActorID:    input.AuthorID,
			EntityType: "work_order_comment",
			EntityID:   input.CommentID,
			Title:      "You were mentioned in a comment",
			Message:    preview(input.Body),
			Metadata:   metadata,
			Recipients: mentionCandidates(mentionIDs),
			DedupeKey:  entities.DedupeKey(entities.EventWorkOrderMention, "", input.CommentID, ""),
		})
		if err == nil {
			result.Inserted += mentionResult.Inserted
			result.Recipients = append(result.Recipients, mentionResult.Recipients...)
		}
	}
	return result, nil
}

type DirectMessageInput struct {
	ConversationID string
	MessageID      string
	SenderID       string
	Preview        string
}

func (s Service) NotifyDirectMessage(ctx context.Context, input DirectMessageInput) (DispatchResult, error) {
	if strings.TrimSpace(input.ConversationID) == "" || strings.TrimSpace(input.MessageID) == "" || strings.TrimSpace(input.SenderID) == "" {
		return DispatchResult{}, domainerrors.ErrInvalidDispatch
	}
	audience, err := s.Resolvers.ResolveDirectMessage(ctx, input.ConversationID, input.SenderID)
	if err != nil {
		s.logAbsorbed("conversation_resolution_failed", entities.EventChatMessageReceived, input.ConversationID, err)
		return DispatchResult{}, nil
	}
	return s.Dispatch(ctx, DispatchCommand{
		Domain:     entities.DomainChat,
		EventKey:   entities.EventChatMessageReceived,
		ActorID:    input.SenderID,
		EntityType: "chat_message",
		EntityID:   input.MessageID,
		Title:      "New direct message",
		Message:    messageOr(preview(input.Preview), "You received a direct message."),
		Metadata: entities.Metadata{}.
			WithConversationID(input.ConversationID).
			WithTargetPath("/chat/" + strings.TrimSpace(input.ConversationID)).
			WithPreview(preview(input.Preview)),
		Recipients: audience.Candidates,
	})
}

// MarkOneRead flips a single record. Re-reading an already-read record
// succeeds; a record owned by someone else reports not found.
func (s Service) MarkOneRead(ctx context.Context, recipientID string, notificationID string) error {
	if strings.TrimSpace(recipientID) == "" || strings.TrimSpace(notificationID) == "" {
		return domainerrors.ErrInvalidRequest
	}
	found, err := s.Repo.MarkRead(ctx, strings.TrimSpace(recipientID), strings.TrimSpace(notificationID), s.now())
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNotificationNotFound
	}
	return nil
}

func (s Service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, domainerrors.ErrInvalidRequest
	}
	return s.Repo.MarkAllRead(ctx, strings.TrimSpace(recipientID), s.now())
}

// MarkConversationRead flips every unread record of the recipient that
// references the conversation, chat-domain records included.
func (s Service) MarkConversationRead(ctx context.Context, recipientID string, conversationID string) (int, error) {
	if strings.TrimSpace(recipientID) == "" || strings.TrimSpace(conversationID) == "" {
		return 0, domainerrors.ErrInvalidRequest
	}
	return s.Repo.MarkConversationRead(ctx, strings.TrimSpace(recipientID), strings.TrimSpace(conversationID), s.now())
}

func (s Service) ListMine(ctx context.Context, recipientID string, filter ports.ListFilter) ([]entities.NotificationRecord, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	filter.Domains = knownDomains(filter.Domains)
	return s.Repo.ListByRecipient(ctx, strings.TrimSpace(recipientID), filter)
}

func (s Service) CountUnread(ctx context.Context, recipientID string, domains []entities.Domain) (int, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, domainerrors.ErrInvalidRequest
	}
	return s.Repo.CountUnread(ctx, strings.TrimSpace(recipientID), knownDomains(domains))
}

// ListDefaultRules lists sector policy. Administrator only.
func (s Service) ListDefaultRules(ctx context.Context, actorID string, sector string) ([]entities.SectorDefaultRule, error) {
	if err := s.requireAdministrator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.Rules.ListSectorDefaults(ctx, strings.TrimSpace(sector))
}

// UpsertDefaultRule writes one sector policy row. Administrator only; the
// event must exist in the catalog.
func (s Service) UpsertDefaultRule(ctx context.Context, actorID string, rule entities.SectorDefaultRule) error {
	if err := s.requireAdministrator(ctx, actorID); err != nil {
		return err
	}
	rule.Sector = strings.TrimSpace(rule.Sector)
	rule.EventKey = strings.TrimSpace(rule.EventKey)
	if rule.Sector == "" || rule.EventKey == "" || !entities.KnownKind(rule.Responsibility) {
		return domainerrors.ErrInvalidRequest
	}
	if _, ok := entities.CatalogLookup(rule.EventKey); !ok {
		return domainerrors.ErrUnknownEvent
	}
	rule.UpdatedAt = s.now()
	return s.Rules.UpsertSectorDefault(ctx, rule)
}

func (s Service) ListMyRules(ctx context.Context, userID string) ([]entities.UserRuleOverride, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	return s.Rules.ListUserOverrides(ctx, strings.TrimSpace(userID))
}

// UpsertMyRule writes one personal override. Events that are mandatory or
// that disallow user overrides reject with ErrRuleLocked.
func (s Service) UpsertMyRule(ctx context.Context, userID string, eventKey string, kind entities.ResponsibilityKind, enabled bool) error {
	userID = strings.TrimSpace(userID)
	eventKey = strings.TrimSpace(eventKey)
	if userID == "" || eventKey == "" || !entities.KnownKind(kind) {
		return domainerrors.ErrInvalidRequest
	}
	definition, ok := entities.CatalogLookup(eventKey)
	if !ok {
		return domainerrors.ErrUnknownEvent
	}
	if definition.Mandatory || !definition.AllowUserDisable {
		return domainerrors.ErrRuleLocked
	}
	return s.Rules.UpsertUserOverride(ctx, entities.UserRuleOverride{
		UserID:         userID,
		EventKey:       eventKey,
		Responsibility: kind,
		Enabled:        enabled,
		UpdatedAt:      s.now(),
	})
}

func (s Service) requireAdministrator(ctx context.Context, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return domainerrors.ErrUnauthorized
	}
	profile, err := s.Directory.GetUser(ctx, actorID)
	if err != nil {
		return domainerrors.ErrAccessDenied
	}
	if !profile.Active || profile.Role != ports.RoleAdministrator {
		return domainerrors.ErrAccessDenied
	}
	return nil
}

// resolveMentions builds the index from the active directory and resolves the
// body. A directory failure drops extracted mentions but keeps explicit ids.
func (s Service) resolveMentions(ctx context.Context, body string, explicitIDs []string) []string {
	users, err := s.Directory.ActiveUsers(ctx)
	if err != nil {
		s.logAbsorbed("mention_directory_load_failed", "", "", err)
		return BuildMentionIndex(nil).Resolve("", explicitIDs)
	}
	return BuildMentionIndex(users).Resolve(body, explicitIDs)
}

func (s Service) logAbsorbed(event string, eventKey string, subject string, err error) {
	ResolveLogger(s.Logger).Error("notification side effect failed, absorbed",
		"event", event,
		"module", moduleName,
		"layer", "application",
		"event_key", eventKey,
		"subject", subject,
		"error", err.Error(),
	)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) newID(ctx context.Context) (string, error) {
	return s.IDs.NewID(ctx)
}

func excludeActor(candidates []entities.RecipientCandidate, actorID string) []entities.RecipientCandidate {
	out := make([]entities.RecipientCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.UserID) == actorID && actorID != "" {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func mentionCandidates(userIDs []string) []entities.RecipientCandidate {
	out := make([]entities.RecipientCandidate, 0, len(userIDs))
	for _, userID := range userIDs {
		out = append(out, entities.RecipientCandidate{
			UserID: userID,
			Kinds:  []entities.ResponsibilityKind{entities.KindMention},
		})
	}
	return out
}

func knownDomains(domains []entities.Domain) []entities.Domain {
	out := make([]entities.Domain, 0, len(domains))
	for _, domain := range domains {
		if entities.KnownDomain(domain) {
			out = append(out, domain)
		}
	}
	return out
}

func messageOr(message string, fallback string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return fallback
	}
	return message
}

func preview(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= previewLimit {
		return body
	}
	trimmed := []rune(body)
	if len(trimmed) <= previewLimit {
		return body
	}
	return string(trimmed[:previewLimit])
}
