package httpadapter

import (
	"context"
	"log/slog"

	"meridian/contexts/field-operations/notification-engine/application"
	"meridian/contexts/field-operations/notification-engine/domain/entities"
	"meridian/contexts/field-operations/notification-engine/ports"
	httptransport "meridian/contexts/field-operations/notification-engine/transport/http"
)

type Handler struct {
	Notifications application.Service
	Logger        *slog.Logger
}

func (h Handler) ListNotificationsHandler(
	ctx context.Context,
	userID string,
	includeRead bool,
	limit int,
	domains []string,
) (httptransport.NotificationListResponse, error) {
	records, err := h.Notifications.ListMine(ctx, userID, ports.ListFilter{
		IncludeRead: includeRead,
		Limit:       limit,
		Domains:     toDomains(domains),
	})
	if err != nil {
		return httptransport.NotificationListResponse{}, err
	}
	items := make([]httptransport.NotificationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toNotificationResponse(record))
	}
	return httptransport.NotificationListResponse{Items: items}, nil
}

func (h Handler) UnreadCountHandler(ctx context.Context, userID string, domains []string) (httptransport.UnreadCountResponse, error) {
	count, err := h.Notifications.CountUnread(ctx, userID, toDomains(domains))
	if err != nil {
		return httptransport.UnreadCountResponse{}, err
	}
	return httptransport.UnreadCountResponse{Count: count}, nil
}

func (h Handler) MarkReadHandler(ctx context.Context, userID string, notificationID string) error {
	return h.Notifications.MarkOneRead(ctx, userID, notificationID)
}

func (h Handler) MarkAllReadHandler(ctx context.Context, userID string) (httptransport.MarkReadResponse, error) {
	marked, err := h.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return httptransport.MarkReadResponse{}, err
	}
	return httptransport.MarkReadResponse{Marked: marked}, nil
}

func (h Handler) MarkConversationReadHandler(ctx context.Context, userID string, conversationID string) (httptransport.MarkReadResponse, error) {
	marked, err := h.Notifications.MarkConversationRead(ctx, userID, conversationID)
	if err != nil {
		return httptransport.MarkReadResponse{}, err
	}
	return httptransport.MarkReadResponse{Marked: marked}, nil
}

func (h Handler) DispatchHandler(ctx context.Context, actorID string, req httptransport.DispatchRequest) (httptransport.DispatchResponse, error) {
	if req.ActorID == "" {
		req.ActorID = actorID
	}
	result, err := h.Notifications.Dispatch(ctx, application.DispatchCommand{
		Domain:     entities.Domain(req.Domain),
		EventKey:   req.EventKey,
		Sector:     req.Sector,
		ActorID:    req.ActorID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Title:      req.Title,
		Message:    req.Message,
		Metadata:   entities.Metadata(req.Metadata),
		Recipients: toCandidates(req.Recipients),
		DedupeKey:  req.DedupeKey,
		Mandatory:  req.Mandatory,
	})
	if err != nil {
		return httptransport.DispatchResponse{}, err
	}
	return httptransport.DispatchResponse{Inserted: result.Inserted, Recipients: result.Recipients}, nil
}

func (h Handler) ListDefaultRulesHandler(ctx context.Context, actorID string, sector string) (httptransport.SectorRuleListResponse, error) {
	rules, err := h.Notifications.ListDefaultRules(ctx, actorID, sector)
	if err != nil {
		return httptransport.SectorRuleListResponse{}, err
	}
	items := make([]httptransport.SectorRuleResponse, 0, len(rules))
	for _, rule := range rules {
		items = append(items, httptransport.SectorRuleResponse{
			Sector:         rule.Sector,
			EventKey:       rule.EventKey,
			Responsibility: string(rule.Responsibility),
			Enabled:        rule.Enabled,
			UpdatedAt:      rule.UpdatedAt,
		})
	}
	return httptransport.SectorRuleListResponse{Items: items}, nil
}

func (h Handler) UpsertDefaultRuleHandler(ctx context.Context, actorID string, req httptransport.SectorRuleRequest) error {
	return h.Notifications.UpsertDefaultRule(ctx, actorID, entities.SectorDefaultRule{
		Sector:         req.Sector,
		EventKey:       req.EventKey,
		Responsibility: entities.ResponsibilityKind(req.Responsibility),
		Enabled:        req.Enabled,
	})
}

func (h Handler) ListMyRulesHandler(ctx context.Context, userID string) (httptransport.UserRuleListResponse, error) {
	rules, err := h.Notifications.ListMyRules(ctx, userID)
	if err != nil {
		return httptransport.UserRuleListResponse{}, err
	}
	items := make([]httptransport.UserRuleResponse, 0, len(rules))
	for _, rule := range rules {
		items = append(items, httptransport.UserRuleResponse{
			EventKey:       rule.EventKey,
			Responsibility: string(rule.Responsibility),
			Enabled:        rule.Enabled,
			UpdatedAt:      rule.UpdatedAt,
		})
	}
	return httptransport.UserRuleListResponse{Items: items}, nil
}

func (h Handler) UpsertMyRuleHandler(ctx context.Context, userID string, req httptransport.UserRuleRequest) error {
	return h.Notifications.UpsertMyRule(ctx, userID, req.EventKey, entities.ResponsibilityKind(req.Responsibility), req.Enabled)
}

func toNotificationResponse(record entities.NotificationRecord) httptransport.NotificationResponse {
	return httptransport.NotificationResponse{
		NotificationID: record.NotificationID,
		EventKey:       record.EventKey,
		Domain:         string(record.Domain),
		Sector:         record.Sector,
		Responsibility: string(record.Responsibility),
		EntityType:     record.EntityType,
		EntityID:       record.EntityID,
		ActorID:        record.ActorID,
		Title:          record.Title,
		Message:        record.Message,
		Metadata:       record.Metadata,
		Mandatory:      record.Mandatory,
		IsRead:         record.IsRead,
		ReadAt:         record.ReadAt,
		CreatedAt:      record.CreatedAt,
	}
}

func toCandidates(recipients []httptransport.DispatchRecipient) []entities.RecipientCandidate {
	out := make([]entities.RecipientCandidate, 0, len(recipients))
	for _, recipient := range recipients {
		kinds := make([]entities.ResponsibilityKind, 0, len(recipient.Kinds))
		for _, kind := range recipient.Kinds {
			kinds = append(kinds, entities.ResponsibilityKind(kind))
		}
		if len(kinds) == 0 {
			kinds = []entities.ResponsibilityKind{entities.KindSystem}
		}
		out = append(out, entities.RecipientCandidate{
			UserID:    recipient.UserID,
			Kinds:     kinds,
			Mandatory: recipient.Mandatory,
		})
	}
	return out
}

func toDomains(domains []string) []entities.Domain {
	out := make([]entities.Domain, 0, len(domains))
	for _, domain := range domains {
		out = append(out, entities.Domain(domain))
	}
	return out
}
