package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
)

const worksSector = "works"

// ResolvedAudience is one resolver's answer: the occurrence sector plus the
// candidate recipients it contributes, each tagged with a responsibility kind.
type ResolvedAudience struct {
	Sector     string
	Candidates []entities.RecipientCandidate
}

// Resolvers computes candidate recipients per domain collaborator. The
// independent reads inside one resolution fan out concurrently; an optional
// portion that fails (degraded schema included) is logged and contributes
// nothing instead of failing the whole resolution.
type Resolvers struct {
	Directory     ports.UserDirectory
	Tasks         ports.TaskReader
	Leads         ports.LeadReader
	WorkOrders    ports.WorkOrderReader
	Conversations ports.ConversationReader
	Logger        *slog.Logger
}

// ResolveTask returns the assignee, creator, observers and checklist
// responsibles of a task, plus the task sector's active members when asked.
func (r Resolvers) ResolveTask(ctx context.Context, taskID string, includeSectorMembers bool) (ResolvedAudience, error) {
	task, err := r.Tasks.GetTask(ctx, strings.TrimSpace(taskID))
	if err != nil {
		return ResolvedAudience{}, err
	}

	candidates := make([]entities.RecipientCandidate, 0, 4+len(task.ObserverIDs))
	candidates = appendCandidate(candidates, task.AssigneeID, entities.KindAssignee, false)
	candidates = appendCandidate(candidates, task.CreatorID, entities.KindCreator, false)
	for _, observerID := range task.ObserverIDs {
		candidates = appendCandidate(candidates, observerID, entities.KindObserver, false)
	}

	var checklistIDs []string
	var members []ports.UserProfile
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ids, err := r.Tasks.ChecklistResponsibles(groupCtx, task.TaskID)
		if err != nil {
			r.logPortionSkipped("task_checklist_portion_skipped", task.TaskID, err)
			return nil
		}
		checklistIDs = ids
		return nil
	})
	if includeSectorMembers && strings.TrimSpace(task.Sector) != "" {
		group.Go(func() error {
			profiles, err := r.Directory.ActiveSectorMembers(groupCtx, task.Sector)
			if err != nil {
				r.logPortionSkipped("task_sector_portion_skipped", task.TaskID, err)
				return nil
			}
			members = profiles
			return nil
		})
	}
	_ = group.Wait()

	for _, responsibleID := range checklistIDs {
		candidates = appendCandidate(candidates, responsibleID, entities.KindObserver, false)
	}
	for _, member := range members {
		candidates = appendCandidate(candidates, member.UserID, entities.KindSectorMember, false)
	}

	return ResolvedAudience{Sector: task.Sector, Candidates: candidates}, nil
}

// ResolveLead returns the owning user, the creating supervisor, the active
// members of the inferred sector, and the top-role administrators (mandatory).
func (r Resolvers) ResolveLead(ctx context.Context, leadID string) (ResolvedAudience, error) {
	lead, err := r.Leads.GetLead(ctx, strings.TrimSpace(leadID))
	if err != nil {
		return ResolvedAudience{}, err
	}

	sector := strings.TrimSpace(lead.Sector)
	if sector == "" {
		sector = "sales"
	}

	candidates := make([]entities.RecipientCandidate, 0, 8)
	candidates = appendCandidate(candidates, lead.OwnerID, entities.KindOwner, false)
	candidates = appendCandidate(candidates, lead.SupervisorID, entities.KindCreator, false)

	var members, admins []ports.UserProfile
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		profiles, err := r.Directory.ActiveSectorMembers(groupCtx, sector)
		if err != nil {
			r.logPortionSkipped("lead_sector_portion_skipped", lead.LeadID, err)
			return nil
		}
		members = profiles
		return nil
	})
	group.Go(func() error {
		profiles, err := r.Directory.Administrators(groupCtx)
		if err != nil {
			r.logPortionSkipped("lead_admin_portion_skipped", lead.LeadID, err)
			return nil
		}
		admins = profiles
		return nil
	})
	_ = group.Wait()

	for _, member := range members {
		candidates = appendCandidate(candidates, member.UserID, entities.KindSectorMember, false)
	}
	for _, admin := range admins {
		candidates = appendCandidate(candidates, admin.UserID, entities.KindSystem, true)
	}

	return ResolvedAudience{Sector: sector, Candidates: candidates}, nil
}

// ResolveWorkOrder returns the creator, the participants of tasks linked to
// the work order's process steps, and the active members of the works sector.
func (r Resolvers) ResolveWorkOrder(ctx context.Context, workOrderID string) (ResolvedAudience, error) {
	workOrder, err := r.WorkOrders.GetWorkOrder(ctx, strings.TrimSpace(workOrderID))
	if err != nil {
		return ResolvedAudience{}, err
	}

	candidates := make([]entities.RecipientCandidate, 0, 8)
	candidates = appendCandidate(candidates, workOrder.CreatorID, entities.KindCreator, false)

	var participantIDs []string
	var members []ports.UserProfile
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ids, err := r.WorkOrders.LinkedTaskParticipants(groupCtx, workOrder.WorkOrderID)
		if err != nil {
			r.logPortionSkipped("work_order_links_portion_skipped", workOrder.WorkOrderID, err)
			return nil
		}
		participantIDs = ids
		return nil
	})
	group.Go(func() error {
		profiles, err := r.Directory.ActiveSectorMembers(groupCtx, worksSector)
		if err != nil {
			r.logPortionSkipped("work_order_sector_portion_skipped", workOrder.WorkOrderID, err)
			return nil
		}
		members = profiles
		return nil
	})
	_ = group.Wait()

	for _, participantID := range participantIDs {
		candidates = appendCandidate(candidates, participantID, entities.KindLinkedTaskParticipant, false)
	}
	for _, member := range members {
		candidates = appendCandidate(candidates, member.UserID, entities.KindSectorMember, false)
	}

	return ResolvedAudience{Sector: worksSector, Candidates: candidates}, nil
}

// ResolveDirectMessage returns the other participant of a one-to-one
// conversation as the single direct recipient.
func (r Resolvers) ResolveDirectMessage(ctx context.Context, conversationID string, senderID string) (ResolvedAudience, error) {
	conversation, err := r.Conversations.GetConversation(ctx, strings.TrimSpace(conversationID))
	if err != nil {
		return ResolvedAudience{}, err
	}

	senderID = strings.TrimSpace(senderID)
	other := conversation.UserA
	if other == senderID {
		other = conversation.UserB
	}
	if other == "" || other == senderID {
		return ResolvedAudience{}, domainerrors.ErrConversationNotFound
	}

	return ResolvedAudience{
		Candidates: []entities.RecipientCandidate{
			{UserID: other, Kinds: []entities.ResponsibilityKind{entities.KindDirect}},
		},
	}, nil
}

func (r Resolvers) logPortionSkipped(event string, entityID string, err error) {
	logger := ResolveLogger(r.Logger)
	attrs := []any{
		"event", event,
		"module", moduleName,
		"layer", "application",
		"entity_id", entityID,
		"error", err.Error(),
	}
	if errors.Is(err, domainerrors.ErrSchemaDegraded) {
		logger.Warn("optional schema portion unavailable, continuing without it", attrs...)
		return
	}
	logger.Warn("recipient portion failed, continuing without it", attrs...)
}

func appendCandidate(candidates []entities.RecipientCandidate, userID string, kind entities.ResponsibilityKind, mandatory bool) []entities.RecipientCandidate {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return candidates
	}
	return append(candidates, entities.RecipientCandidate{
		UserID:    userID,
		Kinds:     []entities.ResponsibilityKind{kind},
		Mandatory: mandatory,
	})
}
