package application

import (
	"context"
	"errors"
	"testing"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
)

type fakeTaskReader struct {
	task         ports.TaskSnapshot
	taskErr      error
	checklist    []string
	checklistErr error
}

func (f *fakeTaskReader) GetTask(_ context.Context, _ string) (ports.TaskSnapshot, error) {
	return f.task, f.taskErr
}

func (f *fakeTaskReader) ChecklistResponsibles(_ context.Context, _ string) ([]string, error) {
	return f.checklist, f.checklistErr
}

type fakeLeadReader struct {
	lead ports.LeadSnapshot
	err  error
}

func (f *fakeLeadReader) GetLead(_ context.Context, _ string) (ports.LeadSnapshot, error) {
	return f.lead, f.err
}

type fakeWorkOrderReader struct {
	workOrder       ports.WorkOrderSnapshot
	workOrderErr    error
	participants    []string
	participantsErr error
}

func (f *fakeWorkOrderReader) GetWorkOrder(_ context.Context, _ string) (ports.WorkOrderSnapshot, error) {
	return f.workOrder, f.workOrderErr
}

func (f *fakeWorkOrderReader) LinkedTaskParticipants(_ context.Context, _ string) ([]string, error) {
	return f.participants, f.participantsErr
}

type fakeConversationReader struct {
	conversation ports.ConversationSnapshot
	err          error
}

func (f *fakeConversationReader) GetConversation(_ context.Context, _ string) (ports.ConversationSnapshot, error) {
	return f.conversation, f.err
}

type sectorDirectory struct {
	members map[string][]ports.UserProfile
	admins  []ports.UserProfile
}

func (d *sectorDirectory) GetUser(_ context.Context, _ string) (ports.UserProfile, error) {
	return ports.UserProfile{}, domainerrors.ErrUserNotFound
}

func (d *sectorDirectory) ActiveUsers(_ context.Context) ([]ports.UserProfile, error) {
	return nil, nil
}

func (d *sectorDirectory) ActiveSectorMembers(_ context.Context, sector string) ([]ports.UserProfile, error) {
	return d.members[sector], nil
}

func (d *sectorDirectory) Administrators(_ context.Context) ([]ports.UserProfile, error) {
	return d.admins, nil
}

func candidateKinds(audience ResolvedAudience) map[string][]entities.ResponsibilityKind {
	out := make(map[string][]entities.ResponsibilityKind)
	for _, candidate := range audience.Candidates {
		out[candidate.UserID] = append(out[candidate.UserID], candidate.Kinds...)
	}
	return out
}

func TestResolveTaskCollectsInvolvedUsers(t *testing.T) {
	resolvers := Resolvers{
		Tasks: &fakeTaskReader{
			task: ports.TaskSnapshot{
				TaskID:      "task_001",
				AssigneeID:  "usr_alex",
				CreatorID:   "usr_clara",
				Sector:      "support",
				ObserverIDs: []string{"usr_diego"},
			},
			checklist: []string{"usr_ana_souza"},
		},
		Directory: &sectorDirectory{},
	}

	audience, err := resolvers.ResolveTask(context.Background(), "task_001", false)
	if err != nil {
		t.Fatalf("resolve task failed: %v", err)
	}
	if audience.Sector != "support" {
		t.Fatalf("expected the task sector, got %q", audience.Sector)
	}
	kinds := candidateKinds(audience)
	if len(kinds) != 4 {
		t.Fatalf("expected 4 distinct candidates, got %v", kinds)
	}
	if kinds["usr_alex"][0] != entities.KindAssignee {
		t.Fatalf("expected assignee kind for usr_alex, got %v", kinds["usr_alex"])
	}
	if kinds["usr_ana_souza"][0] != entities.KindObserver {
		t.Fatalf("expected checklist responsible as observer, got %v", kinds["usr_ana_souza"])
	}
}

func TestResolveTaskSkipsDegradedChecklist(t *testing.T) {
	resolvers := Resolvers{
		Tasks: &fakeTaskReader{
			task:         ports.TaskSnapshot{TaskID: "task_001", AssigneeID: "usr_alex", Sector: "support"},
			checklistErr: domainerrors.ErrSchemaDegraded,
		},
		Directory: &sectorDirectory{},
	}

	audience, err := resolvers.ResolveTask(context.Background(), "task_001", false)
	if err != nil {
		t.Fatalf("expected degraded checklist to be skipped, got %v", err)
	}
	if len(audience.Candidates) != 1 || audience.Candidates[0].UserID != "usr_alex" {
		t.Fatalf("expected only the assignee, got %v", audience.Candidates)
	}
}

func TestResolveTaskIncludesSectorMembersOnRequest(t *testing.T) {
	resolvers := Resolvers{
		Tasks: &fakeTaskReader{
			task: ports.TaskSnapshot{TaskID: "task_001", AssigneeID: "usr_alex", Sector: "support"},
		},
		Directory: &sectorDirectory{members: map[string][]ports.UserProfile{
			"support": {{UserID: "usr_clara", Sector: "support", Active: true}},
		}},
	}

	audience, err := resolvers.ResolveTask(context.Background(), "task_001", true)
	if err != nil {
		t.Fatalf("resolve task failed: %v", err)
	}
	kinds := candidateKinds(audience)
	if kinds["usr_clara"][0] != entities.KindSectorMember {
		t.Fatalf("expected sector member kind, got %v", kinds["usr_clara"])
	}
}

func TestResolveTaskPropagatesMissingTask(t *testing.T) {
	resolvers := Resolvers{
		Tasks:     &fakeTaskReader{taskErr: domainerrors.ErrTaskNotFound},
		Directory: &sectorDirectory{},
	}
	if _, err := resolvers.ResolveTask(context.Background(), "task_404", false); !errors.Is(err, domainerrors.ErrTaskNotFound) {
		t.Fatalf("expected task not found, got %v", err)
	}
}

func TestResolveLeadAddsAdministratorsAsMandatory(t *testing.T) {
	resolvers := Resolvers{
		Leads: &fakeLeadReader{lead: ports.LeadSnapshot{
			LeadID: "lead_001", OwnerID: "usr_bruno", SupervisorID: "usr_clara",
		}},
		Directory: &sectorDirectory{
			members: map[string][]ports.UserProfile{
				"sales": {{UserID: "usr_ana_lima", Sector: "sales", Active: true}},
			},
			admins: []ports.UserProfile{{UserID: "usr_marta", Role: ports.RoleAdministrator, Active: true}},
		},
	}

	audience, err := resolvers.ResolveLead(context.Background(), "lead_001")
	if err != nil {
		t.Fatalf("resolve lead failed: %v", err)
	}
	if audience.Sector != "sales" {
		t.Fatalf("expected the sales fallback sector, got %q", audience.Sector)
	}

	var adminCandidate *entities.RecipientCandidate
	for i := range audience.Candidates {
		if audience.Candidates[i].UserID == "usr_marta" {
			adminCandidate = &audience.Candidates[i]
		}
	}
	if adminCandidate == nil {
		t.Fatalf("expected the administrator among candidates, got %v", audience.Candidates)
	}
	if !adminCandidate.Mandatory || adminCandidate.Kinds[0] != entities.KindSystem {
		t.Fatalf("expected a mandatory system candidate, got %v", *adminCandidate)
	}
}

func TestResolveWorkOrderCollectsLinkedParticipants(t *testing.T) {
	resolvers := Resolvers{
		WorkOrders: &fakeWorkOrderReader{
			workOrder:    ports.WorkOrderSnapshot{WorkOrderID: "wo_001", CreatorID: "usr_clara"},
			participants: []string{"usr_alex", "usr_diego"},
		},
		Directory: &sectorDirectory{members: map[string][]ports.UserProfile{
			"works": {{UserID: "usr_elisa", Sector: "works", Active: true}},
		}},
	}

	audience, err := resolvers.ResolveWorkOrder(context.Background(), "wo_001")
	if err != nil {
		t.Fatalf("resolve work order failed: %v", err)
	}
	if audience.Sector != "works" {
		t.Fatalf("expected the works sector, got %q", audience.Sector)
	}
	kinds := candidateKinds(audience)
	if kinds["usr_alex"][0] != entities.KindLinkedTaskParticipant {
		t.Fatalf("expected linked task participant kind, got %v", kinds["usr_alex"])
	}
	if kinds["usr_elisa"][0] != entities.KindSectorMember {
		t.Fatalf("expected sector member kind, got %v", kinds["usr_elisa"])
	}
}

func TestResolveWorkOrderSkipsDegradedLinks(t *testing.T) {
	resolvers := Resolvers{
		WorkOrders: &fakeWorkOrderReader{
			workOrder:       ports.WorkOrderSnapshot{WorkOrderID: "wo_001", CreatorID: "usr_clara"},
			participantsErr: domainerrors.ErrSchemaDegraded,
		},
		Directory: &sectorDirectory{},
	}

	audience, err := resolvers.ResolveWorkOrder(context.Background(), "wo_001")
	if err != nil {
		t.Fatalf("expected degraded links to be skipped, got %v", err)
	}
	if len(audience.Candidates) != 1 || audience.Candidates[0].UserID != "usr_clara" {
		t.Fatalf("expected only the creator, got %v", audience.Candidates)
	}
}

func TestResolveDirectMessagePicksTheOtherParticipant(t *testing.T) {
	resolvers := Resolvers{
		Conversations: &fakeConversationReader{conversation: ports.ConversationSnapshot{
			ConversationID: "conv_001", UserA: "usr_alex", UserB: "usr_bruno",
		}},
	}

	audience, err := resolvers.ResolveDirectMessage(context.Background(), "conv_001", "usr_alex")
	if err != nil {
		t.Fatalf("resolve direct message failed: %v", err)
	}
	if len(audience.Candidates) != 1 || audience.Candidates[0].UserID != "usr_bruno" {
		t.Fatalf("expected usr_bruno, got %v", audience.Candidates)
	}
	if audience.Candidates[0].Kinds[0] != entities.KindDirect {
		t.Fatalf("expected direct kind, got %v", audience.Candidates[0].Kinds)
	}
}

func TestResolveDirectMessageRejectsDegenerateConversations(t *testing.T) {
	resolvers := Resolvers{
		Conversations: &fakeConversationReader{conversation: ports.ConversationSnapshot{
			ConversationID: "conv_solo", UserA: "usr_alex", UserB: "usr_alex",
		}},
	}
	if _, err := resolvers.ResolveDirectMessage(context.Background(), "conv_solo", "usr_alex"); !errors.Is(err, domainerrors.ErrConversationNotFound) {
		t.Fatalf("expected conversation not found, got %v", err)
	}
}
