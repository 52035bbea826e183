package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
)

// Store backs every engine port in memory. Idempotence relies on the same
// (recipient_id, dedupe_key) keyed map the postgres adapter expresses as a
// unique index, guarded by a single mutex. The degraded flags emulate the
// optional tables being absent.
type Store struct {
	mu sync.RWMutex

	notifications  map[string]entities.NotificationRecord
	dedupe         map[string]string
	sectorRules    map[string]entities.SectorDefaultRule
	userRules      map[string]entities.UserRuleOverride
	users          map[string]ports.UserProfile
	tasks          map[string]ports.TaskSnapshot
	checklists     map[string][]string
	leads          map[string]ports.LeadSnapshot
	workOrders     map[string]ports.WorkOrderSnapshot
	workOrderLinks map[string][]string
	conversations  map[string]ports.ConversationSnapshot
	unreadCache    map[string]int

	checklistDegraded      bool
	workOrderLinksDegraded bool
	insertsUnavailable     bool
}

var (
	_ ports.NotificationRepository = (*Store)(nil)
	_ ports.RuleStore              = (*Store)(nil)
	_ ports.UserDirectory          = (*Store)(nil)
	_ ports.TaskReader             = (*Store)(nil)
	_ ports.LeadReader             = (*Store)(nil)
	_ ports.WorkOrderReader        = (*Store)(nil)
	_ ports.ConversationReader     = (*Store)(nil)
	_ ports.Clock                  = (*Store)(nil)
	_ ports.IDGenerator            = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		notifications:  make(map[string]entities.NotificationRecord),
		dedupe:         make(map[string]string),
		sectorRules:    make(map[string]entities.SectorDefaultRule),
		userRules:      make(map[string]entities.UserRuleOverride),
		users:          make(map[string]ports.UserProfile),
		tasks:          make(map[string]ports.TaskSnapshot),
		checklists:     make(map[string][]string),
		leads:          make(map[string]ports.LeadSnapshot),
		workOrders:     make(map[string]ports.WorkOrderSnapshot),
		workOrderLinks: make(map[string][]string),
		conversations:  make(map[string]ports.ConversationSnapshot),
		unreadCache:    make(map[string]int),
	}
}

func (s *Store) InsertIgnoringConflicts(_ context.Context, records []entities.NotificationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertsUnavailable {
		return 0, domainerrors.ErrStoreUnavailable
	}

	inserted := 0
	for _, record := range records {
		if strings.TrimSpace(record.NotificationID) == "" || strings.TrimSpace(record.RecipientID) == "" {
			continue
		}
		key := dedupeMapKey(record.RecipientID, record.DedupeKey)
		if _, exists := s.dedupe[key]; exists {
			continue
		}
		s.dedupe[key] = record.NotificationID
		s.notifications[record.NotificationID] = record
		delete(s.unreadCache, record.RecipientID)
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListByRecipient(_ context.Context, recipientID string, filter ports.ListFilter) ([]entities.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.NotificationRecord, 0)
	for _, record := range s.notifications {
		if record.RecipientID != recipientID {
			continue
		}
		if !filter.IncludeRead && record.IsRead {
			continue
		}
		if !domainAllowed(record.Domain, filter.Domains) {
			continue
		}
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].NotificationID > items[j].NotificationID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) CountUnread(_ context.Context, recipientID string, domains []entities.Domain) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(domains) == 0 {
		if cached, ok := s.unreadCache[recipientID]; ok {
			return cached, nil
		}
	}

	count := 0
	for _, record := range s.notifications {
		if record.RecipientID != recipientID || record.IsRead {
			continue
		}
		if !domainAllowed(record.Domain, domains) {
			continue
		}
		count++
	}
	if len(domains) == 0 {
		s.unreadCache[recipientID] = count
	}
	return count, nil
}

func (s *Store) MarkRead(_ context.Context, recipientID string, notificationID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.notifications[notificationID]
	if !ok || record.RecipientID != recipientID {
		return false, nil
	}
	if !record.IsRead {
		readAt := now
		record.IsRead = true
		record.ReadAt = &readAt
		s.notifications[notificationID] = record
		delete(s.unreadCache, recipientID)
	}
	return true, nil
}

func (s *Store) MarkAllRead(_ context.Context, recipientID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flipped := 0
	for id, record := range s.notifications {
		if record.RecipientID != recipientID || record.IsRead {
			continue
		}
		readAt := now
		record.IsRead = true
		record.ReadAt = &readAt
		s.notifications[id] = record
		flipped++
	}
	if flipped > 0 {
		delete(s.unreadCache, recipientID)
	}
	return flipped, nil
}

func (s *Store) MarkConversationRead(_ context.Context, recipientID string, conversationID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flipped := 0
	for id, record := range s.notifications {
		if record.RecipientID != recipientID || record.IsRead {
			continue
		}
		referenced, ok := record.Metadata.ConversationID()
		if !ok || referenced != conversationID {
			continue
		}
		readAt := now
		record.IsRead = true
		record.ReadAt = &readAt
		s.notifications[id] = record
		flipped++
	}
	if flipped > 0 {
		delete(s.unreadCache, recipientID)
	}
	return flipped, nil
}

// InvalidateUnread drops the cached unread count for one recipient. Wired to
// the inbox invalidation topic by the module.
func (s *Store) InvalidateUnread(recipientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unreadCache, recipientID)
}

func (s *Store) SectorDefaults(_ context.Context, sector string, eventKey string) ([]entities.SectorDefaultRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.SectorDefaultRule, 0)
	for _, rule := range s.sectorRules {
		if rule.Sector == sector && rule.EventKey == eventKey {
			items = append(items, rule)
		}
	}
	sortSectorRules(items)
	return items, nil
}

func (s *Store) UserOverrides(_ context.Context, userIDs []string, eventKey string) ([]entities.UserRuleOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		wanted[userID] = struct{}{}
	}
	items := make([]entities.UserRuleOverride, 0)
	for _, rule := range s.userRules {
		if rule.EventKey != eventKey {
			continue
		}
		if _, ok := wanted[rule.UserID]; ok {
			items = append(items, rule)
		}
	}
	sortUserRules(items)
	return items, nil
}

func (s *Store) ListSectorDefaults(_ context.Context, sector string) ([]entities.SectorDefaultRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.SectorDefaultRule, 0)
	for _, rule := range s.sectorRules {
		if sector == "" || rule.Sector == sector {
			items = append(items, rule)
		}
	}
	sortSectorRules(items)
	return items, nil
}

func (s *Store) ListUserOverrides(_ context.Context, userID string) ([]entities.UserRuleOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.UserRuleOverride, 0)
	for _, rule := range s.userRules {
		if rule.UserID == userID {
			items = append(items, rule)
		}
	}
	sortUserRules(items)
	return items, nil
}

func (s *Store) UpsertSectorDefault(_ context.Context, rule entities.SectorDefaultRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectorRules[strings.Join([]string{rule.Sector, rule.EventKey, string(rule.Responsibility)}, "|")] = rule
	return nil
}

func (s *Store) UpsertUserOverride(_ context.Context, rule entities.UserRuleOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRules[strings.Join([]string{rule.UserID, rule.EventKey, string(rule.Responsibility)}, "|")] = rule
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (ports.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.UserProfile{}, domainerrors.ErrUserNotFound
	}
	return profile, nil
}

func (s *Store) ActiveUsers(_ context.Context) ([]ports.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.UserProfile, 0, len(s.users))
	for _, profile := range s.users {
		if profile.Active {
			items = append(items, profile)
		}
	}
	sortProfiles(items)
	return items, nil
}

func (s *Store) ActiveSectorMembers(_ context.Context, sector string) ([]ports.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.UserProfile, 0)
	for _, profile := range s.users {
		if profile.Active && profile.Sector == sector {
			items = append(items, profile)
		}
	}
	sortProfiles(items)
	return items, nil
}

func (s *Store) Administrators(_ context.Context) ([]ports.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.UserProfile, 0)
	for _, profile := range s.users {
		if profile.Active && profile.Role == ports.RoleAdministrator {
			items = append(items, profile)
		}
	}
	sortProfiles(items)
	return items, nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (ports.TaskSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[strings.TrimSpace(taskID)]
	if !ok {
		return ports.TaskSnapshot{}, domainerrors.ErrTaskNotFound
	}
	return task, nil
}

func (s *Store) ChecklistResponsibles(_ context.Context, taskID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checklistDegraded {
		return nil, domainerrors.ErrSchemaDegraded
	}
	return append([]string(nil), s.checklists[strings.TrimSpace(taskID)]...), nil
}

func (s *Store) GetLead(_ context.Context, leadID string) (ports.LeadSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[strings.TrimSpace(leadID)]
	if !ok {
		return ports.LeadSnapshot{}, domainerrors.ErrLeadNotFound
	}
	return lead, nil
}

func (s *Store) GetWorkOrder(_ context.Context, workOrderID string) (ports.WorkOrderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workOrder, ok := s.workOrders[strings.TrimSpace(workOrderID)]
	if !ok {
		return ports.WorkOrderSnapshot{}, domainerrors.ErrWorkOrderNotFound
	}
	return workOrder, nil
}

func (s *Store) LinkedTaskParticipants(_ context.Context, workOrderID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.workOrderLinksDegraded {
		return nil, domainerrors.ErrSchemaDegraded
	}

	participants := make([]string, 0)
	seen := make(map[string]struct{})
	for _, taskID := range s.workOrderLinks[strings.TrimSpace(workOrderID)] {
		task, ok := s.tasks[taskID]
		if !ok {
			continue
		}
		ids := append([]string{task.AssigneeID, task.CreatorID}, task.ObserverIDs...)
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			participants = append(participants, id)
		}
	}
	sort.Strings(participants)
	return participants, nil
}

func (s *Store) GetConversation(_ context.Context, conversationID string) (ports.ConversationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[strings.TrimSpace(conversationID)]
	if !ok {
		return ports.ConversationSnapshot{}, domainerrors.ErrConversationNotFound
	}
	return conversation, nil
}

// AddUser and the other seeding helpers below are used by the in-memory
// module wiring and by tests.
func (s *Store) AddUser(profile ports.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[profile.UserID] = profile
}

func (s *Store) AddTask(task ports.TaskSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.TaskID] = task
}

func (s *Store) SetChecklistResponsibles(taskID string, userIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists[taskID] = append([]string(nil), userIDs...)
}

func (s *Store) AddLead(lead ports.LeadSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.LeadID] = lead
}

func (s *Store) AddWorkOrder(workOrder ports.WorkOrderSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workOrders[workOrder.WorkOrderID] = workOrder
}

func (s *Store) LinkTask(workOrderID string, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workOrderLinks[workOrderID] = append(s.workOrderLinks[workOrderID], taskID)
}

func (s *Store) AddConversation(conversation ports.ConversationSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ConversationID] = conversation
}

// SetChecklistDegraded emulates the optional checklist table being absent.
func (s *Store) SetChecklistDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklistDegraded = degraded
}

// SetWorkOrderLinksDegraded emulates the optional linking table being absent.
func (s *Store) SetWorkOrderLinksDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workOrderLinksDegraded = degraded
}

// SetInsertsUnavailable makes every insert fail with ErrStoreUnavailable.
func (s *Store) SetInsertsUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertsUnavailable = unavailable
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func dedupeMapKey(recipientID string, dedupeKey string) string {
	return recipientID + "|" + dedupeKey
}

func domainAllowed(domain entities.Domain, domains []entities.Domain) bool {
	if len(domains) == 0 {
		return true
	}
	for _, allowed := range domains {
		if allowed == domain {
			return true
		}
	}
	return false
}

func sortProfiles(items []ports.UserProfile) {
	sort.Slice(items, func(i, j int) bool { return items[i].UserID < items[j].UserID })
}

func sortSectorRules(items []entities.SectorDefaultRule) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sector != items[j].Sector {
			return items[i].Sector < items[j].Sector
		}
		if items[i].EventKey != items[j].EventKey {
			return items[i].EventKey < items[j].EventKey
		}
		return items[i].Responsibility < items[j].Responsibility
	})
}

func sortUserRules(items []entities.UserRuleOverride) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].UserID != items[j].UserID {
			return items[i].UserID < items[j].UserID
		}
		if items[i].EventKey != items[j].EventKey {
			return items[i].EventKey < items[j].EventKey
		}
		return items[i].Responsibility < items[j].Responsibility
	})
}
