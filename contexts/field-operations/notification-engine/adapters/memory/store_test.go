package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
)

func record(id string, recipientID string, dedupeKey string, createdAt time.Time) entities.NotificationRecord {
	return entities.NotificationRecord{
		NotificationID: id,
		RecipientID:    recipientID,
		Domain:         entities.DomainTasks,
		EventKey:       entities.EventTaskCommentCreated,
		DedupeKey:      dedupeKey,
		Title:          "t",
		Message:        "m",
		CreatedAt:      createdAt,
	}
}

func TestInsertIgnoringConflictsIsIdempotent(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	inserted, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_1", "usr_alex", "TASK_COMMENT_CREATED:comment_1", now),
	})
	if err != nil || inserted != 1 {
		t.Fatalf("first insert: inserted=%d err=%v", inserted, err)
	}

	inserted, err = store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_2", "usr_alex", "TASK_COMMENT_CREATED:comment_1", now),
	})
	if err != nil {
		t.Fatalf("replay insert failed: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected replay to insert nothing, got %d", inserted)
	}

	items, err := store.ListByRecipient(context.Background(), "usr_alex", ports.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].NotificationID != "ntf_1" {
		t.Fatalf("expected the original record to win, got %v", items)
	}
}

func TestInsertIgnoringConflictsUnderConcurrency(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	const attempts = 32
	results := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
				record(fmt.Sprintf("ntf_%d", i), "usr_alex", "TASK_ASSIGNED:task_001", now),
			})
			if err != nil {
				t.Errorf("insert %d failed: %v", i, err)
				return
			}
			results[i] = inserted
		}()
	}
	wg.Wait()

	total := 0
	for _, inserted := range results {
		total += inserted
	}
	if total != 1 {
		t.Fatalf("expected exactly one winner across concurrent attempts, got %d", total)
	}
}

func TestInsertSkipsRecordsWithoutIdentity(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	inserted, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("", "usr_alex", "k1", now),
		record("ntf_1", " ", "k2", now),
		record("ntf_2", "usr_alex", "k3", now),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected only the complete record to land, got %d", inserted)
	}
}

func TestInsertUnavailableStoreFails(t *testing.T) {
	store := NewStore()
	store.SetInsertsUnavailable(true)

	_, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_1", "usr_alex", "k1", time.Now().UTC()),
	})
	if !errors.Is(err, domainerrors.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestListByRecipientOrderingAndFilters(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	older := record("ntf_old", "usr_alex", "k1", base)
	newer := record("ntf_new", "usr_alex", "k2", base.Add(time.Minute))
	chat := record("ntf_chat", "usr_alex", "k3", base.Add(2*time.Minute))
	chat.Domain = entities.DomainChat
	foreign := record("ntf_other", "usr_bruno", "k4", base)

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{older, newer, chat, foreign}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	items, err := store.ListByRecipient(context.Background(), "usr_alex", ports.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 3 || items[0].NotificationID != "ntf_chat" || items[2].NotificationID != "ntf_old" {
		t.Fatalf("expected newest-first ordering, got %v", items)
	}

	items, err = store.ListByRecipient(context.Background(), "usr_alex", ports.ListFilter{
		Domains: []entities.Domain{entities.DomainChat},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].NotificationID != "ntf_chat" {
		t.Fatalf("expected the domain filter to keep only chat, got %v", items)
	}

	items, err = store.ListByRecipient(context.Background(), "usr_alex", ports.ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the limit to apply, got %d items", len(items))
	}
}

func TestMarkReadIsIdempotentAndScopedToTheOwner(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_1", "usr_alex", "k1", now),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	found, err := store.MarkRead(context.Background(), "usr_alex", "ntf_1", now.Add(time.Minute))
	if err != nil || !found {
		t.Fatalf("first mark read: found=%v err=%v", found, err)
	}
	found, err = store.MarkRead(context.Background(), "usr_alex", "ntf_1", now.Add(2*time.Minute))
	if err != nil || !found {
		t.Fatalf("repeated mark read: found=%v err=%v", found, err)
	}

	items, _ := store.ListByRecipient(context.Background(), "usr_alex", ports.ListFilter{IncludeRead: true})
	if !items[0].IsRead || items[0].ReadAt == nil {
		t.Fatal("expected the record to stay read")
	}
	if !items[0].ReadAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected the first read timestamp to be preserved, got %v", items[0].ReadAt)
	}

	found, err = store.MarkRead(context.Background(), "usr_bruno", "ntf_1", now)
	if err != nil {
		t.Fatalf("foreign mark read errored: %v", err)
	}
	if found {
		t.Fatal("expected another user's record to look missing")
	}
}

func TestMarkAllReadCountsOnlyFlippedRecords(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_1", "usr_alex", "k1", now),
		record("ntf_2", "usr_alex", "k2", now),
		record("ntf_3", "usr_bruno", "k3", now),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := store.MarkRead(context.Background(), "usr_alex", "ntf_1", now); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	flipped, err := store.MarkAllRead(context.Background(), "usr_alex", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark all read failed: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("expected 1 flipped record, got %d", flipped)
	}

	flipped, err = store.MarkAllRead(context.Background(), "usr_alex", now.Add(2*time.Minute))
	if err != nil || flipped != 0 {
		t.Fatalf("expected replay to flip nothing, got flipped=%d err=%v", flipped, err)
	}
}

func TestMarkConversationReadMatchesMetadata(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	inConversation := record("ntf_1", "usr_alex", "k1", now)
	inConversation.Domain = entities.DomainChat
	inConversation.Metadata = entities.Metadata{}.WithConversationID("conv_001")
	mentionInConversation := record("ntf_2", "usr_alex", "k2", now)
	mentionInConversation.Metadata = entities.Metadata{}.WithConversationID("conv_001")
	unrelated := record("ntf_3", "usr_alex", "k3", now)

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		inConversation, mentionInConversation, unrelated,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	flipped, err := store.MarkConversationRead(context.Background(), "usr_alex", "conv_001", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark conversation read failed: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("expected both conversation-scoped records to flip, got %d", flipped)
	}

	count, err := store.CountUnread(context.Background(), "usr_alex", nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the unrelated record to stay unread, got %d", count)
	}
}

func TestCountUnreadCacheInvalidation(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_1", "usr_alex", "k1", now),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	count, err := store.CountUnread(context.Background(), "usr_alex", nil)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 unread, got count=%d err=%v", count, err)
	}

	if _, err := store.InsertIgnoringConflicts(context.Background(), []entities.NotificationRecord{
		record("ntf_2", "usr_alex", "k2", now),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	count, _ = store.CountUnread(context.Background(), "usr_alex", nil)
	if count != 2 {
		t.Fatalf("expected the insert to refresh the cached count, got %d", count)
	}

	store.InvalidateUnread("usr_alex")
	count, _ = store.CountUnread(context.Background(), "usr_alex", nil)
	if count != 2 {
		t.Fatalf("expected recount after invalidation, got %d", count)
	}
}

func TestDegradedSchemaFlags(t *testing.T) {
	store := NewStore()
	SeedSampleData(store)

	store.SetChecklistDegraded(true)
	if _, err := store.ChecklistResponsibles(context.Background(), "task_001"); !errors.Is(err, domainerrors.ErrSchemaDegraded) {
		t.Fatalf("expected degraded checklist error, got %v", err)
	}

	store.SetWorkOrderLinksDegraded(true)
	if _, err := store.LinkedTaskParticipants(context.Background(), "wo_001"); !errors.Is(err, domainerrors.ErrSchemaDegraded) {
		t.Fatalf("expected degraded links error, got %v", err)
	}
}

func TestLinkedTaskParticipantsCollectsAndDeduplicates(t *testing.T) {
	store := NewStore()
	SeedSampleData(store)

	store.AddTask(ports.TaskSnapshot{
		TaskID:     "task_002",
		AssigneeID: "usr_alex",
		CreatorID:  "usr_diego",
		Sector:     "works",
	})
	store.LinkTask("wo_001", "task_002")

	participants, err := store.LinkedTaskParticipants(context.Background(), "wo_001")
	if err != nil {
		t.Fatalf("linked participants failed: %v", err)
	}

	seen := map[string]int{}
	for _, id := range participants {
		seen[id]++
	}
	if seen["usr_alex"] != 1 {
		t.Fatalf("expected usr_alex exactly once, got %d in %v", seen["usr_alex"], participants)
	}
	for _, id := range []string{"usr_clara", "usr_diego", "usr_elisa"} {
		if seen[id] != 1 {
			t.Fatalf("expected %s among participants, got %v", id, participants)
		}
	}
}
