package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
	domainerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	"meridian/contexts/field-operations/notification-engine/ports"
	"meridian/internal/platform/db"
)

// Repository backs every engine port on postgres. Idempotence lives in the
// unique (recipient_id, dedupe_key) index on notifications; concurrent
// dispatch attempts race on the index, never on application state.
type Repository struct {
	db     *gorm.DB
	caps   db.Capabilities
	logger *slog.Logger
}

func NewRepository(gormDB *gorm.DB, caps db.Capabilities, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     gormDB,
		caps:   caps,
		logger: logger,
	}
}

var (
	_ ports.NotificationRepository = (*Repository)(nil)
	_ ports.RuleStore              = (*Repository)(nil)
	_ ports.UserDirectory          = (*Repository)(nil)
	_ ports.TaskReader             = (*Repository)(nil)
	_ ports.LeadReader             = (*Repository)(nil)
	_ ports.WorkOrderReader        = (*Repository)(nil)
	_ ports.ConversationReader     = (*Repository)(nil)
)

func (r *Repository) InsertIgnoringConflicts(ctx context.Context, records []entities.NotificationRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([]notificationModel, 0, len(records))
	for _, record := range records {
		rows = append(rows, notificationModelFromEntity(record))
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(&rows)
	if create.Error != nil {
		// 23505 should not surface with DoNothing, but batch inserts on older
		// schemas still can; those rows were simply delivered already.
		if isUniqueViolation(create.Error) {
			return 0, nil
		}
		r.logError("notification_repo_insert_failed", create.Error, "count", len(records))
		return 0, domainerrors.ErrStoreUnavailable
	}
	return int(create.RowsAffected), nil
}

func (r *Repository) ListByRecipient(ctx context.Context, recipientID string, filter ports.ListFilter) ([]entities.NotificationRecord, error) {
	tx := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ?", strings.TrimSpace(recipientID))
	if !filter.IncludeRead {
		tx = tx.Where("is_read = ?", false)
	}
	if len(filter.Domains) > 0 {
		tx = tx.Where("domain IN ?", domainStrings(filter.Domains))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []notificationModel
	if err := tx.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		r.logError("notification_repo_list_failed", err, "recipient_id", strings.TrimSpace(recipientID))
		return nil, domainerrors.ErrStoreUnavailable
	}
	items := make([]entities.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountUnread(ctx context.Context, recipientID string, domains []entities.Domain) (int, error) {
	tx := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ?", strings.TrimSpace(recipientID)).
		Where("is_read = ?", false)
	if len(domains) > 0 {
		tx = tx.Where("domain IN ?", domainStrings(domains))
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		r.logError("notification_repo_count_unread_failed", err, "recipient_id", strings.TrimSpace(recipientID))
		return 0, domainerrors.ErrStoreUnavailable
	}
	return int(count), nil
}

func (r *Repository) MarkRead(ctx context.Context, recipientID string, notificationID string, now time.Time) (bool, error) {
	var row notificationModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(notificationID)).
		Where("recipient_id = ?", strings.TrimSpace(recipientID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		r.logError("notification_repo_mark_read_failed", err, "notification_id", strings.TrimSpace(notificationID))
		return false, domainerrors.ErrStoreUnavailable
	}
	if row.IsRead {
		return true, nil
	}
	update := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ?", row.ID).
		Where("is_read = ?", false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if update.Error != nil {
		r.logError("notification_repo_mark_read_failed", update.Error, "notification_id", row.ID)
		return false, domainerrors.ErrStoreUnavailable
	}
	return true, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int, error) {
	update := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ?", strings.TrimSpace(recipientID)).
		Where("is_read = ?", false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if update.Error != nil {
		r.logError("notification_repo_mark_all_read_failed", update.Error, "recipient_id", strings.TrimSpace(recipientID))
		return 0, domainerrors.ErrStoreUnavailable
	}
	return int(update.RowsAffected), nil
}

func (r *Repository) MarkConversationRead(ctx context.Context, recipientID string, conversationID string, now time.Time) (int, error) {
	update := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ?", strings.TrimSpace(recipientID)).
		Where("is_read = ?", false).
		Where("metadata ->> 'conversation_id' = ?", strings.TrimSpace(conversationID)).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if update.Error != nil {
		r.logError("notification_repo_mark_conversation_read_failed", update.Error,
			"recipient_id", strings.TrimSpace(recipientID),
			"conversation_id", strings.TrimSpace(conversationID),
		)
		return 0, domainerrors.ErrStoreUnavailable
	}
	return int(update.RowsAffected), nil
}

func (r *Repository) SectorDefaults(ctx context.Context, sector string, eventKey string) ([]entities.SectorDefaultRule, error) {
	var rows []sectorRuleModel
	err := r.db.WithContext(ctx).
		Where("sector = ?", strings.TrimSpace(sector)).
		Where("event_key = ?", strings.TrimSpace(eventKey)).
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_sector_rules_failed", err, "sector", strings.TrimSpace(sector))
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toSectorRuleEntities(rows), nil
}

func (r *Repository) UserOverrides(ctx context.Context, userIDs []string, eventKey string) ([]entities.UserRuleOverride, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []userRuleModel
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Where("event_key = ?", strings.TrimSpace(eventKey)).
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_user_rules_failed", err, "event_key", strings.TrimSpace(eventKey))
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toUserRuleEntities(rows), nil
}

func (r *Repository) ListSectorDefaults(ctx context.Context, sector string) ([]entities.SectorDefaultRule, error) {
	tx := r.db.WithContext(ctx).Model(&sectorRuleModel{})
	if strings.TrimSpace(sector) != "" {
		tx = tx.Where("sector = ?", strings.TrimSpace(sector))
	}
	var rows []sectorRuleModel
	if err := tx.Order("sector ASC, event_key ASC, responsibility ASC").Find(&rows).Error; err != nil {
		r.logError("notification_repo_list_sector_rules_failed", err, "sector", strings.TrimSpace(sector))
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toSectorRuleEntities(rows), nil
}

func (r *Repository) ListUserOverrides(ctx context.Context, userID string) ([]entities.UserRuleOverride, error) {
	var rows []userRuleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("event_key ASC, responsibility ASC").
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_list_user_rules_failed", err, "user_id", strings.TrimSpace(userID))
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toUserRuleEntities(rows), nil
}

func (r *Repository) UpsertSectorDefault(ctx context.Context, rule entities.SectorDefaultRule) error {
	row := sectorRuleModel{
		Sector:         rule.Sector,
		EventKey:       rule.EventKey,
		Responsibility: string(rule.Responsibility),
		Enabled:        rule.Enabled,
		UpdatedAt:      rule.UpdatedAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sector"}, {Name: "event_key"}, {Name: "responsibility"}},
		DoUpdates: clause.Assignments(map[string]any{
			"enabled":    row.Enabled,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		r.logError("notification_repo_upsert_sector_rule_failed", create.Error,
			"sector", rule.Sector,
			"event_key", rule.EventKey,
		)
		return domainerrors.ErrStoreUnavailable
	}
	return nil
}

func (r *Repository) UpsertUserOverride(ctx context.Context, rule entities.UserRuleOverride) error {
	row := userRuleModel{
		UserID:         rule.UserID,
		EventKey:       rule.EventKey,
		Responsibility: string(rule.Responsibility),
		Enabled:        rule.Enabled,
		UpdatedAt:      rule.UpdatedAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "event_key"}, {Name: "responsibility"}},
		DoUpdates: clause.Assignments(map[string]any{
			"enabled":    row.Enabled,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		r.logError("notification_repo_upsert_user_rule_failed", create.Error,
			"user_id", rule.UserID,
			"event_key", rule.EventKey,
		)
		return domainerrors.ErrStoreUnavailable
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (ports.UserProfile, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.UserProfile{}, domainerrors.ErrUserNotFound
		}
		r.logError("notification_repo_get_user_failed", err, "user_id", strings.TrimSpace(userID))
		return ports.UserProfile{}, domainerrors.ErrStoreUnavailable
	}
	return row.toProfile(), nil
}

func (r *Repository) ActiveUsers(ctx context.Context) ([]ports.UserProfile, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_active_users_failed", err)
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toProfiles(rows), nil
}

func (r *Repository) ActiveSectorMembers(ctx context.Context, sector string) ([]ports.UserProfile, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("sector = ?", strings.TrimSpace(sector)).
		Order("id ASC").
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_sector_members_failed", err, "sector", strings.TrimSpace(sector))
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toProfiles(rows), nil
}

func (r *Repository) Administrators(ctx context.Context) ([]ports.UserProfile, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("role = ?", ports.RoleAdministrator).
		Order("id ASC").
		Find(&rows).
		Error
	if err != nil {
		r.logError("notification_repo_administrators_failed", err)
		return nil, domainerrors.ErrStoreUnavailable
	}
	return toProfiles(rows), nil
}

func (r *Repository) GetTask(ctx context.Context, taskID string) (ports.TaskSnapshot, error) {
	var row taskModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(taskID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.TaskSnapshot{}, domainerrors.ErrTaskNotFound
		}
		r.logError("notification_repo_get_task_failed", err, "task_id", strings.TrimSpace(taskID))
		return ports.TaskSnapshot{}, domainerrors.ErrStoreUnavailable
	}

	var observers []taskObserverModel
	err = r.db.WithContext(ctx).
		Where("task_id = ?", row.ID).
		Find(&observers).
		Error
	if err != nil && !isDegradedSchema(err) {
		r.logError("notification_repo_task_observers_failed", err, "task_id", row.ID)
		return ports.TaskSnapshot{}, domainerrors.ErrStoreUnavailable
	}

	snapshot := ports.TaskSnapshot{
		TaskID:     row.ID,
		AssigneeID: stringOrEmpty(row.AssigneeID),
		CreatorID:  row.CreatorID,
		Sector:     row.Sector,
	}
	for _, observer := range observers {
		snapshot.ObserverIDs = append(snapshot.ObserverIDs, observer.UserID)
	}
	return snapshot, nil
}

func (r *Repository) ChecklistResponsibles(ctx context.Context, taskID string) ([]string, error) {
	if !r.caps.TaskChecklistItems {
		return nil, domainerrors.ErrSchemaDegraded
	}
	var rows []taskChecklistItemModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Where("responsible_id IS NOT NULL").
		Find(&rows).
		Error
	if err != nil {
		if isDegradedSchema(err) {
			return nil, domainerrors.ErrSchemaDegraded
		}
		r.logError("notification_repo_checklist_failed", err, "task_id", strings.TrimSpace(taskID))
		return nil, domainerrors.ErrStoreUnavailable
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, stringOrEmpty(row.ResponsibleID))
	}
	return ids, nil
}

func (r *Repository) GetLead(ctx context.Context, leadID string) (ports.LeadSnapshot, error) {
	var row leadModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(leadID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.LeadSnapshot{}, domainerrors.ErrLeadNotFound
		}
		r.logError("notification_repo_get_lead_failed", err, "lead_id", strings.TrimSpace(leadID))
		return ports.LeadSnapshot{}, domainerrors.ErrStoreUnavailable
	}
	return ports.LeadSnapshot{
		LeadID:       row.ID,
		OwnerID:      stringOrEmpty(row.OwnerID),
		SupervisorID: stringOrEmpty(row.SupervisorID),
		Sector:       row.Sector,
	}, nil
}

func (r *Repository) GetWorkOrder(ctx context.Context, workOrderID string) (ports.WorkOrderSnapshot, error) {
	var row workOrderModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(workOrderID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.WorkOrderSnapshot{}, domainerrors.ErrWorkOrderNotFound
		}
		r.logError("notification_repo_get_work_order_failed", err, "work_order_id", strings.TrimSpace(workOrderID))
		return ports.WorkOrderSnapshot{}, domainerrors.ErrStoreUnavailable
	}
	return ports.WorkOrderSnapshot{WorkOrderID: row.ID, CreatorID: row.CreatorID}, nil
}

func (r *Repository) LinkedTaskParticipants(ctx context.Context, workOrderID string) ([]string, error) {
	if !r.caps.WorkOrderTaskLinks {
		return nil, domainerrors.ErrSchemaDegraded
	}
	var rows []struct {
		UserID string `gorm:"column:user_id"`
	}
	err := r.db.WithContext(ctx).
		Table("work_order_task_links AS l").
		Select("t.assignee_id AS user_id").
		Joins("JOIN tasks AS t ON t.id = l.task_id").
		Where("l.work_order_id = ?", strings.TrimSpace(workOrderID)).
		Where("t.assignee_id IS NOT NULL").
		Scan(&rows).
		Error
	if err != nil {
		if isDegradedSchema(err) {
			return nil, domainerrors.ErrSchemaDegraded
		}
		r.logError("notification_repo_linked_tasks_failed", err, "work_order_id", strings.TrimSpace(workOrderID))
		return nil, domainerrors.ErrStoreUnavailable
	}

	var extra []struct {
		UserID string `gorm:"column:user_id"`
	}
	err = r.db.WithContext(ctx).
		Table("work_order_task_links AS l").
		Select("o.user_id AS user_id").
		Joins("JOIN tasks AS t ON t.id = l.task_id").
		Joins("JOIN task_observers AS o ON o.task_id = t.id").
		Where("l.work_order_id = ?", strings.TrimSpace(workOrderID)).
		Scan(&extra).
		Error
	if err != nil && !isDegradedSchema(err) {
		r.logError("notification_repo_linked_observers_failed", err, "work_order_id", strings.TrimSpace(workOrderID))
		return nil, domainerrors.ErrStoreUnavailable
	}

	var creators []struct {
		UserID string `gorm:"column:user_id"`
	}
	err = r.db.WithContext(ctx).
		Table("work_order_task_links AS l").
		Select("t.creator_id AS user_id").
		Joins("JOIN tasks AS t ON t.id = l.task_id").
		Where("l.work_order_id = ?", strings.TrimSpace(workOrderID)).
		Scan(&creators).
		Error
	if err != nil && !isDegradedSchema(err) {
		r.logError("notification_repo_linked_creators_failed", err, "work_order_id", strings.TrimSpace(workOrderID))
		return nil, domainerrors.ErrStoreUnavailable
	}

	seen := make(map[string]struct{})
	participants := make([]string, 0, len(rows)+len(extra)+len(creators))
	for _, batch := range [][]struct {
		UserID string `gorm:"column:user_id"`
	}{rows, extra, creators} {
		for _, item := range batch {
			id := strings.TrimSpace(item.UserID)
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
	return participants, nil
}

func (r *Repository) GetConversation(ctx context.Context, conversationID string) (ports.ConversationSnapshot, error) {
	var row conversationModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(conversationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ConversationSnapshot{}, domainerrors.ErrConversationNotFound
		}
		r.logError("notification_repo_get_conversation_failed", err, "conversation_id", strings.TrimSpace(conversationID))
		return ports.ConversationSnapshot{}, domainerrors.ErrStoreUnavailable
	}
	return ports.ConversationSnapshot{
		ConversationID: row.ID,
		UserA:          row.UserAID,
		UserB:          row.UserBID,
	}, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "field-operations/notification-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("notification repository operation failed", fields...)
}

type notificationModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	RecipientID    string     `gorm:"column:recipient_id;uniqueIndex:ux_notifications_recipient_dedupe"`
	ActorID        string     `gorm:"column:actor_id"`
	Domain         string     `gorm:"column:domain"`
	EventKey       string     `gorm:"column:event_key"`
	Sector         string     `gorm:"column:sector"`
	Responsibility string     `gorm:"column:responsibility"`
	EntityType     string     `gorm:"column:entity_type"`
	EntityID       string     `gorm:"column:entity_id"`
	DedupeKey      string     `gorm:"column:dedupe_key;uniqueIndex:ux_notifications_recipient_dedupe"`
	Mandatory      bool       `gorm:"column:mandatory"`
	Title          string     `gorm:"column:title"`
	Message        string     `gorm:"column:message"`
	Metadata       []byte     `gorm:"column:metadata;type:jsonb"`
	IsRead         bool       `gorm:"column:is_read"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (notificationModel) TableName() string {
	return "notifications"
}

func notificationModelFromEntity(record entities.NotificationRecord) notificationModel {
	metadata, _ := json.Marshal(record.Metadata.Clone())
	return notificationModel{
		ID:             record.NotificationID,
		RecipientID:    record.RecipientID,
		ActorID:        record.ActorID,
		Domain:         string(record.Domain),
		EventKey:       record.EventKey,
		Sector:         record.Sector,
		Responsibility: string(record.Responsibility),
		EntityType:     record.EntityType,
		EntityID:       record.EntityID,
		DedupeKey:      record.DedupeKey,
		Mandatory:      record.Mandatory,
		Title:          record.Title,
		Message:        record.Message,
		Metadata:       metadata,
		IsRead:         record.IsRead,
		ReadAt:         record.ReadAt,
		CreatedAt:      record.CreatedAt,
	}
}

func (m notificationModel) toEntity() entities.NotificationRecord {
	metadata := entities.Metadata{}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}
	return entities.NotificationRecord{
		NotificationID: m.ID,
		RecipientID:    m.RecipientID,
		ActorID:        m.ActorID,
		Domain:         entities.Domain(m.Domain),
		EventKey:       m.EventKey,
		Sector:         m.Sector,
		Responsibility: entities.ResponsibilityKind(m.Responsibility),
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		DedupeKey:      m.DedupeKey,
		Mandatory:      m.Mandatory,
		Title:          m.Title,
		Message:        m.Message,
		Metadata:       metadata,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}

type sectorRuleModel struct {
	Sector         string    `gorm:"column:sector;primaryKey"`
	EventKey       string    `gorm:"column:event_key;primaryKey"`
	Responsibility string    `gorm:"column:responsibility;primaryKey"`
	Enabled        bool      `gorm:"column:enabled"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (sectorRuleModel) TableName() string {
	return "sector_notification_rules"
}

func toSectorRuleEntities(rows []sectorRuleModel) []entities.SectorDefaultRule {
	items := make([]entities.SectorDefaultRule, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.SectorDefaultRule{
			Sector:         row.Sector,
			EventKey:       row.EventKey,
			Responsibility: entities.ResponsibilityKind(row.Responsibility),
			Enabled:        row.Enabled,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return items
}

type userRuleModel struct {
	UserID         string    `gorm:"column:user_id;primaryKey"`
	EventKey       string    `gorm:"column:event_key;primaryKey"`
	Responsibility string    `gorm:"column:responsibility;primaryKey"`
	Enabled        bool      `gorm:"column:enabled"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (userRuleModel) TableName() string {
	return "user_notification_rules"
}

func toUserRuleEntities(rows []userRuleModel) []entities.UserRuleOverride {
	items := make([]entities.UserRuleOverride, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.UserRuleOverride{
			UserID:         row.UserID,
			EventKey:       row.EventKey,
			Responsibility: entities.ResponsibilityKind(row.Responsibility),
			Enabled:        row.Enabled,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return items
}

type userModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	FullName string `gorm:"column:full_name"`
	Email    string `gorm:"column:email"`
	Sector   string `gorm:"column:sector"`
	Role     string `gorm:"column:role"`
	Active   bool   `gorm:"column:active"`
}

func (userModel) TableName() string {
	return "users"
}

func (m userModel) toProfile() ports.UserProfile {
	return ports.UserProfile{
		UserID:   m.ID,
		FullName: m.FullName,
		Email:    m.Email,
		Sector:   m.Sector,
		Role:     m.Role,
		Active:   m.Active,
	}
}

func toProfiles(rows []userModel) []ports.UserProfile {
	items := make([]ports.UserProfile, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toProfile())
	}
	return items
}

type taskModel struct {
	ID         string  `gorm:"column:id;primaryKey"`
	AssigneeID *string `gorm:"column:assignee_id"`
	CreatorID  string  `gorm:"column:creator_id"`
	Sector     string  `gorm:"column:sector"`
}

func (taskModel) TableName() string {
	return "tasks"
}

type taskObserverModel struct {
	TaskID string `gorm:"column:task_id;primaryKey"`
	UserID string `gorm:"column:user_id;primaryKey"`
}

func (taskObserverModel) TableName() string {
	return "task_observers"
}

type taskChecklistItemModel struct {
	ID            string  `gorm:"column:id;primaryKey"`
	TaskID        string  `gorm:"column:task_id"`
	ResponsibleID *string `gorm:"column:responsible_id"`
}

func (taskChecklistItemModel) TableName() string {
	return "task_checklist_items"
}

type leadModel struct {
	ID           string  `gorm:"column:id;primaryKey"`
	OwnerID      *string `gorm:"column:owner_id"`
	SupervisorID *string `gorm:"column:supervisor_id"`
	Sector       string  `gorm:"column:sector"`
}

func (leadModel) TableName() string {
	return "leads"
}

type workOrderModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	CreatorID string `gorm:"column:creator_id"`
}

func (workOrderModel) TableName() string {
	return "work_orders"
}

type conversationModel struct {
	ID      string `gorm:"column:id;primaryKey"`
	UserAID string `gorm:"column:user_a_id"`
	UserBID string `gorm:"column:user_b_id"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func domainStrings(domains []entities.Domain) []string {
	out := make([]string, 0, len(domains))
	for _, domain := range domains {
		out = append(out, string(domain))
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isDegradedSchema matches undefined table (42P01) and undefined column
// (42703): the optional parts of the tenant schema that may lag behind.
func isDegradedSchema(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "42P01" || pgErr.Code == "42703")
}
