package entities

import "strings"

// Event keys for the collaborators currently wired into the engine.
const (
	EventTaskAssigned           = "TASK_ASSIGNED"
	EventTaskStatusChanged      = "TASK_STATUS_CHANGED"
	EventTaskCommentCreated     = "TASK_COMMENT_CREATED"
	EventTaskCommentMention     = "TASK_COMMENT_MENTION"
	EventTaskChecklistCompleted = "TASK_CHECKLIST_COMPLETED"
	EventLeadCreated            = "LEAD_CREATED"
	EventLeadStatusChanged      = "LEAD_STATUS_CHANGED"
	EventWorkOrderCreated       = "WORK_ORDER_CREATED"
	EventWorkOrderStageDone     = "WORK_ORDER_STAGE_COMPLETED"
	EventWorkOrderComment       = "WORK_ORDER_COMMENT_CREATED"
	EventWorkOrderMention       = "WORK_ORDER_COMMENT_MENTION"
	EventChatMessageReceived    = "CHAT_MESSAGE_RECEIVED"
)

// catalog is seeded once and read-only at runtime. Events missing here are
// still dispatchable through the CatalogFallback definition.
var catalog = map[string]EventDefinition{
	EventTaskAssigned: {
		Key:              EventTaskAssigned,
		Domain:           DomainTasks,
		Label:            "Task assigned to you",
		DefaultEnabled:   true,
		AllowUserDisable: false,
		Mandatory:        true,
	},
	EventTaskStatusChanged: {
		Key:              EventTaskStatusChanged,
		Domain:           DomainTasks,
		Label:            "Task status changed",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventTaskCommentCreated: {
		Key:              EventTaskCommentCreated,
		Domain:           DomainTasks,
		Label:            "New comment on a task",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventTaskCommentMention: {
		Key:              EventTaskCommentMention,
		Domain:           DomainTasks,
		Label:            "You were mentioned in a task comment",
		DefaultEnabled:   true,
		AllowUserDisable: false,
	},
	EventTaskChecklistCompleted: {
		Key:              EventTaskChecklistCompleted,
		Domain:           DomainTasks,
		Label:            "Checklist item completed",
		DefaultEnabled:   false,
		AllowUserDisable: true,
	},
	EventLeadCreated: {
		Key:              EventLeadCreated,
		Domain:           DomainLeads,
		Label:            "New indication received",
		Sector:           "sales",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventLeadStatusChanged: {
		Key:              EventLeadStatusChanged,
		Domain:           DomainLeads,
		Label:            "Indication status changed",
		Sector:           "sales",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventWorkOrderCreated: {
		Key:              EventWorkOrderCreated,
		Domain:           DomainWorkOrders,
		Label:            "Work order opened",
		Sector:           "works",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventWorkOrderStageDone: {
		Key:              EventWorkOrderStageDone,
		Domain:           DomainWorkOrders,
		Label:            "Work order stage completed",
		Sector:           "works",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventWorkOrderComment: {
		Key:              EventWorkOrderComment,
		Domain:           DomainWorkOrders,
		Label:            "New comment on a work order",
		Sector:           "works",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
	EventWorkOrderMention: {
		Key:              EventWorkOrderMention,
		Domain:           DomainWorkOrders,
		Label:            "You were mentioned in a work order comment",
		DefaultEnabled:   true,
		AllowUserDisable: false,
	},
	EventChatMessageReceived: {
		Key:              EventChatMessageReceived,
		Domain:           DomainChat,
		Label:            "Direct message received",
		DefaultEnabled:   true,
		AllowUserDisable: true,
	},
}

// CatalogLookup returns the seeded definition for the key, if any.
func CatalogLookup(eventKey string) (EventDefinition, bool) {
	definition, ok := catalog[strings.TrimSpace(eventKey)]
	return definition, ok
}

// CatalogFallback is the definition used when an event is dispatched before
// its catalog row is provisioned: enabled by default, user-overridable, not
// mandatory, domain taken from the caller. Unknown events are delivered
// rather than silently dropped.
func CatalogFallback(eventKey string, domain Domain) EventDefinition {
	return EventDefinition{
		Key:              strings.TrimSpace(eventKey),
		Domain:           domain,
		Label:            strings.TrimSpace(eventKey),
		DefaultEnabled:   true,
		AllowUserDisable: true,
	}
}
