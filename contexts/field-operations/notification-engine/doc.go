// Package notificationengine implements the notification dispatch engine
// inside the field-operations context.
//
// The module owns the event catalog, sector default rules and per-user
// overrides, recipient resolution across tasks, indications, work orders and
// chat, mention extraction, and the idempotent dispatch pipeline keyed on
// (recipient_id, dedupe_key). Business rules live in the application/domain
// layers; storage, directory reads and HTTP stay behind ports and adapters.
package notificationengine
