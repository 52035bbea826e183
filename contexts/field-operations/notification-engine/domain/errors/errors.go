package errors

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAccessDenied     = errors.New("access denied")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidDispatch  = errors.New("invalid dispatch request")
	ErrStoreUnavailable = errors.New("notification store unavailable")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrLeadNotFound         = errors.New("indication not found")
	ErrWorkOrderNotFound    = errors.New("work order not found")
	ErrConversationNotFound = errors.New("conversation not found")

	ErrUnknownEvent = errors.New("unknown event key")
	ErrRuleLocked   = errors.New("event does not allow user overrides")

	// ErrSchemaDegraded marks an optional table or column that is not
	// present yet. Handled inside resolvers; never surfaced to callers.
	ErrSchemaDegraded = errors.New("optional schema portion unavailable")
)
