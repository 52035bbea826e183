package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	notificationerrors "meridian/contexts/field-operations/notification-engine/domain/errors"
	notificationhttp "meridian/contexts/field-operations/notification-engine/transport/http"
)

func writeNotificationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, notificationhttp.ErrorResponse{Code: code, Message: message})
}

func writeNotificationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notificationerrors.ErrUnauthorized):
		writeNotificationError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, notificationerrors.ErrAccessDenied):
		writeNotificationError(w, http.StatusForbidden, "access_denied", err.Error())
	case errors.Is(err, notificationerrors.ErrNotificationNotFound),
		errors.Is(err, notificationerrors.ErrUserNotFound),
		errors.Is(err, notificationerrors.ErrTaskNotFound),
		errors.Is(err, notificationerrors.ErrLeadNotFound),
		errors.Is(err, notificationerrors.ErrWorkOrderNotFound),
		errors.Is(err, notificationerrors.ErrConversationNotFound):
		writeNotificationError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, notificationerrors.ErrRuleLocked):
		writeNotificationError(w, http.StatusConflict, "rule_locked", err.Error())
	case errors.Is(err, notificationerrors.ErrUnknownEvent),
		errors.Is(err, notificationerrors.ErrInvalidRequest),
		errors.Is(err, notificationerrors.ErrInvalidDispatch):
		writeNotificationError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, notificationerrors.ErrStoreUnavailable):
		writeNotificationError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeNotificationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireNotificationAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeNotificationError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func requireNotificationRequestID(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
		writeNotificationError(w, http.StatusBadRequest, "missing_request_id", "X-Request-Id header is required")
		return false
	}
	return true
}

func requireNotificationUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeNotificationError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	includeRead := strings.EqualFold(query.Get("include_read"), "true")
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeNotificationError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.notifications.Handler.ListNotificationsHandler(r.Context(), userID, includeRead, limit, query["domain"])
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	resp, err := s.notifications.Handler.UnreadCountHandler(r.Context(), userID, r.URL.Query()["domain"])
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	notificationID := strings.TrimSpace(r.PathValue("notification_id"))
	if err := s.notifications.Handler.MarkReadHandler(r.Context(), userID, notificationID); err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationhttp.MarkReadResponse{Marked: 1})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	resp, err := s.notifications.Handler.MarkAllReadHandler(r.Context(), userID)
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	conversationID := strings.TrimSpace(r.PathValue("conversation_id"))
	resp, err := s.notifications.Handler.MarkConversationReadHandler(r.Context(), userID, conversationID)
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	var req notificationhttp.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotificationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.notifications.Handler.DispatchHandler(r.Context(), userID, req)
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
