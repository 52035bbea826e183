package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	notificationhttp "meridian/contexts/field-operations/notification-engine/transport/http"
)

func (s *Server) handleListDefaultRules(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	sector := strings.TrimSpace(r.URL.Query().Get("sector"))
	resp, err := s.notifications.Handler.ListDefaultRulesHandler(r.Context(), userID, sector)
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpsertDefaultRule(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	var req notificationhttp.SectorRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotificationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.notifications.Handler.UpsertDefaultRuleHandler(r.Context(), userID, req); err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationhttp.SectorRuleResponse{
		Sector:         strings.TrimSpace(req.Sector),
		EventKey:       strings.TrimSpace(req.EventKey),
		Responsibility: req.Responsibility,
		Enabled:        req.Enabled,
	})
}

func (s *Server) handleListMyRules(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	resp, err := s.notifications.Handler.ListMyRulesHandler(r.Context(), userID)
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpsertMyRule(w http.ResponseWriter, r *http.Request) {
	if !requireNotificationAuthorization(w, r) || !requireNotificationRequestID(w, r) {
		return
	}
	userID, ok := requireNotificationUser(w, r)
	if !ok {
		return
	}

	var req notificationhttp.UserRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotificationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.notifications.Handler.UpsertMyRuleHandler(r.Context(), userID, req); err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationhttp.UserRuleResponse{
		EventKey:       strings.TrimSpace(req.EventKey),
		Responsibility: req.Responsibility,
		Enabled:        req.Enabled,
	})
}
