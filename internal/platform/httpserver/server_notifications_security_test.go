package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	notificationengine "meridian/contexts/field-operations/notification-engine"
)

func newTestServer() *Server {
	return New(
		notificationengine.NewInMemoryModule(nil, nil, slog.Default()),
		slog.Default(),
		":0",
	)
}

func TestListNotificationsRequiresAuthorization(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("X-Request-Id", "req-ntf-1")
	req.Header.Set("X-User-Id", "usr_alex")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListNotificationsRequiresRequestID(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-User-Id", "usr_alex")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListNotificationsRequiresUserIdentity(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-2")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListNotificationsRejectsMalformedLimit(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=many", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-3")
	req.Header.Set("X-User-Id", "usr_alex")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDispatchRequiresAuthorization(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"domain":"tasks","event_key":"TASK_ASSIGNED","title":"t","message":"m","recipients":[{"user_id":"usr_alex","kinds":["assignee"]}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/dispatch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-ntf-4")
	req.Header.Set("X-User-Id", "usr_clara")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDispatchRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/dispatch", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-5")
	req.Header.Set("X-User-Id", "usr_clara")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDefaultRulesRequireAdministrator(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"sector":"support","event_key":"TASK_COMMENT_CREATED","responsibility":"observer","enabled":false}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notification-rules/defaults", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-6")
	req.Header.Set("X-User-Id", "usr_bruno")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMyRulesRejectLockedEvents(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"event_key":"TASK_ASSIGNED","responsibility":"assignee","enabled":false}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notification-rules/mine", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-7")
	req.Header.Set("X-User-Id", "usr_alex")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarkReadUnknownNotificationIs404(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/ntf_missing/read", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-ntf-8")
	req.Header.Set("X-User-Id", "usr_alex")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
