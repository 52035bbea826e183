package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	notificationengine "meridian/contexts/field-operations/notification-engine"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "meridian/internal/platform/httpserver/docs"
)

type Server struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	addr          string
	notifications notificationengine.Module
}

func New(notifications notificationengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		notifications: notifications,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	s.mux.HandleFunc("GET /api/v1/notifications/unread-count", s.handleUnreadCount)
	s.mux.HandleFunc("POST /api/v1/notifications/{notification_id}/read", s.handleMarkRead)
	s.mux.HandleFunc("POST /api/v1/notifications/read-all", s.handleMarkAllRead)
	s.mux.HandleFunc("POST /api/v1/notifications/conversations/{conversation_id}/read", s.handleMarkConversationRead)
	s.mux.HandleFunc("POST /api/v1/notifications/dispatch", s.handleDispatch)

	s.mux.HandleFunc("GET /api/v1/notification-rules/defaults", s.handleListDefaultRules)
	s.mux.HandleFunc("PUT /api/v1/notification-rules/defaults", s.handleUpsertDefaultRule)
	s.mux.HandleFunc("GET /api/v1/notification-rules/mine", s.handleListMyRules)
	s.mux.HandleFunc("PUT /api/v1/notification-rules/mine", s.handleUpsertMyRule)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
