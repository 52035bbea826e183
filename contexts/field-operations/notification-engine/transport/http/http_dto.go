package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type NotificationResponse struct {
	NotificationID string            `json:"notification_id"`
	EventKey       string            `json:"event_key"`
	Domain         string            `json:"domain"`
	Sector         string            `json:"sector,omitempty"`
	Responsibility string            `json:"responsibility"`
	EntityType     string            `json:"entity_type,omitempty"`
	EntityID       string            `json:"entity_id,omitempty"`
	ActorID        string            `json:"actor_id,omitempty"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Mandatory      bool              `json:"mandatory"`
	IsRead         bool              `json:"is_read"`
	ReadAt         *time.Time        `json:"read_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type NotificationListResponse struct {
	Items []NotificationResponse `json:"items"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

type DispatchRecipient struct {
	UserID    string   `json:"user_id"`
	Kinds     []string `json:"kinds"`
	Mandatory bool     `json:"mandatory,omitempty"`
}

type DispatchRequest struct {
	Domain     string              `json:"domain"`
	EventKey   string              `json:"event_key"`
	Sector     string              `json:"sector,omitempty"`
	ActorID    string              `json:"actor_id,omitempty"`
	EntityType string              `json:"entity_type,omitempty"`
	EntityID   string              `json:"entity_id,omitempty"`
	Title      string              `json:"title"`
	Message    string              `json:"message"`
	Metadata   map[string]string   `json:"metadata,omitempty"`
	Recipients []DispatchRecipient `json:"recipients"`
	DedupeKey  string              `json:"dedupe_key,omitempty"`
	Mandatory  bool                `json:"mandatory,omitempty"`
}

type DispatchResponse struct {
	Inserted   int      `json:"inserted"`
	Recipients []string `json:"recipients,omitempty"`
}

type SectorRuleRequest struct {
	Sector         string `json:"sector"`
	EventKey       string `json:"event_key"`
	Responsibility string `json:"responsibility"`
	Enabled        bool   `json:"enabled"`
}

type SectorRuleResponse struct {
	Sector         string    `json:"sector"`
	EventKey       string    `json:"event_key"`
	Responsibility string    `json:"responsibility"`
	Enabled        bool      `json:"enabled"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SectorRuleListResponse struct {
	Items []SectorRuleResponse `json:"items"`
}

type UserRuleRequest struct {
	EventKey       string `json:"event_key"`
	Responsibility string `json:"responsibility"`
	Enabled        bool   `json:"enabled"`
}

type UserRuleResponse struct {
	EventKey       string    `json:"event_key"`
	Responsibility string    `json:"responsibility"`
	Enabled        bool      `json:"enabled"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type UserRuleListResponse struct {
	Items []UserRuleResponse `json:"items"`
}
