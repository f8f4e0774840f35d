package model

import "time"

// Notification is a persisted user-facing alert. The unread fact lives in
// the stored record; real-time push is best-effort on top of it.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	ActionURL string                 `json:"actionUrl,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// NotificationListResponse wraps a paginated notification listing
type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
	Pagination    Pagination      `json:"pagination"`
}
