package model

import "time"

// WebSocket message types
const (
	WSMessageTypeNotification     = "new_notification"
	WSMessageTypeMessage          = "new_message"
	WSMessageTypeTypingStart      = "typing_start"
	WSMessageTypeTypingStop       = "typing_stop"
	WSMessageTypeJoinRoom         = "join_room"
	WSMessageTypeLeaveRoom        = "leave_room"
	WSMessageTypeSendMessage      = "send_message"
	WSMessageTypeUserConnected    = "user_connected"
	WSMessageTypeUserDisconnected = "user_disconnected"
	WSMessageTypeUsersOnline      = "users_online"
	WSMessageTypePing             = "ping"
	WSMessageTypePong             = "pong"
)

// WSMessage is the envelope every client frame carries
type WSMessage struct {
	Type           string `json:"type"`
	Room           string `json:"room,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
}

// WSNotificationMessage pushes a persisted notification to its owner
type WSNotificationMessage struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

// WSChatMessage relays a conversation message to room subscribers
type WSChatMessage struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// WSTypingMessage relays a typing indicator
type WSTypingMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// WSPresenceMessage announces a user connecting or disconnecting
type WSPresenceMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// WSUsersOnlineMessage lists currently connected users
type WSUsersOnlineMessage struct {
	Type    string   `json:"type"`
	UserIDs []string `json:"userIds"`
}
