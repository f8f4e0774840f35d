package model

import "time"

// Message is a persisted chat message inside a contract conversation.
// Deleted messages stay in the record with their content blanked.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
	DeletedAt      *time.Time  `json:"deletedAt,omitempty"`
}

// SendMessageRequest is the payload for sending a conversation message
type SendMessageRequest struct {
	Content string      `json:"content" validate:"required,max=2000"`
	Type    MessageType `json:"type" validate:"omitempty,oneof=text system"`
}

// ConversationSummary pairs a conversation with the caller's unread count
// and the most recent message for listing.
type ConversationSummary struct {
	*Conversation
	UnreadCount int      `json:"unreadCount"`
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// MessageListResponse wraps a page of conversation history, oldest first
// within the page.
type MessageListResponse struct {
	Messages   []*Message `json:"messages"`
	Pagination Pagination `json:"pagination"`
}
