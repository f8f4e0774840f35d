package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

const deletedMessagePlaceholder = "This message was deleted"

// MessageService handles the persisted chat attached to contract
// conversations. The websocket hub relays live traffic; the record of a
// conversation lives here.
type MessageService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	notifications *NotificationService
}

func NewMessageService(stores *store.Stores, notifications *NotificationService) *MessageService {
	return &MessageService{
		conversations: stores.Conversations,
		messages:      stores.Messages,
		notifications: notifications,
	}
}

// ListConversations returns the user's conversations, most recently active
// first, each with the caller's unread count and last message.
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]*model.ConversationSummary, error) {
	conversations, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		unread, err := s.conversations.UnreadCount(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary := &model.ConversationSummary{
			Conversation: conv,
			UnreadCount:  unread,
		}
		if conv.LastMessageID != "" {
			if m, err := s.messages.Get(ctx, conv.LastMessageID); err == nil {
				summary.LastMessage = m
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListMessages returns a page of conversation history, oldest first within
// the page, and resets the caller's unread counter.
func (s *MessageService) ListMessages(ctx context.Context, conversationID, actorID string, page, limit int) (*model.MessageListResponse, error) {
	conv, err := s.getParticipantConversation(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}

	all, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	visible := make([]*model.Message, 0, len(all))
	for _, m := range all {
		if m.DeletedAt == nil {
			visible = append(visible, m)
		}
	}

	paged, pagination := paginate(visible, page, limit)
	for i, j := 0, len(paged)-1; i < j; i, j = i+1, j-1 {
		paged[i], paged[j] = paged[j], paged[i]
	}

	if err := s.conversations.ResetUnread(ctx, conv.ID, actorID); err != nil {
		log.Printf("Failed to reset unread count for %s: %v", conv.ID, err)
	}

	return &model.MessageListResponse{
		Messages:   paged,
		Pagination: pagination,
	}, nil
}

// SendMessage persists a message, bumps the conversation and lets the
// other participants know.
func (s *MessageService) SendMessage(ctx context.Context, conversationID, actorID string, req *model.SendMessageRequest) (*model.Message, error) {
	conv, err := s.getParticipantConversation(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	typ := req.Type
	if typ == "" {
		typ = model.MessageTypeText
	}

	m := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       actorID,
		Content:        content,
		Type:           typ,
		CreatedAt:      time.Now(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	conv.LastMessageID = m.ID
	conv.UpdatedAt = m.CreatedAt
	if err := s.conversations.Update(ctx, conv); err != nil {
		log.Printf("Failed to update conversation %s after message: %v", conv.ID, err)
	}

	for _, p := range conv.Participants {
		if p == actorID {
			continue
		}
		if err := s.conversations.IncrementUnread(ctx, conv.ID, p); err != nil {
			log.Printf("Failed to bump unread count for %s: %v", p, err)
		}
		s.notify(ctx, p, conv.ID, content)
	}

	return m, nil
}

// DeleteMessage soft-deletes a message. Only the sender may remove it; the
// record stays with its content blanked.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, actorID string) (*model.Message, error) {
	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if m.SenderID != actorID {
		return nil, ErrAccessDenied
	}

	if m.DeletedAt == nil {
		now := time.Now()
		m.DeletedAt = &now
		m.Content = deletedMessagePlaceholder
		if err := s.messages.Update(ctx, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *MessageService) getParticipantConversation(ctx context.Context, conversationID, actorID string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, ErrAccessDenied
	}
	return conv, nil
}

func (s *MessageService) notify(ctx context.Context, userID, conversationID, content string) {
	preview := content
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	_, err := s.notifications.Notify(ctx, userID, model.NotificationMessage,
		"New Message", preview,
		map[string]interface{}{"conversationId": conversationID},
		fmt.Sprintf("/messages/%s", conversationID),
	)
	if err != nil {
		log.Printf("Failed to notify %s about message: %v", userID, err)
	}
}
