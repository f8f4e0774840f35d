package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

const TaskTypeNotificationPush = "notification:push"

// NotificationPushPayload is the asynq task payload for a deferred push
type NotificationPushPayload struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
}

// PushEnqueuer defers a notification push so the calling request path does
// not wait on fanout. Implemented over asynq in production and by a
// synchronous fake in tests.
type PushEnqueuer interface {
	EnqueuePush(ctx context.Context, notificationID, userID string) error
}

// AsynqPushEnqueuer queues pushes on the notifications queue
type AsynqPushEnqueuer struct {
	client *asynq.Client
}

func NewAsynqPushEnqueuer(client *asynq.Client) *AsynqPushEnqueuer {
	return &AsynqPushEnqueuer{client: client}
}

func (e *AsynqPushEnqueuer) EnqueuePush(ctx context.Context, notificationID, userID string) error {
	payload, err := json.Marshal(NotificationPushPayload{
		NotificationID: notificationID,
		UserID:         userID,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeNotificationPush, payload)
	// Push is at-most-once per attempt; the persisted record owns the
	// unread fact, so a lost push is not retried.
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue("notifications"),
		asynq.MaxRetry(0),
		asynq.Retention(time.Hour),
	)
	return err
}

// NotificationService persists notifications and hands them to the push
// pipeline. Persistence always wins: a failed push never rolls back the
// stored record.
type NotificationService struct {
	notifications store.NotificationStore
	enqueuer      PushEnqueuer
}

func NewNotificationService(notifications store.NotificationStore, enqueuer PushEnqueuer) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		enqueuer:      enqueuer,
	}
}

// Notify persists a notification and schedules a best-effort push
func (s *NotificationService) Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]interface{}, actionURL string) (*model.Notification, error) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		ActionURL: actionURL,
		CreatedAt: time.Now(),
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueuePush(ctx, n.ID, n.UserID); err != nil {
			log.Printf("Failed to enqueue notification push for %s: %v", n.ID, err)
		}
	}

	return n, nil
}

// NotifyOnce persists a notification only if the user does not already
// have one with the same type and bid reference. Retried acceptance runs
// use it to keep their notification step idempotent.
func (s *NotificationService) NotifyOnce(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]interface{}, actionURL string) (*model.Notification, error) {
	existing, err := s.notifications.ListByUser(ctx, userID)
	if err == nil {
		for _, n := range existing {
			if n.Type == typ && n.Data != nil && data != nil && n.Data["bidId"] == data["bidId"] {
				return n, nil
			}
		}
	}
	return s.Notify(ctx, userID, typ, title, message, data, actionURL)
}

// MarkRead marks a notification read by its owner
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, actorID string) (*model.Notification, error) {
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	if n.UserID != actorID {
		return nil, ErrAccessDenied
	}

	if !n.Read {
		now := time.Now()
		n.Read = true
		n.ReadAt = &now
		if err := s.notifications.Update(ctx, n); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// MarkAllRead marks every unread notification of a user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	updated := 0
	now := time.Now()
	for _, n := range notifications {
		if n.Read {
			continue
		}
		n.Read = true
		n.ReadAt = &now
		if err := s.notifications.Update(ctx, n); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// List returns a page of the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) (*model.NotificationListResponse, error) {
	all, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread := 0
	filtered := make([]*model.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			unread++
		}
		if unreadOnly && n.Read {
			continue
		}
		filtered = append(filtered, n)
	}

	paged, pagination := paginate(filtered, page, limit)
	return &model.NotificationListResponse{
		Notifications: paged,
		UnreadCount:   unread,
		Pagination:    pagination,
	}, nil
}

// paginate slices a listing into the requested page
func paginate[T any](items []T, page, limit int) ([]T, model.Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total := int64(len(items))
	totalPages := (len(items) + limit - 1) / limit
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], model.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
	}
}
