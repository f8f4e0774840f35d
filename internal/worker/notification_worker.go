package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/internal/store"
	ws "github.com/gigbridge/api/internal/websocket"
)

// NotificationWorker drains the notifications queue and pushes persisted
// notifications to their owner's websocket room. Delivery is best effort;
// an offline user finds the notification unread on next fetch.
type NotificationWorker struct {
	notifications store.NotificationStore
	hub           *ws.Hub
}

func NewNotificationWorker(notifications store.NotificationStore, hub *ws.Hub) *NotificationWorker {
	return &NotificationWorker{
		notifications: notifications,
		hub:           hub,
	}
}

// Register attaches the worker's handlers to the asynq mux
func (w *NotificationWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypeNotificationPush, w.HandlePush)
}

// HandlePush loads the notification and pushes it to the owner's room
func (w *NotificationWorker) HandlePush(ctx context.Context, task *asynq.Task) error {
	var payload service.NotificationPushPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal push payload: %w", err)
	}

	n, err := w.notifications.Get(ctx, payload.NotificationID)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("Notification %s gone before push, dropping", payload.NotificationID)
			return nil
		}
		return fmt.Errorf("failed to load notification %s: %w", payload.NotificationID, err)
	}

	data, err := json.Marshal(model.WSNotificationMessage{
		Type:         model.WSMessageTypeNotification,
		Notification: n,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification push: %w", err)
	}

	w.hub.PushToUser(payload.UserID, data)
	return nil
}
