package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gigbridge/api/internal/model"
)

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.notifications.Notify(ctx, "user-1", model.NotificationSystem, "Welcome", "hello", nil, "")
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if _, err := env.notifications.Notify(ctx, "user-1", model.NotificationSystem, "Second", "again", nil, ""); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	list, err := env.notifications.List(ctx, "user-1", false, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.UnreadCount != 2 {
		t.Errorf("expected 2 unread, got %d", list.UnreadCount)
	}

	// Only the owner may mark read.
	if _, err := env.notifications.MarkRead(ctx, first.ID, "user-2"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}

	read, err := env.notifications.MarkRead(ctx, first.ID, "user-1")
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if !read.Read || read.ReadAt == nil {
		t.Error("expected read flag and timestamp set")
	}

	// Marking read twice keeps the original timestamp.
	again, err := env.notifications.MarkRead(ctx, first.ID, "user-1")
	if err != nil {
		t.Fatalf("second mark read failed: %v", err)
	}
	if !again.ReadAt.Equal(*read.ReadAt) {
		t.Error("expected idempotent mark read")
	}

	updated, err := env.notifications.MarkAllRead(ctx, "user-1")
	if err != nil {
		t.Fatalf("mark all read failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("expected 1 newly read, got %d", updated)
	}

	unread, err := env.notifications.List(ctx, "user-1", true, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(unread.Notifications) != 0 {
		t.Errorf("expected no unread notifications, got %d", len(unread.Notifications))
	}
}

func TestNotifyOnce_DedupesByBidReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := map[string]interface{}{"bidId": "bid-1"}

	if _, err := env.notifications.NotifyOnce(ctx, "user-1", model.NotificationBidAccepted, "Accepted", "msg", data, ""); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if _, err := env.notifications.NotifyOnce(ctx, "user-1", model.NotificationBidAccepted, "Accepted", "msg", data, ""); err != nil {
		t.Fatalf("repeat notify failed: %v", err)
	}

	if n := env.notificationsOf(t, "user-1", model.NotificationBidAccepted); len(n) != 1 {
		t.Errorf("expected 1 notification after repeat, got %d", len(n))
	}

	// A different bid is a different fact.
	other := map[string]interface{}{"bidId": "bid-2"}
	if _, err := env.notifications.NotifyOnce(ctx, "user-1", model.NotificationBidAccepted, "Accepted", "msg", other, ""); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if n := env.notificationsOf(t, "user-1", model.NotificationBidAccepted); len(n) != 2 {
		t.Errorf("expected 2 notifications for distinct bids, got %d", len(n))
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := paginate(items, 2, 2)
	if len(page) != 2 || page[0] != 3 {
		t.Errorf("unexpected page %v", page)
	}
	if p.TotalPages != 3 || p.TotalItems != 5 {
		t.Errorf("unexpected pagination %+v", p)
	}

	// Past the end yields an empty page, not an error.
	page, _ = paginate(items, 10, 2)
	if len(page) != 0 {
		t.Errorf("expected empty page, got %v", page)
	}
}
