package e2e

import (
	"net/http"
	"testing"
)

func TestNotifications_ReadFlow(t *testing.T) {
	ta := setupApp(t)
	jobID := createJob(t, ta, "client-1")
	submitBid(t, ta, jobID, "freelancer-1", 500)

	// The bid produced one notification for the client.
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/notifications/", "", "client-1", "client")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	list := parseJSON(t, resp)
	notifications, _ := list["notifications"].([]interface{})
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	n, _ := notifications[0].(map[string]interface{})
	if n["type"] != "bid_received" {
		t.Errorf("expected bid_received, got %v", n["type"])
	}
	notificationID, _ := n["id"].(string)

	// Another user cannot mark it read.
	resp, err = doAuthRequest(t, ta.app, http.MethodPut, "/api/notifications/"+notificationID+"/read", "", "freelancer-1", "freelancer")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusForbidden)

	resp, err = doAuthRequest(t, ta.app, http.MethodPut, "/api/notifications/"+notificationID+"/read", "", "client-1", "client")
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/notifications/?unread=true", "", "client-1", "client")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	list = parseJSON(t, resp)
	if count, _ := list["unreadCount"].(float64); count != 0 {
		t.Errorf("expected 0 unread, got %v", list["unreadCount"])
	}
}

func TestNotifications_MarkAllRead(t *testing.T) {
	ta := setupApp(t)
	jobID := createJob(t, ta, "client-1")
	submitBid(t, ta, jobID, "freelancer-1", 500)
	submitBid(t, ta, jobID, "freelancer-2", 600)

	resp, err := doAuthRequest(t, ta.app, http.MethodPut, "/api/notifications/read-all", "", "client-1", "client")
	if err != nil {
		t.Fatalf("mark all read failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if updated, _ := result["updated"].(float64); updated != 2 {
		t.Errorf("expected 2 updated, got %v", result["updated"])
	}
}
