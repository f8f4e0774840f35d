package e2e

import (
	"net/http"
	"testing"
)

// conversationFor reads the conversation id off an accepted contract.
func conversationFor(t *testing.T, ta *testApp, contractID string) string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/contracts/"+contractID, "", "client-1", "client")
	if err != nil {
		t.Fatalf("get contract failed: %v", err)
	}
	contract := parseJSON(t, resp)
	conversationID, _ := contract["conversationId"].(string)
	if conversationID == "" {
		t.Fatal("expected conversation id on contract")
	}
	return conversationID
}

func TestMessages_SendAndHistory(t *testing.T) {
	ta := setupApp(t)
	_, contractID := acceptFlow(t, ta)
	conversationID := conversationFor(t, ta, contractID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost,
		"/api/conversations/"+conversationID+"/messages",
		`{"content": "When can you start?"}`, "client-1", "client")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)

	// The freelancer sees the conversation with one unread message.
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations", "", "freelancer-1", "freelancer")
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	listing := parseJSON(t, resp)
	conversations, _ := listing["conversations"].([]interface{})
	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations))
	}
	summary := conversations[0].(map[string]interface{})
	if summary["unreadCount"] != float64(1) {
		t.Errorf("expected unread count 1, got %v", summary["unreadCount"])
	}

	// Reading the history resets the counter.
	resp, err = doAuthRequest(t, ta.app, http.MethodGet,
		"/api/conversations/"+conversationID+"/messages", "", "freelancer-1", "freelancer")
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	history := parseJSON(t, resp)
	messages, _ := history["messages"].([]interface{})
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations", "", "freelancer-1", "freelancer")
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	listing = parseJSON(t, resp)
	conversations, _ = listing["conversations"].([]interface{})
	summary = conversations[0].(map[string]interface{})
	if summary["unreadCount"] != float64(0) {
		t.Errorf("expected unread count reset, got %v", summary["unreadCount"])
	}
}

func TestMessages_HiddenFromStrangers(t *testing.T) {
	ta := setupApp(t)
	_, contractID := acceptFlow(t, ta)
	conversationID := conversationFor(t, ta, contractID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost,
		"/api/conversations/"+conversationID+"/messages",
		`{"content": "hello"}`, "stranger-1", "client")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assertStatus(t, resp, http.StatusForbidden)
	assertErrorCode(t, parseJSON(t, resp), "FORBIDDEN")

	resp, err = doAuthRequest(t, ta.app, http.MethodGet,
		"/api/conversations/"+conversationID+"/messages", "", "stranger-1", "client")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	assertStatus(t, resp, http.StatusForbidden)
}

func TestMessages_ValidationAndDelete(t *testing.T) {
	ta := setupApp(t)
	_, contractID := acceptFlow(t, ta)
	conversationID := conversationFor(t, ta, contractID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost,
		"/api/conversations/"+conversationID+"/messages",
		`{"content": ""}`, "client-1", "client")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	assertErrorCode(t, parseJSON(t, resp), "VALIDATION_ERROR")

	resp, err = doAuthRequest(t, ta.app, http.MethodPost,
		"/api/conversations/"+conversationID+"/messages",
		`{"content": "typo"}`, "client-1", "client")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	message := parseJSON(t, resp)
	messageID, _ := message["id"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodDelete,
		"/api/messages/"+messageID, "", "freelancer-1", "freelancer")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	assertStatus(t, resp, http.StatusForbidden)

	resp, err = doAuthRequest(t, ta.app, http.MethodDelete,
		"/api/messages/"+messageID, "", "client-1", "client")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	deleted := parseJSON(t, resp)
	if deleted["deletedAt"] == nil {
		t.Error("expected deletedAt on removed message")
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet,
		"/api/conversations/"+conversationID+"/messages", "", "client-1", "client")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	history := parseJSON(t, resp)
	messages, _ := history["messages"].([]interface{})
	if len(messages) != 0 {
		t.Errorf("expected deleted message hidden, got %d", len(messages))
	}
}
