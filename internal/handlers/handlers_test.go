package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/api"
	"github.com/wireline-chat/wireline/internal/api/middleware"
	"github.com/wireline-chat/wireline/internal/auth"
	"github.com/wireline-chat/wireline/internal/handlers"
	"github.com/wireline-chat/wireline/internal/ingest"
	"github.com/wireline-chat/wireline/internal/models"
	"github.com/wireline-chat/wireline/internal/service"
	"github.com/wireline-chat/wireline/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(db.Close)

	logger := zerolog.Nop()
	signer := auth.NewSigner("test-secret", time.Hour)
	accounts := service.NewAccountService(db, signer)
	messages := service.NewMessageService(db)
	importer := ingest.NewImporter(db, logger)
	h := handlers.NewHandler(accounts, messages, importer, db, logger)
	authMW := middleware.NewAuthMiddleware(signer)

	srv := httptest.NewServer(api.NewRouter(logger, h, authMW, nil))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func register(t *testing.T, srv *httptest.Server, waID, name string) string {
	t.Helper()

	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/create-user", "",
		map[string]string{"wa_id": waID, "name": name}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create-user %s: status %d", waID, status)
	}

	var login struct {
		Token string `json:"token"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/login-user", "",
		map[string]string{"wa_id": waID}, &login)
	if status != http.StatusOK {
		t.Fatalf("login-user %s: status %d", waID, status)
	}
	if login.Token == "" {
		t.Fatalf("login-user %s: empty token", waID)
	}
	return login.Token
}

func TestMessagingEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	aliceToken := register(t, srv, "15551230000", "alice")
	bobToken := register(t, srv, "15551230001", "bob")

	// Alice sends bob a message.
	var sent struct {
		Data models.Message `json:"data"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/send-message", aliceToken,
		map[string]string{"to": "15551230001", "message": "hi"}, &sent)
	if status != http.StatusCreated {
		t.Fatalf("send-message: status %d", status)
	}
	if sent.Data.Status != models.StatusSent || sent.Data.Content != "hi" {
		t.Fatalf("unexpected stored message: %+v", sent.Data)
	}
	if sent.Data.ReceiverProfile.Name != "bob" {
		t.Fatalf("expected bob's profile snapshot, got %+v", sent.Data.ReceiverProfile)
	}

	// Bob's chat list shows the conversation with alice, latest message "hi".
	var chats struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/chat-list", bobToken, nil, &chats)
	if status != http.StatusOK {
		t.Fatalf("chat-list: status %d", status)
	}
	if len(chats.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(chats.Conversations))
	}
	conv := chats.Conversations[0]
	if conv.ChatPartner != "15551230000" || conv.Content != "hi" || conv.Status != models.StatusSent {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if conv.PartnerName != "alice" {
		t.Fatalf("expected alice's profile attached, got %+v", conv)
	}

	// Bob opens the thread and marks the latest message to him seen.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/update-status", bobToken,
		map[string]string{"wa_id": "15551230001", "status": models.StatusSeen}, nil)
	if status != http.StatusOK {
		t.Fatalf("update-status: status %d", status)
	}

	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/chat-list", bobToken, nil, &chats)
	if status != http.StatusOK {
		t.Fatalf("chat-list after seen: status %d", status)
	}
	if chats.Conversations[0].Status != models.StatusSeen {
		t.Fatalf("expected conversation status seen, got %s", chats.Conversations[0].Status)
	}

	// Both sides see the identical thread.
	var aliceThread, bobThread struct {
		Messages []models.Message `json:"messages"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/message/15551230001", aliceToken, nil, &aliceThread)
	if status != http.StatusOK {
		t.Fatalf("thread alice: status %d", status)
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/message/15551230000", bobToken, nil, &bobThread)
	if status != http.StatusOK {
		t.Fatalf("thread bob: status %d", status)
	}
	if len(aliceThread.Messages) != 1 || len(bobThread.Messages) != 1 {
		t.Fatalf("expected 1 message each, got %d and %d", len(aliceThread.Messages), len(bobThread.Messages))
	}
	if aliceThread.Messages[0].ID != bobThread.Messages[0].ID {
		t.Fatal("thread differs between the two parties")
	}
	if bobThread.Messages[0].Status != models.StatusSeen {
		t.Fatalf("expected seen in thread, got %s", bobThread.Messages[0].Status)
	}
}

func TestCreateUserConflict(t *testing.T) {
	srv := newTestServer(t)

	register(t, srv, "15551230000", "alice")

	var errResp struct {
		Error string `json:"error"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/create-user", "",
		map[string]string{"wa_id": "15551230000", "name": "impostor"}, &errResp)
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if errResp.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	srv := newTestServer(t)

	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/login-user", "",
		map[string]string{"wa_id": "15559999999"}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/user-auth"},
		{http.MethodPost, "/api/v1/send-message"},
		{http.MethodPost, "/api/v1/update-status"},
		{http.MethodGet, "/api/v1/message/15551230001"},
		{http.MethodGet, "/api/v1/chat-list"},
	} {
		status := doJSON(t, tc.method, srv.URL+tc.path, "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: expected 401, got %d", tc.method, tc.path, status)
		}
		status = doJSON(t, tc.method, srv.URL+tc.path, "not-a-token", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, status)
		}
	}
}

func TestUserAuth(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "15551230000", "alice")

	var resp map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/user-auth", token, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("user-auth: status %d", status)
	}
	if resp["wa_id"] != "15551230000" {
		t.Fatalf("unexpected identity: %v", resp)
	}
}

func TestSendMessageValidation(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "15551230000", "alice")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/send-message", token,
		map[string]string{"to": "", "message": "hi"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("empty to: expected 400, got %d", status)
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/send-message", token,
		map[string]string{"to": "15551230001", "message": ""}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", status)
	}
}

func TestUpdateStatusNoMessages(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "15551230000", "alice")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/update-status", token,
		map[string]string{"wa_id": "15551230000", "status": models.StatusSeen}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 when no message exists, got %d", status)
	}
}

func TestThreadEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "15551230000", "alice")

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/message/15551230001", token, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("thread: status %d", status)
	}
	if resp.Messages == nil || len(resp.Messages) != 0 {
		t.Fatalf("expected empty array, got %v", resp.Messages)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	payload := map[string]interface{}{
		"metaData": map[string]interface{}{
			"entry": []interface{}{
				map[string]interface{}{
					"changes": []interface{}{
						map[string]interface{}{
							"field": "messages",
							"value": map[string]interface{}{
								"metadata": map[string]string{"display_phone_number": "918329446654"},
								"contacts": []interface{}{
									map[string]interface{}{
										"wa_id":   "15551230000",
										"profile": map[string]string{"name": "alice"},
									},
								},
								"messages": []interface{}{
									map[string]interface{}{
										"id":        "wamid.import-1",
										"from":      "15551230000",
										"timestamp": "1700000000",
										"text":      map[string]string{"body": "imported hello"},
										"type":      "text",
									},
								},
							},
						},
					},
				},
			},
		},
	}

	var resp struct {
		InsertedCount int `json:"inserted_count"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/import", "", payload, &resp)
	if status != http.StatusOK {
		t.Fatalf("import: status %d", status)
	}
	if resp.InsertedCount != 1 {
		t.Fatalf("expected 1 inserted, got %d", resp.InsertedCount)
	}

	// Re-importing the same batch inserts nothing.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/import", "", payload, &resp)
	if status != http.StatusOK {
		t.Fatalf("re-import: status %d", status)
	}
	if resp.InsertedCount != 0 {
		t.Fatalf("expected idempotent re-import, got %d inserts", resp.InsertedCount)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/import", "", []interface{}{}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("empty batch: expected 400, got %d", status)
	}
}
