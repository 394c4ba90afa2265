package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aforsev/storefront-backend/pkg/config"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
)

func testClientConfig() config.WhatsAppConfig {
	return config.WhatsAppConfig{
		AccessToken:       "token-123",
		PhoneNumberID:     "555000",
		VerifyToken:       "verify-123",
		BusinessAccountID: "biz-123",
		APIVersion:        "v19.0",
		BaseURL:           "https://graph.facebook.com",
		Timeout:           5 * time.Second,
	}
}

func TestClientSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.test-1"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.SendText(context.Background(), "15551234567", "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if result.MessageID != "wamid.test-1" {
		t.Errorf("expected message id wamid.test-1, got %q", result.MessageID)
	}
	if gotPath != "/v19.0/555000/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" || gotBody["to"] != "15551234567" {
		t.Errorf("unexpected payload %v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "hello" {
		t.Errorf("unexpected text payload %v", gotBody["text"])
	}
}

func TestClientSendTextGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad token"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.SendText(context.Background(), "15551234567", "hello")
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientSendTextValidation(t *testing.T) {
	client, err := NewClient(testClientConfig())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.SendText(context.Background(), "", "hello"); err == nil {
		t.Error("expected error for missing recipient")
	}
	if _, err := client.SendText(context.Background(), "15551234567", ""); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.WhatsAppConfig{}); err == nil {
		t.Error("expected error for missing credentials")
	}
}
