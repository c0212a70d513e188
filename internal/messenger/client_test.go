package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{BaseURL: "https://graph.example.com", APIVersion: "v12.0"}},
		{name: "missing base URL", cfg: Config{APIVersion: "v12.0"}, wantErr: true},
		{name: "missing API version", cfg: Config{BaseURL: "https://graph.example.com"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.cfg, nil)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSendText_Success(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"recipient_id":"U1","message_id":"mid.1"}`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIVersion: "v12.0"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := c.SendText(context.Background(), "token-1", "U1", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/v12.0/me/messages" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotToken != "token-1" {
		t.Errorf("access token: got %q", gotToken)
	}
	recipient, _ := gotBody["recipient"].(map[string]any)
	message, _ := gotBody["message"].(map[string]any)
	if recipient["id"] != "U1" || message["text"] != "hello" {
		t.Errorf("unexpected body: %v", gotBody)
	}
}

func TestSendText_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIVersion: "v12.0"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	sendErr := c.SendText(context.Background(), "bad-token", "U1", "hello")
	if sendErr == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(sendErr, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", sendErr, sendErr)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 190 {
		t.Errorf("unexpected API error: %+v", apiErr)
	}
}

func TestSendText_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIVersion: "v12.0", Timeout: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := c.SendText(context.Background(), "token-1", "U1", "hello"); err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestSendText_InputValidation(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://graph.example.com", APIVersion: "v12.0"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := c.SendText(context.Background(), "", "U1", "hello"); err == nil {
		t.Error("expected error for empty token")
	}
	if err := c.SendText(context.Background(), "token-1", "", "hello"); err == nil {
		t.Error("expected error for empty recipient")
	}
}
