package sms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Send_Success(t *testing.T) {
	t.Parallel()

	type gotReq struct {
		Method      string
		Path        string
		APIKey      string
		ContentType string
		Form        url.Values
	}

	var captured gotReq

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.APIKey = r.Header.Get("apiKey")
		captured.ContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		captured.Form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"number":"+254700123456","status":"Success","messageId":"ATXid_abc123","cost":"KES 0.80"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:  srv.URL,
		Username: "savannah",
		APIKey:   "secret-key",
		SenderID: "SAVANNAH",
	}, discardLogger())

	msgID, err := c.Send(context.Background(), "+254700123456", "hello there")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if msgID != "ATXid_abc123" {
		t.Fatalf("expected messageId %q, got %q", "ATXid_abc123", msgID)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %q", captured.Method)
	}
	if captured.Path != "/version1/messaging" {
		t.Fatalf("expected path /version1/messaging, got %q", captured.Path)
	}
	if captured.APIKey != "secret-key" {
		t.Fatalf("expected apiKey header to be set, got %q", captured.APIKey)
	}
	if captured.ContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected Content-Type %q", captured.ContentType)
	}
	if got := captured.Form.Get("to"); got != "+254700123456" {
		t.Fatalf("expected to %q, got %q", "+254700123456", got)
	}
	if got := captured.Form.Get("message"); got != "hello there" {
		t.Fatalf("expected message %q, got %q", "hello there", got)
	}
	if got := captured.Form.Get("username"); got != "savannah" {
		t.Fatalf("expected username %q, got %q", "savannah", got)
	}
	if got := captured.Form.Get("from"); got != "SAVANNAH" {
		t.Fatalf("expected from %q, got %q", "SAVANNAH", got)
	}
}

func TestClient_Send_RecipientRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700123456","status":"InvalidSenderId"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL}, discardLogger())

	_, err := c.Send(context.Background(), "+254700123456", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "InvalidSenderId") {
		t.Fatalf("expected rejection status in error, got: %v", err)
	}
}

func TestClient_Send_NoRecipients(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Recipients":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL}, discardLogger())

	_, err := c.Send(context.Background(), "+254700123456", "hi")
	if err == nil || !strings.Contains(err.Error(), "no recipients") {
		t.Fatalf("expected no recipients error, got: %v", err)
	}
}

func TestClient_Send_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad api key"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL}, discardLogger())

	_, err := c.Send(context.Background(), "+254700123456", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unexpected status code: 401") {
		t.Fatalf("expected status code in error, got: %v", err)
	}
}

func TestClient_Send_Sandbox_SkipsGateway(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("gateway must not be called in sandbox mode")
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Sandbox: true}, discardLogger())

	msgID, err := c.Send(context.Background(), "+254700123456", "hi")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if msgID != "sandbox" {
		t.Fatalf("expected sandbox message id, got %q", msgID)
	}
}
