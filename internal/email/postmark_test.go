package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"
)

func TestSendToUser(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "shelter@example.com", WithShelterName("Happy Paws"),
		WithHTTPClient(&http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}))

	user := model.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	if err := client.SendToUser(context.Background(), user, "Please send your daily report.", notify.PriorityNormal); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "shelter@example.com" {
		t.Errorf("From = %q, want %q", received.From, "shelter@example.com")
	}
	if received.Subject != "A message from Happy Paws" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if received.TextBody != "Please send your daily report." {
		t.Errorf("TextBody = %q", received.TextBody)
	}
	if len(received.Headers) != 0 {
		t.Errorf("normal priority should carry no headers, got %v", received.Headers)
	}
}

func TestSendToUserHighPriority(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-token", "shelter@example.com")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendToUser(context.Background(), model.User{ID: 2, Email: "bob@example.com"}, "Trial extended", notify.PriorityHigh)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.Subject != "Important: a message from the shelter" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if len(received.Headers) != 1 || received.Headers[0].Value != "high" {
		t.Errorf("Headers = %v, want importance header", received.Headers)
	}
}

func TestSendToUserAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "shelter@example.com")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendToUser(context.Background(), model.User{ID: 1, Email: "alice@example.com"}, "hi", notify.PriorityNormal)
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestSendToUserWithoutEmail(t *testing.T) {
	client := NewClient("test-token", "shelter@example.com")
	if err := client.SendToUser(context.Background(), model.User{ID: 1}, "hi", notify.PriorityNormal); err == nil {
		t.Fatal("expected error for user without email")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	c := NewClient("", "from@test.com")
	if c.Configured() {
		t.Error("expected Configured() = false")
	}
	if err := c.SendToUser(context.Background(), model.User{Email: "a@b.c"}, "hi", notify.PriorityNormal); err == nil {
		t.Error("expected error for unconfigured client")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
