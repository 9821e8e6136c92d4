package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/store"
)

func TestPushSubscribe(t *testing.T) {
	env := setupEnv(t)
	u := env.user(t, "Alice", model.SpeciesDog)
	path := fmt.Sprintf("/api/users/%d/push-subscriptions", u.ID)
	body := map[string]string{
		"endpoint":    "https://push.example.com/abc",
		"p256dh":      "key",
		"auth":        "secret",
		"device_name": "phone",
	}

	rec := env.do(t, "POST", path, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	subs, err := store.NewPushStore(env.db).ListByUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != body["endpoint"] {
		t.Errorf("subscriptions = %+v", subs)
	}

	if rec := env.do(t, "POST", path, map[string]string{"endpoint": "x"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing keys: status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, "POST", "/api/users/999/push-subscriptions", body); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", rec.Code)
	}
}

func TestPushVAPIDKey(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, "GET", "/api/push/vapid-key", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["public_key"] != "test-public-key" {
		t.Errorf("public_key = %q", got["public_key"])
	}

	h := NewPushHandler(nil, nil, "", nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /k", h.VAPIDKey)
	env.mux = mux
	if rec := env.do(t, "GET", "/k", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured: status = %d, want 404", rec.Code)
	}
}
