package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/store"
)

func TestAlertListAndResolve(t *testing.T) {
	env := setupEnv(t)
	u := env.user(t, "Alice", model.SpeciesDog)
	alerts := store.NewAlertStore(env.db)
	a, err := alerts.Create(context.Background(), u.ID, testNow, "no reports")
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	list := decode[[]model.VolunteerAlert](t, env.do(t, "GET", "/api/alerts?open=true", nil))
	if len(list) != 1 {
		t.Fatalf("open alerts = %d, want 1", len(list))
	}

	rec := env.do(t, "POST", fmt.Sprintf("/api/alerts/%d/resolve", a.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", rec.Code)
	}
	if resolved := decode[model.VolunteerAlert](t, rec); resolved.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}

	list = decode[[]model.VolunteerAlert](t, env.do(t, "GET", "/api/alerts?open=true", nil))
	if len(list) != 0 {
		t.Errorf("open alerts after resolve = %d, want 0", len(list))
	}
	list = decode[[]model.VolunteerAlert](t, env.do(t, "GET", "/api/alerts", nil))
	if len(list) != 1 {
		t.Errorf("all alerts = %d, want 1", len(list))
	}

	if rec := env.do(t, "POST", "/api/alerts/999/resolve", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing alert: status = %d, want 404", rec.Code)
	}
}
