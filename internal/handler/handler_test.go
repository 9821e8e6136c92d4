package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/adoptrack/internal/adoption"
	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"
	"github.com/dukerupert/adoptrack/internal/store"
)

type stubGateway struct {
	err  error
	sent []string
}

func (g *stubGateway) SendToUser(ctx context.Context, user model.User, text string, priority notify.Priority) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, text)
	return nil
}

type testEnv struct {
	db  *sql.DB
	gw  *stubGateway
	mux *http.ServeMux
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := &stubGateway{}
	svc := adoption.NewService(db, notify.New(gw, "test", logger, nil),
		adoption.WithClock(func() time.Time { return testNow }),
		adoption.WithLocation(time.UTC),
		adoption.WithLogger(logger),
	)

	ah := NewAdoptionHandler(svc, logger)
	uh := NewUserHandler(svc, logger)
	alh := NewAlertHandler(store.NewAlertStore(db), logger)
	alh.now = func() time.Time { return testNow }
	ph := NewPushHandler(store.NewUserStore(db), store.NewPushStore(db), "test-public-key", logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/shelters/{species}/adoptions", ah.Create)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions", ah.List)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions/{id}", ah.Get)
	mux.HandleFunc("PUT /api/shelters/{species}/adoptions/{id}/trial", ah.SetTrial)
	mux.HandleFunc("DELETE /api/shelters/{species}/adoptions/{id}", ah.Delete)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions/{id}/reports", ah.Reports)
	mux.HandleFunc("GET /api/users/{id}/active-adoption", uh.ActiveAdoption)
	mux.HandleFunc("POST /api/users/{id}/warning", uh.Warn)
	mux.HandleFunc("GET /api/alerts", alh.List)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", alh.Resolve)
	mux.HandleFunc("POST /api/users/{id}/push-subscriptions", ph.Subscribe)
	mux.HandleFunc("GET /api/push/vapid-key", ph.VAPIDKey)

	return &testEnv{db: db, gw: gw, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) user(t *testing.T, name string, shelter model.Species) *model.User {
	t.Helper()
	u, err := store.NewUserStore(e.db).Create(context.Background(), name, name+"@example.com", model.RoleAdopter, shelter)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) pet(t *testing.T, species model.Species, name string) *model.Pet {
	t.Helper()
	p, err := store.NewPetStore(e.db, species).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func adoptionBody(userID, petID int64, end string) map[string]any {
	return map[string]any{"user_id": userID, "pet_id": petID, "trial_end_date": end}
}
