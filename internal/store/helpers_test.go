package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/period"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := period.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func mustInterval(t *testing.T, start, end string) period.Interval {
	t.Helper()
	iv, err := period.New(mustDate(t, start), mustDate(t, end))
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	return iv
}

func createUser(t *testing.T, db *sql.DB, name string, shelter model.Species) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), name, name+"@example.com", model.RoleAdopter, shelter)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createPet(t *testing.T, db *sql.DB, species model.Species, name string) *model.Pet {
	t.Helper()
	p, err := NewPetStore(db, species).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return p
}
