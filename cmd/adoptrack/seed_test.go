package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/notify"
	"github.com/dukerupert/adoptrack/internal/period"
	"github.com/dukerupert/adoptrack/internal/sweep"
)

func TestSeedGivesComplianceSweepWork(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 5, 10, 22, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if err := seed(ctx, db, period.Day(now), logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sw := sweep.NewSweeper(db, notify.New(notify.NewLogGateway(logger), "log", logger, nil),
		sweep.WithClock(func() time.Time { return now }),
		sweep.WithLocation(time.UTC),
		sweep.WithLogger(logger),
	)
	res, err := sw.Compliance(ctx)
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	want := sweep.Result{Checked: 6, Compliant: 2, Reminded: 2, Escalated: 2}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
}
