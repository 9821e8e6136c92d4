package sweep

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/metrics"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"
	"github.com/dukerupert/adoptrack/internal/period"
	"github.com/dukerupert/adoptrack/internal/store"
	"github.com/dukerupert/adoptrack/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeGateway struct {
	mu   sync.Mutex
	fail map[int64]bool
	sent map[int64][]string
}

func (g *fakeGateway) SendToUser(ctx context.Context, user model.User, text string, priority notify.Priority) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail[user.ID] {
		return errors.New("unreachable")
	}
	if g.sent == nil {
		g.sent = make(map[int64][]string)
	}
	g.sent[user.ID] = append(g.sent[user.ID], text)
	return nil
}

type fakeFeed struct {
	events []websocket.Event
}

func (f *fakeFeed) Publish(ev websocket.Event) { f.events = append(f.events, ev) }

// 2024-05-10 21:01 UTC
var sweepTime = time.Date(2024, 5, 10, 21, 1, 0, 0, time.UTC)

type fixture struct {
	db      *sql.DB
	sweeper *Sweeper
	gw      *fakeGateway
	feed    *fakeFeed
	metrics *metrics.Metrics
	today   time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		gw:      &fakeGateway{fail: map[int64]bool{}},
		feed:    &fakeFeed{},
		metrics: metrics.New(prometheus.NewRegistry()),
		today:   period.Day(sweepTime),
	}
	f.sweeper = NewSweeper(db, notify.New(f.gw, "test", nil, f.metrics),
		WithClock(func() time.Time { return sweepTime }),
		WithLocation(time.UTC),
		WithPublisher(f.feed),
		WithMetrics(f.metrics),
	)
	return f
}

// adoption stores an adoption that started `startOffset` days from today and
// ends `endOffset` days from today.
func (f *fixture) adoption(t *testing.T, sp model.Species, name string, startOffset, endOffset int) model.Adoption {
	t.Helper()
	ctx := context.Background()
	u, err := store.NewUserStore(f.db).Create(ctx, name, name+"@example.com", model.RoleAdopter, sp)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := store.NewPetStore(f.db, sp).Create(ctx, name+"'s pet")
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	iv, err := period.New(period.AddDays(f.today, startOffset), period.AddDays(f.today, endOffset))
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	a, err := store.NewAdoptionStore(f.db, sp).Create(ctx, u.ID, p.ID, iv)
	if err != nil {
		t.Fatalf("create adoption: %v", err)
	}
	return *a
}

func (f *fixture) report(t *testing.T, a model.Adoption, offset int, complete bool) {
	t.Helper()
	photo, text := "photo.jpg", "walked twice"
	var pp, tp *string = &photo, &text
	if !complete {
		tp = nil
	}
	_, err := store.NewReportStore(f.db, a.Species).Create(context.Background(), a.ID, period.AddDays(f.today, offset), pp, tp)
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
}

func (f *fixture) alerts(t *testing.T) []model.VolunteerAlert {
	t.Helper()
	alerts, err := store.NewAlertStore(f.db).List(context.Background(), false)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	return alerts
}

func TestComplianceEscalatesAfterThreeSilentDays(t *testing.T) {
	f := setup(t)
	a := f.adoption(t, model.SpeciesDog, "silent", -3, 27)

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Escalated != 1 || res.Reminded != 0 {
		t.Errorf("result = %+v, want one escalation", res)
	}

	alerts := f.alerts(t)
	if len(alerts) != 1 || alerts[0].UserID != a.UserID {
		t.Fatalf("alerts = %+v, want one for user %d", alerts, a.UserID)
	}
	if !strings.Contains(alerts[0].Message, "more than 2 days") {
		t.Errorf("alert message = %q", alerts[0].Message)
	}
	if len(f.gw.sent[a.UserID]) != 0 {
		t.Error("escalated adopter should not be messaged")
	}
	if len(f.feed.events) != 1 || f.feed.events[0].Type != "volunteer_alert_created" {
		t.Errorf("feed = %+v", f.feed.events)
	}
}

func TestComplianceRemindsWithinThreshold(t *testing.T) {
	f := setup(t)
	yesterday := f.adoption(t, model.SpeciesDog, "yesterday", -10, 20)
	f.report(t, yesterday, -1, true)
	twoDays := f.adoption(t, model.SpeciesDog, "two-days", -2, 20)
	incomplete := f.adoption(t, model.SpeciesCat, "incomplete", -10, 20)
	f.report(t, incomplete, 0, false)

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Reminded != 3 || res.Escalated != 0 {
		t.Errorf("result = %+v, want three reminders", res)
	}
	for _, a := range []model.Adoption{yesterday, twoDays, incomplete} {
		msgs := f.gw.sent[a.UserID]
		if len(msgs) != 1 || msgs[0] != "ATTENTION! Please send your daily report before 21:00." {
			t.Errorf("user %d messages = %q", a.UserID, msgs)
		}
	}
	if len(f.alerts(t)) != 0 {
		t.Error("no alerts expected")
	}
	if got := testutil.ToFloat64(f.metrics.SweepActions.WithLabelValues(NameCompliance, "reminder")); got != 3 {
		t.Errorf("reminder counter = %v, want 3", got)
	}
}

// A compliant adoption must not stop the sweep from checking the rest of the
// shelter.
func TestComplianceSkipsCompliantAndContinues(t *testing.T) {
	f := setup(t)
	compliant := f.adoption(t, model.SpeciesDog, "diligent", -5, 25)
	f.report(t, compliant, 0, true)
	late := f.adoption(t, model.SpeciesDog, "late", -5, 25)
	f.report(t, late, -1, true)
	silent := f.adoption(t, model.SpeciesDog, "silent", -5, 25)

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Checked != 3 || res.Compliant != 1 || res.Reminded != 1 || res.Escalated != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(f.gw.sent[compliant.UserID]) != 0 {
		t.Error("compliant adopter was messaged")
	}
	if len(f.gw.sent[late.UserID]) != 1 {
		t.Error("adopter after a compliant one was not reminded")
	}
	if alerts := f.alerts(t); len(alerts) != 1 || alerts[0].UserID != silent.UserID {
		t.Errorf("alerts = %+v, want one for the silent adopter", alerts)
	}
}

func TestComplianceIgnoresFinishedTrials(t *testing.T) {
	f := setup(t)
	done := f.adoption(t, model.SpeciesCat, "done", -40, -1)
	lastDay := f.adoption(t, model.SpeciesCat, "last-day", -1, 0)

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Checked != 1 {
		t.Errorf("checked = %d, want only the adoption ending today", res.Checked)
	}
	if len(f.gw.sent[done.UserID]) != 0 {
		t.Error("finished trial was chased")
	}
	if len(f.gw.sent[lastDay.UserID]) != 1 {
		t.Error("trial ending today should still be reminded")
	}
}

func TestComplianceDeliveryFailureDoesNotStopSweep(t *testing.T) {
	f := setup(t)
	first := f.adoption(t, model.SpeciesDog, "blocked", -1, 10)
	second := f.adoption(t, model.SpeciesDog, "reachable", -1, 10)
	f.gw.fail[first.UserID] = true

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Reminded != 2 {
		t.Errorf("reminded = %d, want 2 (best effort)", res.Reminded)
	}
	if len(f.gw.sent[second.UserID]) != 1 {
		t.Error("second adopter not reminded after first failed")
	}
	if got := testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("test", "best_effort", "failed")); got != 1 {
		t.Errorf("failed notifications = %v, want 1", got)
	}
}

func TestCompletionCongratulatesOnce(t *testing.T) {
	f := setup(t)
	endsToday := f.adoption(t, model.SpeciesDog, "finisher", -30, 0)
	endsTomorrow := f.adoption(t, model.SpeciesDog, "almost", -29, 1)
	catToday := f.adoption(t, model.SpeciesCat, "cat-finisher", -30, 0)

	res, err := f.sweeper.Completion(context.Background())
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if res.Congratulated != 2 {
		t.Errorf("congratulated = %d, want 2", res.Congratulated)
	}
	for _, a := range []model.Adoption{endsToday, catToday} {
		msgs := f.gw.sent[a.UserID]
		if len(msgs) != 1 || msgs[0] != congratulationText {
			t.Errorf("user %d messages = %q, want one congratulation", a.UserID, msgs)
		}
	}
	if len(f.gw.sent[endsTomorrow.UserID]) != 0 {
		t.Error("adopter with trial ending tomorrow was congratulated")
	}

	got, _ := store.NewAdoptionStore(f.db, model.SpeciesDog).GetByID(context.Background(), endsToday.ID)
	if !got.TrialEndDate.Equal(endsToday.TrialEndDate) {
		t.Error("completion sweep must not modify adoptions")
	}
}

func TestSweepCustomThreshold(t *testing.T) {
	f := setup(t)
	f.sweeper = NewSweeper(f.db, notify.New(f.gw, "test", nil, nil),
		WithClock(func() time.Time { return sweepTime }),
		WithLocation(time.UTC),
		WithDeadline("20:00"),
		WithEscalateAfter(5),
	)
	a := f.adoption(t, model.SpeciesDog, "patient", -4, 10)

	res, err := f.sweeper.Compliance(context.Background())
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if res.Reminded != 1 {
		t.Errorf("result = %+v, want reminder under a 5 day threshold", res)
	}
	if msgs := f.gw.sent[a.UserID]; len(msgs) != 1 || !strings.Contains(msgs[0], "before 20:00") {
		t.Errorf("messages = %q", msgs)
	}
}
