// Package sweep runs the daily report-compliance and trial-completion checks
// over every shelter.
package sweep

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/adoptrack/internal/metrics"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"
	"github.com/dukerupert/adoptrack/internal/period"
	"github.com/dukerupert/adoptrack/internal/store"
	"github.com/dukerupert/adoptrack/internal/websocket"
)

const (
	NameCompliance = "compliance"
	NameCompletion = "completion"
)

const congratulationText = "Congratulations! You have successfully completed the trial period. " +
	"All the best to you and your pet."

// Publisher receives staff feed events. *websocket.Hub satisfies it.
type Publisher interface {
	Publish(ev websocket.Event)
}

// Result counts what one sweep did across all shelters.
type Result struct {
	Checked       int `json:"checked"`
	Compliant     int `json:"compliant"`
	Reminded      int `json:"reminded"`
	Escalated     int `json:"escalated"`
	Congratulated int `json:"congratulated"`
	Failed        int `json:"failed"`
}

type shelter struct {
	adoptions *store.AdoptionStore
	reports   *store.ReportStore
}

type Sweeper struct {
	users     *store.UserStore
	alerts    *store.AlertStore
	shelters  []model.Species
	bySpecies map[model.Species]shelter
	notifier  *notify.Notifier
	feed      Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location

	deadline      string
	escalateAfter int
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Sweeper) { s.loc = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(s *Sweeper) { s.feed = p }
}

// WithDeadline sets the report deadline quoted in reminders, e.g. "21:00".
func WithDeadline(hhmm string) Option {
	return func(s *Sweeper) { s.deadline = hhmm }
}

// WithEscalateAfter sets how many days without a report are tolerated before
// volunteers are alerted instead of the adopter being reminded.
func WithEscalateAfter(days int) Option {
	return func(s *Sweeper) { s.escalateAfter = days }
}

func NewSweeper(db *sql.DB, notifier *notify.Notifier, opts ...Option) *Sweeper {
	s := &Sweeper{
		users:         store.NewUserStore(db),
		alerts:        store.NewAlertStore(db),
		shelters:      model.AllSpecies,
		bySpecies:     make(map[model.Species]shelter, len(model.AllSpecies)),
		notifier:      notifier,
		logger:        slog.Default(),
		now:           time.Now,
		loc:           time.Local,
		deadline:      "21:00",
		escalateAfter: 2,
	}
	for _, sp := range model.AllSpecies {
		s.bySpecies[sp] = shelter{
			adoptions: store.NewAdoptionStore(db, sp),
			reports:   store.NewReportStore(db, sp),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sweep")
	return s
}

func (s *Sweeper) reminderText() string {
	return fmt.Sprintf("ATTENTION! Please send your daily report before %s.", s.deadline)
}

func (s *Sweeper) alertText() string {
	return fmt.Sprintf("ATTENTION! This adopter has not sent a daily report for more than %d days.", s.escalateAfter)
}

// Compliance checks every adoption still in its trial. Adopters without a
// complete report today are reminded, or reported to volunteers once they
// have been silent for more than the escalation threshold.
func (s *Sweeper) Compliance(ctx context.Context) (Result, error) {
	start := time.Now()
	now := s.now()
	today := period.Today(now, s.loc)

	var res Result
	var errs []error
	for _, sp := range s.shelters {
		if err := s.complianceFor(ctx, sp, now, today, &res); err != nil {
			s.logger.Error("compliance sweep failed for shelter", "species", sp, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sp, err))
			continue
		}
		s.metrics.IncSweepRun(NameCompliance, string(sp))
	}

	s.metrics.ObserveSweep(NameCompliance, time.Since(start))
	s.logger.Info("compliance sweep finished",
		"date", period.Format(today),
		"checked", res.Checked,
		"compliant", res.Compliant,
		"reminded", res.Reminded,
		"escalated", res.Escalated,
		"failed", res.Failed,
	)
	return res, errors.Join(errs...)
}

func (s *Sweeper) complianceFor(ctx context.Context, sp model.Species, now, today time.Time, res *Result) error {
	sh := s.bySpecies[sp]
	adoptions, err := sh.adoptions.ListTrialEndingFrom(ctx, today)
	if err != nil {
		return err
	}
	complete, err := sh.reports.CompleteOn(ctx, today)
	if err != nil {
		return err
	}

	for _, a := range adoptions {
		res.Checked++
		if _, ok := complete[a.ID]; ok {
			res.Compliant++
			continue
		}
		action, err := s.chase(ctx, sh, a, now, today)
		if err != nil {
			res.Failed++
			s.metrics.IncSweepAction(NameCompliance, "error")
			s.logger.Error("compliance check failed",
				"adoption_id", a.ID,
				"species", sp,
				"error", err,
			)
			continue
		}
		s.metrics.IncSweepAction(NameCompliance, action)
		switch action {
		case "alert":
			res.Escalated++
		case "reminder":
			res.Reminded++
		}
	}
	return nil
}

// chase handles one adoption without a complete report today.
func (s *Sweeper) chase(ctx context.Context, sh shelter, a model.Adoption, now, today time.Time) (string, error) {
	last := a.AdoptionDate
	latest, err := sh.reports.Latest(ctx, a.ID)
	if err != nil {
		return "", err
	}
	if latest != nil {
		last = latest.Date
	}

	if period.DaysBetween(last, today) > s.escalateAfter {
		alert, err := s.alerts.Create(ctx, a.UserID, now, s.alertText())
		if err != nil {
			return "", err
		}
		s.logger.Warn("adopter silent, volunteers alerted",
			"adoption_id", a.ID,
			"user_id", a.UserID,
			"last_report", period.Format(last),
		)
		if s.feed != nil {
			s.feed.Publish(websocket.NewEvent("volunteer_alert", "created", a.Species, alert.ID, map[string]any{
				"user_id":     a.UserID,
				"adoption_id": a.ID,
				"message":     alert.Message,
			}))
		}
		return "alert", nil
	}

	u, err := s.adopter(ctx, a.UserID)
	if err != nil {
		return "", err
	}
	s.notifier.Send(ctx, notify.BestEffort, *u, s.reminderText())
	return "reminder", nil
}

func (s *Sweeper) adopter(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

// Completion congratulates every adopter whose trial ends today. It changes
// no data.
func (s *Sweeper) Completion(ctx context.Context) (Result, error) {
	start := time.Now()
	today := period.Today(s.now(), s.loc)

	var res Result
	var errs []error
	for _, sp := range s.shelters {
		adoptions, err := s.bySpecies[sp].adoptions.ListTrialEndingOn(ctx, today)
		if err != nil {
			s.logger.Error("completion sweep failed for shelter", "species", sp, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sp, err))
			continue
		}
		for _, a := range adoptions {
			res.Checked++
			u, err := s.adopter(ctx, a.UserID)
			if err != nil {
				res.Failed++
				s.metrics.IncSweepAction(NameCompletion, "error")
				s.logger.Error("completion lookup failed", "adoption_id", a.ID, "error", err)
				continue
			}
			s.notifier.Send(ctx, notify.BestEffort, *u, congratulationText)
			res.Congratulated++
			s.metrics.IncSweepAction(NameCompletion, "congratulation")
		}
		s.metrics.IncSweepRun(NameCompletion, string(sp))
	}

	s.metrics.ObserveSweep(NameCompletion, time.Since(start))
	s.logger.Info("completion sweep finished",
		"date", period.Format(today),
		"congratulated", res.Congratulated,
		"failed", res.Failed,
	)
	return res, errors.Join(errs...)
}
