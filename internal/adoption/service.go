// Package adoption implements the adoption lifecycle: creating adoptions
// under the one-active-window rule, adjusting trial periods and messaging
// adopters.
package adoption

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

// Publisher receives staff feed events. *websocket.Hub satisfies it.
type Publisher interface {
	Publish(ev websocket.Event)
}

type shelter struct {
	pets      *store.PetStore
	adoptions *store.AdoptionStore
	reports   *store.ReportStore
}

type Service struct {
	users    *store.UserStore
	shelters map[model.Species]shelter
	notifier *notify.Notifier
	feed     Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that decides which calendar day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.feed = p }
}

// NewService builds one pet, adoption and report store per shelter over db.
func NewService(db *sql.DB, notifier *notify.Notifier, opts ...Option) *Service {
	s := &Service{
		users:    store.NewUserStore(db),
		shelters: make(map[model.Species]shelter, len(model.AllSpecies)),
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, sp := range model.AllSpecies {
		s.shelters[sp] = shelter{
			pets:      store.NewPetStore(db, sp),
			adoptions: store.NewAdoptionStore(db, sp),
			reports:   store.NewReportStore(db, sp),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "adoption")
	return s
}

// Today is the current calendar day in the service's zone.
func (s *Service) Today() time.Time {
	return period.Today(s.now(), s.loc)
}

func (s *Service) shelter(species model.Species) (shelter, error) {
	sh, ok := s.shelters[species]
	if !ok {
		return shelter{}, fmt.Errorf("%w %q", ErrUnknownShelter, species)
	}
	return sh, nil
}

func (s *Service) user(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return u, nil
}

func (s *Service) publish(action string, a *model.Adoption) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(websocket.NewEvent("adoption", action, a.Species, a.ID, map[string]any{
		"user_id":        a.UserID,
		"pet_id":         a.PetID,
		"trial_end_date": period.Format(a.TrialEndDate),
	}))
}

// CreateAdoption starts an adoption today with a trial until trialEnd. The
// user and the pet must both be free for the whole window.
func (s *Service) CreateAdoption(ctx context.Context, species model.Species, userID, petID int64, trialEnd time.Time) (*model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	pet, err := sh.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, species, petID)
	}

	iv, err := period.New(s.Today(), trialEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: trial end: %v", ErrInvalidInput, err)
	}

	a, err := sh.adoptions.Create(ctx, u.ID, pet.ID, iv)
	if errors.Is(err, store.ErrOverlap) {
		s.metrics.IncAdoptionOp(string(species), "busy")
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	if err != nil {
		return nil, fmt.Errorf("create adoption: %w", err)
	}

	s.metrics.IncAdoptionOp(string(species), "created")
	s.logger.Info("adoption created",
		"adoption_id", a.ID,
		"species", species,
		"user_id", u.ID,
		"pet_id", pet.ID,
		"trial_end", period.Format(a.TrialEndDate),
	)
	s.notifier.Send(ctx, notify.BestEffort, *u, createdText(u.Name, a.TrialEndDate))
	s.publish("created", a)
	return a, nil
}

func (s *Service) GetAdoption(ctx context.Context, species model.Species, id int64) (*model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	a, err := sh.adoptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s adoption %d", ErrNotFound, species, id)
	}
	return a, nil
}

// SetTrialDate moves the trial end. The adopter is told first; if that
// message cannot be delivered nothing is changed and ErrDelivery is returned.
// The write only applies if the trial end is still the one read at the start;
// a change made in between yields ErrBusy.
func (s *Service) SetTrialDate(ctx context.Context, species model.Species, id int64, trialEnd time.Time) (*model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	a, err := s.GetAdoption(ctx, species, id)
	if err != nil {
		return nil, err
	}

	trialEnd = period.Day(trialEnd)
	iv, err := period.New(a.AdoptionDate, trialEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: trial end: %v", ErrInvalidInput, err)
	}
	if err := s.checkFree(ctx, sh.adoptions, a, iv); err != nil {
		return nil, err
	}

	u, err := s.user(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	days := period.DaysBetween(a.TrialEndDate, trialEnd)
	if err := s.notifier.Send(ctx, notify.Fatal, *u, extendedText(days, trialEnd)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	updated, err := sh.adoptions.UpdateTrial(ctx, id, a.TrialEndDate, trialEnd)
	if err == nil && updated == nil {
		err = fmt.Errorf("%w: %s adoption %d", ErrNotFound, species, id)
	}
	if err != nil {
		// The adopter has already been told about this change.
		s.logger.Warn("trial change sent but not saved",
			"adoption_id", id,
			"species", species,
			"user_id", u.ID,
			"trial_end", period.Format(trialEnd),
			"error", err,
		)
		switch {
		case errors.Is(err, store.ErrOverlap), errors.Is(err, store.ErrStale):
			return nil, fmt.Errorf("%w: %v", ErrBusy, err)
		case errors.Is(err, ErrNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("update trial: %w", err)
	}

	s.metrics.IncAdoptionOp(string(species), "extended")
	s.logger.Info("trial period changed",
		"adoption_id", id,
		"species", species,
		"days", days,
		"trial_end", period.Format(trialEnd),
	)
	s.publish("updated", updated)
	return updated, nil
}

// Reports lists the daily reports filed for an adoption, oldest first.
func (s *Service) Reports(ctx context.Context, species model.Species, id int64) ([]model.Report, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetAdoption(ctx, species, id); err != nil {
		return nil, err
	}
	return sh.reports.ListByAdoption(ctx, id)
}

// checkFree rejects a new window for a that overlaps another adoption of the
// same user or pet. It runs before the adopter is messaged; UpdateTrial
// repeats it inside its transaction.
func (s *Service) checkFree(ctx context.Context, as *store.AdoptionStore, a *model.Adoption, iv period.Interval) error {
	for _, p := range []struct {
		party store.Party
		id    int64
	}{{store.PartyUser, a.UserID}, {store.PartyPet, a.PetID}} {
		busy, err := as.ListOverlapping(ctx, p.party, p.id, iv, a.ID)
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return fmt.Errorf("%w: %s %d has adoption %d", ErrBusy, p.party, p.id, busy[0].ID)
		}
	}
	return nil
}

// DeleteAdoption removes an adoption and returns it as it was.
func (s *Service) DeleteAdoption(ctx context.Context, species model.Species, id int64) (*model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	a, err := s.GetAdoption(ctx, species, id)
	if err != nil {
		return nil, err
	}
	if err := sh.adoptions.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.metrics.IncAdoptionOp(string(species), "deleted")
	s.logger.Info("adoption deleted", "adoption_id", id, "species", species)
	s.publish("deleted", a)
	return a, nil
}

func (s *Service) ListAdoptions(ctx context.Context, species model.Species) ([]model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	return sh.adoptions.List(ctx)
}

// ListActiveAdoptions returns adoptions whose window contains today.
func (s *Service) ListActiveAdoptions(ctx context.Context, species model.Species) ([]model.Adoption, error) {
	sh, err := s.shelter(species)
	if err != nil {
		return nil, err
	}
	return sh.adoptions.ListActiveOn(ctx, s.Today())
}

// ActiveAdoption returns the user's adoption in their own shelter that is
// active on date, or nil.
func (s *Service) ActiveAdoption(ctx context.Context, user model.User, date time.Time) (*model.Adoption, error) {
	if user.Shelter == "" {
		return nil, fmt.Errorf("%w: user %d has no shelter", ErrUnknownShelter, user.ID)
	}
	sh, err := s.shelter(user.Shelter)
	if err != nil {
		return nil, err
	}
	found, err := sh.adoptions.ListOverlapping(ctx, store.PartyUser, user.ID, period.On(date), 0)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	if len(found) > 1 {
		s.logger.Warn("user has several active adoptions",
			"user_id", user.ID,
			"species", user.Shelter,
			"count", len(found),
		)
	}
	return &found[0], nil
}

// User looks up a user, mapping a miss to ErrNotFound.
func (s *Service) User(ctx context.Context, id int64) (*model.User, error) {
	return s.user(ctx, id)
}

// WarnUser sends the fixed care-quality warning. Delivery failure is returned
// as ErrDelivery.
func (s *Service) WarnUser(ctx context.Context, userID int64) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.notifier.Send(ctx, notify.Fatal, *u, warningText); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	s.logger.Info("care warning sent", "user_id", u.ID)
	return nil
}
