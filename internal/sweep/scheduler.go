package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/adoptrack/internal/period"
)

// TimeOfDay is a wall-clock time in the scheduler's zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) reachedBy(now time.Time) bool {
	return now.Hour() > t.Hour || (now.Hour() == t.Hour && now.Minute() >= t.Minute)
}

// Job runs once per calendar day at At.
type Job struct {
	Name string
	At   TimeOfDay
	Run  func(ctx context.Context) error
}

type jobState struct {
	Job
	lastDay time.Time
	running bool
}

// Scheduler fires each job once a day. A job never overlaps itself; different
// jobs may run at the same time. Missed runs are not caught up.
type Scheduler struct {
	mu       sync.Mutex
	jobs     []*jobState
	now      func() time.Time
	loc      *time.Location
	interval time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func WithSchedulerLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) { s.loc = loc }
}

// WithInterval sets how often the clock is checked.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(jobs []Job, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		now:      time.Now,
		loc:      time.Local,
		interval: 30 * time.Second,
		logger:   slog.Default(),
	}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &jobState{Job: j})
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Start begins the scheduler loop. Jobs whose time has already passed today
// wait for tomorrow.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	now := s.now().In(s.loc)
	for _, j := range s.jobs {
		if j.At.reachedBy(now) {
			j.lastDay = period.Day(now)
		}
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	for _, j := range s.jobs {
		s.logger.Info("job scheduled", "job", j.Name, "at", j.At.String())
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.loc)
	today := period.Day(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if !j.At.reachedBy(now) || j.lastDay.Equal(today) {
			continue
		}
		j.lastDay = today
		if j.running {
			s.logger.Warn("previous run still in progress, skipping", "job", j.Name)
			continue
		}
		j.running = true
		s.wg.Add(1)
		go s.run(ctx, j)
	}
}

// run executes a job to completion even if the scheduler is stopped midway.
func (s *Scheduler) run(ctx context.Context, j *jobState) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("job started", "job", j.Name)
	if err := j.Run(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("job failed", "job", j.Name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", j.Name, "duration", time.Since(start))
}
