// Package reminder periodically reports how many reviews are due per user.
package reminder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/rcliao/nihongo-srs/internal/store"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = time.Hour

// Source counts due reviews.
type Source interface {
	DueCounts(ctx context.Context, now time.Time) ([]store.DueCount, error)
}

// Reminder tells one user how many reviews are waiting.
type Reminder struct {
	UserID string    `json:"user_id"`
	Due    int       `json:"due"`
	At     time.Time `json:"at"`
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, r Reminder) error { return f(ctx, r) }

// Scheduler runs the due check on a fixed interval.
type Scheduler struct {
	cron     *gocron.Scheduler
	src      Source
	notifier Notifier
	interval time.Duration
	userID   string
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithUser restricts reminders to one user.
func WithUser(userID string) Option {
	return func(s *Scheduler) { s.userID = userID }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler. Nothing runs until Start.
func New(src Source, notifier Notifier, opts ...Option) *Scheduler {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		src:      src,
		notifier: notifier,
		interval: DefaultInterval,
		log:      discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron.SingletonModeAll()
	return s
}

// Start schedules the check and runs it once immediately. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.Every(s.interval).Do(func() {
		if _, err := s.Check(ctx); err != nil {
			s.log.WithError(err).Warn("due check failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule due check: %w", err)
	}
	s.cron.StartAsync()
	s.log.WithField("interval", s.interval.String()).Info("reminders started")
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Check counts due reviews now and notifies every user with at least one.
// It returns how many reminders were sent. A failed notification is logged
// and does not stop the others.
func (s *Scheduler) Check(ctx context.Context) (int, error) {
	now := s.now().UTC()
	counts, err := s.src.DueCounts(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("count due reviews: %w", err)
	}
	sent := 0
	for _, c := range counts {
		if c.Due <= 0 || (s.userID != "" && c.UserID != s.userID) {
			continue
		}
		r := Reminder{UserID: c.UserID, Due: c.Due, At: now}
		if err := s.notifier.Notify(ctx, r); err != nil {
			s.log.WithError(err).WithField("user_id", c.UserID).Warn("send reminder")
			continue
		}
		sent++
	}
	s.log.WithFields(logrus.Fields{"users": len(counts), "sent": sent}).Debug("due check")
	return sent, nil
}
