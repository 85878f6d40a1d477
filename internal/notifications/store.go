// Package notifications keeps an eventually-consistent local mirror of the
// customer's server-side notifications, refreshed on an interval and on
// explicit wake signals (the focus/visibility analog of the web client).
package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hittygas/storefront/internal/api"
	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

type Backend interface {
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	Session(ctx context.Context) api.Session
}

type Store struct {
	mu      sync.Mutex
	records []models.Notification
	unread  int
	lastErr error

	backend  Backend
	policy   *bluemonday.Policy
	interval time.Duration
	logger   *slog.Logger
	wake     chan struct{}
	now      func() time.Time
}

func NewStore(backend Backend, interval time.Duration, logger *slog.Logger) *Store {

	if interval <= 0 {
		interval = 120 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		backend: backend,
		// Server-provided text is rendered to the customer; strip all
		// markup rather than trusting the backend end to end.
		policy:   bluemonday.StrictPolicy(),
		interval: interval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Fetch refreshes the local mirror. Without a token it is a no-op. Errors are
// recorded on the store rather than returned, so schedulers keep running.
func (s *Store) Fetch(ctx context.Context) {

	if !s.backend.Session(ctx).Authenticated {
		return
	}

	records, err := s.backend.ListNotifications(ctx)
	if err != nil {

		if !apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated) {
			s.logger.Warn("Notification refresh failed", slog.String("error", err.Error()))
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		return
	}

	unread := 0

	for i := range records {

		records[i].Message = s.policy.Sanitize(records[i].Message)
		records[i].Title = s.policy.Sanitize(records[i].Title)

		if records[i].Unread() {
			unread++
		}
	}

	s.mu.Lock()
	s.records = records
	s.unread = unread
	s.lastErr = nil
	s.mu.Unlock()
}

// MarkRead stamps the record once the server acknowledges.
func (s *Store) MarkRead(ctx context.Context, id string) error {

	if err := s.backend.MarkNotificationRead(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for i := range s.records {

		if s.records[i].ID == id && s.records[i].Unread() {

			s.records[i].ReadAt = &now

			if s.unread > 0 {
				s.unread--
			}

			break
		}
	}

	return nil
}

// MarkAllRead stamps every unread record with one shared timestamp once the
// server acknowledges, driving the unread count to zero.
func (s *Store) MarkAllRead(ctx context.Context) error {

	if err := s.backend.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for i := range s.records {
		if s.records[i].Unread() {
			s.records[i].ReadAt = &now
		}
	}

	s.unread = 0

	return nil
}

// Wake requests an out-of-band refresh, e.g. when the app regains focus.
// Coalesces when a wake is already pending.
func (s *Store) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every interval tick and wake signal,
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {

	s.Fetch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Fetch(ctx)
		case <-s.wake:
			s.Fetch(ctx)
		}
	}
}

// Records returns a copy of the current mirror.
func (s *Store) Records() []models.Notification {

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.Notification, len(s.records))
	copy(records, s.records)

	return records
}

func (s *Store) UnreadCount() int {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unread
}

// Err reports the most recent refresh failure, or nil after a clean refresh.
func (s *Store) Err() error {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}
