package gorm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// ErrDuplicateID is returned when a session already holds a pending user with the same id.
var ErrDuplicateID = errors.New("user id already pending in session")

// Session is a unit of work: users are created in memory and written
// together on Flush.
type Session struct {
	users   *UserStore
	pending []models.User
	ids     map[int64]struct{}
	mu      sync.Mutex
}

func newSession(users *UserStore) *Session {
	return &Session{
		users: users,
		ids:   make(map[int64]struct{}),
	}
}

// Create builds a user from partial data, applying schema defaults with the
// store clock, and queues it for the next Flush.
func (s *Session) Create(data models.UserData) (*models.User, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	user := models.NewUser(data, s.users.store.Now())
	if err := s.Persist(*user); err != nil {
		return nil, err
	}
	return user, nil
}

// Persist queues an already built user for the next Flush. A nil Foo or a
// zero Bar gets the schema default, with Bar taken from the store clock.
func (s *Session) Persist(user models.User) error {
	if user.ID <= 0 {
		return models.ErrMissingID
	}
	if user.Foo == nil {
		user.Foo = []string{}
	}
	if user.Bar.IsZero() {
		user.Bar = s.users.store.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[user.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, user.ID)
	}
	s.ids[user.ID] = struct{}{}
	s.pending = append(s.pending, user)
	return nil
}

// Pending returns the number of queued users.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush inserts every queued user in one transaction and empties the queue.
// On failure the queue is kept so the caller can inspect or Clear it.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	if err := s.users.Insert(ctx, s.pending...); err != nil {
		return fmt.Errorf("flush session: %w", err)
	}

	s.users.store.log.Debug().Int("users", len(s.pending)).Msg("Session flushed")
	s.reset()
	return nil
}

// Clear drops every queued user without writing.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.pending = nil
	s.ids = make(map[int64]struct{})
}
