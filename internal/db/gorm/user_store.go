package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// UserStore provides user-related database operations using GORM.
type UserStore struct {
	store     *Store
	db        *gorm.DB
	batchSize int
}

// NewUserStore creates a new user store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{
		store:     store,
		db:        store.DB,
		batchSize: store.cfg.BatchSize,
	}
}

// Now returns the store clock's current time.
func (s *UserStore) Now() time.Time {
	return s.store.Now()
}

// FindAll returns every user ordered by id ascending.
func (s *UserStore) FindAll(ctx context.Context) ([]models.User, error) {
	var rows []User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for i := range rows {
		users = append(users, toModelUser(&rows[i]))
	}
	return users, nil
}

// FindByID retrieves a user by id. Returns nil if no such user exists.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var row User

	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user := toModelUser(&row)
	return &user, nil
}

// Count returns the number of stored users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

// Truncate deletes every user and returns the number of rows removed.
func (s *UserStore) Truncate(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&User{})
	if result.Error != nil {
		return 0, fmt.Errorf("truncate users: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Insert stores fully formed users in batches inside one transaction.
// A conflicting id fails the whole insert.
func (s *UserStore) Insert(ctx context.Context, users ...models.User) error {
	if len(users) == 0 {
		return nil
	}

	rows := make([]*User, 0, len(users))
	for _, u := range users {
		if u.ID <= 0 {
			return models.ErrMissingID
		}
		rows = append(rows, fromModelUser(u))
	}

	return s.store.TransactionWithTimeout(ctx, SlowQueryTimeout, "insert_users", func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, s.batchSize).Error; err != nil {
			return fmt.Errorf("insert users: %w", err)
		}
		return nil
	})
}

// NewSession starts a unit of work bound to this store.
func (s *UserStore) NewSession() *Session {
	return newSession(s)
}
