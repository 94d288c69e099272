package gorm

import (
	"errors"
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations returns the schema history in apply order.
func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		// Migration 001: users table
		{
			ID: "001_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(User{}.TableName())
			},
		},
	}
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations())
}

// CreateSchema applies every pending migration.
func (s *Store) CreateSchema() error {
	if err := newMigrator(s.DB).Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// DropSchema rolls back every applied migration and removes the
// migration bookkeeping table.
func (s *Store) DropSchema() error {
	m := newMigrator(s.DB)
	for range migrations() {
		err := m.RollbackLast()
		if errors.Is(err, gormigrate.ErrNoRunMigration) {
			break
		}
		if err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
	}

	if err := s.DB.Migrator().DropTable(gormigrate.DefaultOptions.TableName); err != nil {
		return fmt.Errorf("drop migrations table: %w", err)
	}

	s.log.Debug().Msg("Schema dropped")
	return nil
}
